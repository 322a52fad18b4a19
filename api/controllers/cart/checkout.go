package cart

import (
	"net/http"

	"github.com/phuoc-stack/foodapp-backend/api/responses"
	"github.com/phuoc-stack/foodapp-backend/internal/checkout"
	pkgerrors "github.com/phuoc-stack/foodapp-backend/pkg/errors"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
)

// Checkout turns the buyer's cart into a pending order and returns the
// hosted payment page to redirect to. The cart survives until payment.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
