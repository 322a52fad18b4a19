// Package responses writes JSON bodies and the shared error envelope.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	zlog "github.com/rs/zerolog/log"

	pkgerrors "github.com/phuoc-stack/foodapp-backend/pkg/errors"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
	"github.com/phuoc-stack/foodapp-backend/pkg/types"
)

// WriteSuccess writes data as the raw JSON body with status 200.
func WriteSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders err as an ErrorBody and logs it: 5xx at error level,
// everything else at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("nil error written")
	}
	status, body := errorBody(err)

	if logg != nil {
		fields := pkgerrors.LogFields(err)
		fields["status"] = status
		ctx = logg.WithFields(ctx, fields)
		if status >= http.StatusInternalServerError {
			logg.Error(ctx, "request failed", err)
		} else {
			logg.Warn(ctx, "request rejected")
		}
	}
	writeJSON(w, status, body)
}

// errorBody maps err onto its code's metadata. Errors without a code are
// INTERNAL_ERROR. Messages of 5xx errors never reach the client, and details
// only do for codes that allow them.
func errorBody(err error) (int, types.ErrorBody) {
	code, message := pkgerrors.CodeInternal, ""
	var details any
	if typed := pkgerrors.As(err); typed != nil {
		code, message, details = typed.Code(), typed.Message(), typed.Details()
	}
	meta := pkgerrors.MetadataFor(code)

	body := types.ErrorBody{
		Error:     string(code),
		Message:   meta.PublicMessage,
		Retryable: meta.Retryable,
	}
	if message != "" && meta.HTTPStatus < http.StatusInternalServerError {
		body.Message = message
	}
	if meta.DetailsAllowed {
		body.Details = details
	}
	return meta.HTTPStatus, body
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// status is already sent
		zlog.Error().Err(err).Int("status", status).Msg("encode response body")
	}
}
