package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID echoes a well-formed inbound X-Request-Id, or a fresh UUID, and
// tags the request's logger with it.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !printableID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// printableID keeps client ids to at most 128 visible ASCII characters so
// they cannot forge log lines.
func printableID(id string) bool {
	return id != "" && len(id) <= 128 && strings.IndexFunc(id, func(c rune) bool {
		return c <= ' ' || c > '~'
	}) < 0
}
