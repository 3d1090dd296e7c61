package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"reliefhub/pkg/requestcontext"
)

// RequestIDHeader is echoed back so clients and logs can correlate.
const RequestIDHeader = "X-Request-Id"

// RequestID assigns each request a correlation ID, honoring one supplied by
// an upstream proxy.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
