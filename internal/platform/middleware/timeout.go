package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the handler's context. Store calls inherit the deadline, so
// a stalled database surfaces as a retryable failure instead of a hung
// request.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
