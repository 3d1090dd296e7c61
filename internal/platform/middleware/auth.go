package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "reliefhub/pkg/domain"
	"reliefhub/pkg/requestcontext"
)

// SessionCookie is the cookie carrying the signed access token.
const SessionCookie = "reliefhub_session"

// JWTValidator defines the interface for validating access tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	UserID id.UserID
}

// RequireAuth extracts the access token from the session cookie or the
// Authorization header (cookie wins), validates it, and stores the caller's
// user ID in the request context. Requests without a valid token get 401.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := tokenFromRequest(r)
			if token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing session cookie or Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	const bearerPrefix = "Bearer "
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok {
		return after
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
