// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the values; services read them without importing net/http.
// Tests inject values directly:
//
//	ctx = requestcontext.WithUserID(ctx, donorID)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "reliefhub/pkg/domain"
)

type (
	userIDKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context, falling back to
// time.Now for non-HTTP contexts (workers, CLI, tests without injection).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request-scoped time. Useful for service unit tests that
// don't run the HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
