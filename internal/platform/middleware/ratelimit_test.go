package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliefhub/internal/platform/logger"
)

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow(ctx, "donor-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := l.Allow(ctx, "donor-1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "fourth request should be limited")

	// A different key has its own window.
	allowed, err = l.Allow(ctx, "donor-2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	allowed, err := l.Allow(ctx, "donor-1", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.Allow(ctx, "donor-1", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(15 * time.Millisecond)

	allowed, err = l.Allow(ctx, "donor-1", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed, "new window should admit the request")
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimit(NewMemoryLimiter(), 2, time.Minute, logger.New())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/requests/x/donations", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/requests/x/donations", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, context.DeadlineExceeded
}

func TestRateLimitFailsOpen(t *testing.T) {
	handler := RateLimit(failingLimiter{}, 1, time.Minute, logger.New())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/requests/x/donations", nil)
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code, "limiter failure must not block the request")
}
