package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	platformredis "reliefhub/internal/platform/redis"
	"reliefhub/pkg/requestcontext"
)

// Limiter answers whether one more request under key is allowed inside a
// fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisLimiter implements a fixed-window counter in Redis so limits hold
// across server replicas.
type RedisLimiter struct {
	client *platformredis.Client
}

func NewRedisLimiter(client *platformredis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(window.Seconds()))

	count, err := l.client.Incr(ctx, bucket).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		// First hit in the window owns setting the expiry.
		if err := l.client.Expire(ctx, bucket, window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// MemoryLimiter is the in-process fallback when Redis is not configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	start time.Time
	count int
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*memoryWindow)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= window {
		l.windows[key] = &memoryWindow{start: now, count: 1}
		return limit >= 1, nil
	}
	w.count++
	return w.count <= limit, nil
}

// RateLimit throttles per authenticated user (falling back to remote address
// for anonymous routes). Limiter failures fail open: a broken Redis must not
// block donations.
func RateLimit(limiter Limiter, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := r.RemoteAddr
			if userID := requestcontext.UserID(ctx); !userID.IsZero() {
				key = userID.String()
			}

			allowed, err := limiter.Allow(ctx, key, limit, window)
			if err != nil {
				logger.WarnContext(ctx, "rate limiter unavailable, failing open",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"Too many requests, slow down"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
