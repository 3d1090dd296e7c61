// Package http assembles the service's HTTP surface: middleware chain,
// domain routes, health and metrics endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reliefhub/internal/platform/metrics"
	"reliefhub/internal/platform/middleware"
	"reliefhub/pkg/platform/httputil"
)

// Registrar is anything that mounts routes on the router. Every domain
// handler satisfies this.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config assembles the router's collaborators.
type Config struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Timeout  time.Duration
	Handlers []Registrar
	// Checks maps dependency names to health probes for /healthz.
	Checks map[string]HealthChecker
}

// NewRouter builds the full middleware chain and mounts all domain routes.
func NewRouter(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}
	r.Use(middleware.ContentTypeJSON)
	if cfg.Metrics != nil {
		r.Use(middleware.Latency(cfg.Metrics))
	}

	for _, h := range cfg.Handlers {
		h.Register(r)
	}

	r.Get("/healthz", healthHandler(cfg.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}

		httputil.WriteJSON(w, status, map[string]any{
			"status":       http.StatusText(status),
			"dependencies": deps,
		})
	}
}
