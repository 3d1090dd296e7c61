package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the cross-cutting HTTP metrics for the application. Domain
// modules register their own counters in their metrics packages.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

// New creates and registers all platform metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reliefhub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and method",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method"}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefhub_http_requests_total",
			Help: "Total HTTP requests by route, method, and status class",
		}, []string{"route", "method", "status"}),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, start time.Time) {
	m.RequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	m.RequestsTotal.WithLabelValues(route, method, status).Inc()
}
