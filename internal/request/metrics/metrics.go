package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the funding request module.
type Metrics struct {
	RequestsCreated prometheus.Counter
	RequestsDeleted prometheus.Counter
}

// New creates a Metrics instance with all request module metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefhub_funding_requests_created_total",
			Help: "Total number of funding requests created",
		}),
		RequestsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefhub_funding_requests_deleted_total",
			Help: "Total number of funding requests deleted by their creator",
		}),
	}
}

func (m *Metrics) IncrementRequestsCreated() {
	m.RequestsCreated.Inc()
}

func (m *Metrics) IncrementRequestsDeleted() {
	m.RequestsDeleted.Inc()
}
