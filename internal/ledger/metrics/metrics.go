package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the donation ledger.
// DuplicatePayments is the operational signal for provider retry storms and
// client double submits.
type Metrics struct {
	DonationsRecorded prometheus.Counter
	DuplicatePayments prometheus.Counter
	DonationAmount    prometheus.Histogram
	RecordDuration    prometheus.Histogram
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		DonationsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefhub_donations_recorded_total",
			Help: "Total donations applied to the ledger exactly once",
		}),
		DuplicatePayments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefhub_duplicate_payments_total",
			Help: "Replayed payment confirmations collapsed by idempotency",
		}),
		DonationAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reliefhub_donation_amount_minor_units",
			Help:    "Distribution of applied donation amounts in minor currency units",
			Buckets: prometheus.ExponentialBuckets(100, 5, 8),
		}),
		RecordDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reliefhub_record_donation_duration_seconds",
			Help:    "Duration of RecordDonation operations (donation critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveRecorded records one newly applied donation.
func (m *Metrics) ObserveRecorded(amount int64, start time.Time) {
	m.DonationsRecorded.Inc()
	m.DonationAmount.Observe(float64(amount))
	m.RecordDuration.Observe(time.Since(start).Seconds())
}

// ObserveDuplicate records a collapsed replay.
func (m *Metrics) ObserveDuplicate(start time.Time) {
	m.DuplicatePayments.Inc()
	m.RecordDuration.Observe(time.Since(start).Seconds())
}
