package plaid

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for provider traffic. A nil
// *Metrics records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	syncOutcomes    *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plaid_requests_total",
				Help: "Total number of Plaid connect API requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plaid_request_duration_seconds",
				Help:    "Duration of Plaid connect API requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint"},
		),
		syncOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plaid_sync_outcomes_total",
				Help: "Total number of transaction downloads by classified outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequest records one provider exchange.
func (m *Metrics) RecordRequest(endpoint, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSyncOutcome records the classification of one download.
func (m *Metrics) RecordSyncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.syncOutcomes.WithLabelValues(outcome).Inc()
}
