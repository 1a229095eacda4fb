package collections

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider call outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Callback outcomes
const (
	CallbackMatched   = "matched"
	CallbackUnmatched = "unmatched"
	CallbackInvalid   = "invalid"
)

// Metrics holds the service's prometheus collectors
type Metrics struct {
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	callbacks       *prometheus.CounterVec
}

// NewMetrics registers the service collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		providerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pagacollect_provider_calls_total",
			Help: "Provider calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		providerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pagacollect_provider_call_duration_seconds",
			Help:    "Duration of provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		callbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pagacollect_callbacks_received_total",
			Help: "Provider callbacks received by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeCall(endpoint, outcome string, d time.Duration) {
	m.providerCalls.WithLabelValues(endpoint, outcome).Inc()
	m.providerLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) observeCallback(outcome string) {
	m.callbacks.WithLabelValues(outcome).Inc()
}
