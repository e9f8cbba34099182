package snowflake

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts generator activity. A nil *Metrics records nothing.
type Metrics struct {
	minted      *prometheus.CounterVec
	regressions prometheus.Counter
	exhausted   prometheus.Counter
	lockErrors  prometheus.Counter
	failures    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		minted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowflake",
			Name:      "ids_minted_total",
			Help:      "IDs minted, by backend.",
		}, []string{"backend"}),
		regressions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "snowflake",
			Name:      "clock_regressions_total",
			Help:      "Mint attempts rejected because the clock moved backwards.",
		}),
		exhausted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "snowflake",
			Name:      "sequence_exhausted_total",
			Help:      "Mints that waited for the next millisecond after using every sequence value.",
		}),
		lockErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "snowflake",
			Name:      "lock_failures_total",
			Help:      "Mint attempts that could not enter the critical section.",
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowflake",
			Name:      "backend_errors_total",
			Help:      "Mint attempts that failed inside the backend, by backend.",
		}, []string{"backend"}),
	}
}

func (m *Metrics) mint(backend string) {
	if m != nil {
		m.minted.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) clockRegression() {
	if m != nil {
		m.regressions.Inc()
	}
}

func (m *Metrics) sequenceExhausted() {
	if m != nil {
		m.exhausted.Inc()
	}
}

func (m *Metrics) lockFailure() {
	if m != nil {
		m.lockErrors.Inc()
	}
}

func (m *Metrics) backendFailure(backend string) {
	if m != nil {
		m.failures.WithLabelValues(backend).Inc()
	}
}
