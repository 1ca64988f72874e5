package apply

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Apply outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInvalid = "invalid"
)

// Metrics holds the orchestrator counters.
type Metrics struct {
	applies      *prometheus.CounterVec
	nameFailures prometheus.Counter
}

// NewMetrics builds the counters and registers them with reg when non-nil.
// Collectors already registered under the same names are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		applies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postgen",
			Name:      "template_applies_total",
			Help:      "Template applications by outcome.",
		}, []string{"outcome"}),
		nameFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "postgen",
			Name:      "name_resolution_failures_total",
			Help:      "Recipient or group name lookups that fell back to raw identifiers.",
		}),
	}
	if reg == nil {
		return m
	}
	if err := reg.Register(m.applies); err != nil {
		var exists prometheus.AlreadyRegisteredError
		if errors.As(err, &exists) {
			if vec, ok := exists.ExistingCollector.(*prometheus.CounterVec); ok {
				m.applies = vec
			}
		}
	}
	if err := reg.Register(m.nameFailures); err != nil {
		var exists prometheus.AlreadyRegisteredError
		if errors.As(err, &exists) {
			if counter, ok := exists.ExistingCollector.(prometheus.Counter); ok {
				m.nameFailures = counter
			}
		}
	}
	return m
}

// Applies returns the apply counter for outcome.
func (m *Metrics) Applies(outcome string) prometheus.Counter {
	return m.applies.WithLabelValues(outcome)
}

// NameFailures returns the name resolution failure counter.
func (m *Metrics) NameFailures() prometheus.Counter {
	return m.nameFailures
}

func (m *Metrics) observe(outcome string) {
	m.applies.WithLabelValues(outcome).Inc()
}
