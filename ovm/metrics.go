package ovm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts executor activity. A nil *Metrics records nothing.
type Metrics struct {
	decisions    *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// NewMetrics registers the executor collectors with reg. A nil reg yields
// working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: type (property variant), result (true, false, undecided, error)
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ovm",
			Name:      "decisions_total",
			Help:      "Property evaluations by variant and result",
		}, []string{"type", "result"}),
		// Labels: result (hit, miss, error)
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ovm",
			Name:      "cache_lookups_total",
			Help:      "Decision cache reads by result",
		}, []string{"result"}),
	}
}

func resultLabel(d Decision, err error) string {
	switch {
	case err == nil && d.Outcome:
		return "true"
	case err == nil:
		return "false"
	case IsUndecided(err):
		return "undecided"
	default:
		return "error"
	}
}

func (m *Metrics) observeDecision(t PropertyType, d Decision, err error) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(t.String(), resultLabel(d, err)).Inc()
}

func (m *Metrics) observeLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
