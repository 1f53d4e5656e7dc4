package application

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	probeAttempts *prometheus.CounterVec
	transitions   *prometheus.CounterVec
}

// NewMetrics creates the layer loading counters and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		probeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countyview_probe_attempts_total",
			Help: "Counts feature service metadata probes by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "countyview_fallback_transitions_total",
			Help: "Counts fallback chain transitions.",
		}, []string{"source", "from", "to", "reason"}),
	}
	if reg != nil {
		if err := reg.Register(m.probeAttempts); err != nil {
			return nil, err
		}
		if err := reg.Register(m.transitions); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) probeAttempt(outcome Outcome) {
	if m == nil {
		return
	}
	m.probeAttempts.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) transition(source string, t Transition) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(source, t.From.String(), t.To.String(), t.Reason).Inc()
}
