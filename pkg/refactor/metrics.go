package refactor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// File outcomes counted by Metrics.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// Metrics counts what a run did. A nil *Metrics discards everything.
type Metrics struct {
	registry   *prometheus.Registry
	files      *prometheus.CounterVec
	extracts   prometheus.Counter
	candidateN prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortfunc",
			Name:      "files_total",
			Help:      "Files processed, by outcome.",
		}, []string{"outcome"}),
		extracts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shortfunc",
			Name:      "extractions_total",
			Help:      "Helpers extracted.",
		}),
		candidateN: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shortfunc",
			Name:      "candidates_total",
			Help:      "Legal candidates enumerated.",
		}),
	}
	m.registry.MustRegister(m.files, m.extracts, m.candidateN)
	return m
}

// Registry exposes the collectors, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteFile writes the counters in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) file(outcome string) {
	if m != nil {
		m.files.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) extracted() {
	if m != nil {
		m.extracts.Inc()
	}
}

func (m *Metrics) candidates(n int) {
	if m != nil {
		m.candidateN.Add(float64(n))
	}
}
