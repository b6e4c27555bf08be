package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts incident lifecycle events. All methods are nil-safe so
// services can run without metrics wired, as tests do.
type Metrics struct {
	created    *prometheus.CounterVec
	resolved   *prometheus.CounterVec
	corrective prometheus.Counter
	deduped    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		created: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incidents_created_total",
			Help: "Incidents created, by type.",
		}, []string{"type"}),
		resolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "incidents_resolved_total",
			Help: "Employee responses applied, by answer.",
		}, []string{"answer"}),
		corrective: factory.NewCounter(prometheus.CounterOpts{
			Name: "incidents_corrective_records_total",
			Help: "Corrective punch records synthesized by resolution.",
		}),
		deduped: factory.NewCounter(prometheus.CounterOpts{
			Name: "incidents_deduplicated_total",
			Help: "Incident creations suppressed by the existence guard.",
		}),
	}
}

func (m *Metrics) Created(incidentType string) {
	if m != nil {
		m.created.WithLabelValues(incidentType).Inc()
	}
}

func (m *Metrics) Resolved(answer string) {
	if m != nil {
		m.resolved.WithLabelValues(answer).Inc()
	}
}

func (m *Metrics) CorrectiveRecord() {
	if m != nil {
		m.corrective.Inc()
	}
}

func (m *Metrics) Deduplicated() {
	if m != nil {
		m.deduped.Inc()
	}
}
