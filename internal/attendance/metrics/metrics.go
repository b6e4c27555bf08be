package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts punch activity. All methods are nil-safe so services can run
// without metrics wired, as tests do.
type Metrics struct {
	punches  *prometheus.CounterVec
	rejected prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		punches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_punches_total",
			Help: "Punches recorded, by direction and evaluation status.",
		}, []string{"direction", "status"}),
		rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "attendance_punches_rejected_total",
			Help: "Punches rejected by the alternation guard.",
		}),
	}
}

func (m *Metrics) Punch(direction, status string) {
	if m != nil {
		m.punches.WithLabelValues(direction, status).Inc()
	}
}

func (m *Metrics) Rejected() {
	if m != nil {
		m.rejected.Inc()
	}
}
