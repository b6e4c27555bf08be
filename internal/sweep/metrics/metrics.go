package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics observes sweep execution. All methods are nil-safe so the runner
// can be exercised in tests without a registry.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	skipped  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Completed sweep passes, by job.",
		}, []string{"job"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_failures_total",
			Help: "Sweep passes that returned an error, by job.",
		}, []string{"job"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Duration of sweep passes, by job.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_skipped_total",
			Help: "Ticks skipped because another instance held the lock, by job.",
		}, []string{"job"}),
	}
}

func (m *Metrics) Run(job string, d time.Duration) {
	if m != nil {
		m.runs.WithLabelValues(job).Inc()
		m.duration.WithLabelValues(job).Observe(d.Seconds())
	}
}

func (m *Metrics) Failure(job string) {
	if m != nil {
		m.failures.WithLabelValues(job).Inc()
	}
}

func (m *Metrics) Skipped(job string) {
	if m != nil {
		m.skipped.WithLabelValues(job).Inc()
	}
}
