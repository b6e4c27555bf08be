package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts schedule mutations. All methods are nil-safe so services can
// run without metrics wired, as tests do.
type Metrics struct {
	shiftsAdded        prometheus.Counter
	shiftsDeleted      prometheus.Counter
	schedulesConfirmed prometheus.Counter
	vacationsAdded     prometheus.Counter
	exceptionsAdded    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		shiftsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "schedule_shifts_added_total",
			Help: "Shift blocks added to schedules.",
		}),
		shiftsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "schedule_shifts_deleted_total",
			Help: "Shift blocks removed, by either deletion mode.",
		}),
		schedulesConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "schedule_confirmed_total",
			Help: "Draft schedules confirmed.",
		}),
		vacationsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "schedule_vacations_added_total",
			Help: "Vacation days recorded.",
		}),
		exceptionsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "schedule_exceptions_added_total",
			Help: "Non-vacation exceptions recorded.",
		}),
	}
}

func (m *Metrics) ShiftAdded() {
	if m != nil {
		m.shiftsAdded.Inc()
	}
}

func (m *Metrics) ShiftDeleted() {
	if m != nil {
		m.shiftsDeleted.Inc()
	}
}

func (m *Metrics) ScheduleConfirmed() {
	if m != nil {
		m.schedulesConfirmed.Inc()
	}
}

func (m *Metrics) VacationAdded() {
	if m != nil {
		m.vacationsAdded.Inc()
	}
}

func (m *Metrics) ExceptionAdded() {
	if m != nil {
		m.exceptionsAdded.Inc()
	}
}
