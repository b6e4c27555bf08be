// Package sweep hosts the background jobs that compare every active schedule
// against the clock and raise incidents for missing or lingering punches.
//
// Jobs are idempotent: every creation goes through an atomic conditional
// insert, so redundant or overlapping runs never duplicate incidents. A
// failure on one schedule is logged and the sweep continues with the rest.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	attendancemodels "fichaje/internal/attendance/models"
	attendanceservice "fichaje/internal/attendance/service"
	incidentmodels "fichaje/internal/incident/models"
	incidentservice "fichaje/internal/incident/service"
	schedulemodels "fichaje/internal/schedule/models"
	tenantmodels "fichaje/internal/tenant/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/requestcontext"
)

const tolerance = attendanceservice.ToleranceMinutes * time.Minute

// ScheduleSource provides the schedules and resolved days a sweep iterates.
// The schedule service implements it.
type ScheduleSource interface {
	ListActiveSchedules(ctx context.Context, at time.Time) ([]schedulemodels.Schedule, error)
	ResolveDay(ctx context.Context, membershipID id.MembershipID, date time.Time) (schedulemodels.DaySchedule, error)
}

// RecordReader is the slice of the attendance store the jobs consult for
// punch existence checks.
type RecordReader interface {
	Last(ctx context.Context, membershipID id.MembershipID) (attendancemodels.Record, error)
	AnyOfTypeSince(ctx context.Context, membershipID id.MembershipID, t id.RecordType, since time.Time) (bool, error)
}

// MembershipReader resolves the user behind a schedule's membership.
type MembershipReader interface {
	FindByID(ctx context.Context, membershipID id.MembershipID) (tenantmodels.Membership, error)
}

// Job is one sweep pass. Run receives the tick instant through the context
// clock, so a whole pass observes a single consistent now.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type deps struct {
	schedules   ScheduleSource
	records     RecordReader
	memberships MembershipReader
	incidents   *incidentservice.Service
	logger      *slog.Logger
}

func newDeps(schedules ScheduleSource, records RecordReader, memberships MembershipReader, incidents *incidentservice.Service, logger *slog.Logger) deps {
	if logger == nil {
		logger = slog.Default()
	}
	return deps{
		schedules:   schedules,
		records:     records,
		memberships: memberships,
		incidents:   incidents,
		logger:      logger,
	}
}

// forEachSchedule iterates the active schedules, isolating failures: one bad
// schedule is logged and skipped, never aborting the pass.
func (d deps) forEachSchedule(ctx context.Context, job string, fn func(ctx context.Context, sch schedulemodels.Schedule, member tenantmodels.Membership, day schedulemodels.DaySchedule) error) error {
	now := requestcontext.Now(ctx)
	schedules, err := d.schedules.ListActiveSchedules(ctx, now)
	if err != nil {
		return err
	}
	for _, sch := range schedules {
		member, err := d.memberships.FindByID(ctx, sch.MembershipID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			d.logger.ErrorContext(ctx, "sweep: resolving membership failed",
				"job", job, "schedule_id", sch.ID.String(), "error", err)
			continue
		}
		if !member.Active {
			continue
		}
		day, err := d.schedules.ResolveDay(ctx, sch.MembershipID, now)
		if err != nil {
			d.logger.ErrorContext(ctx, "sweep: resolving day failed",
				"job", job, "schedule_id", sch.ID.String(), "error", err)
			continue
		}
		if err := fn(ctx, sch, member, day); err != nil {
			d.logger.ErrorContext(ctx, "sweep: evaluating schedule failed",
				"job", job, "schedule_id", sch.ID.String(), "error", err)
		}
	}
	return nil
}

func (d deps) incidentInput(t incidentmodels.Type, member tenantmodels.Membership, expectedAt, occurredAt time.Time) incidentservice.NewIncidentInput {
	return incidentservice.NewIncidentInput{
		Type:         t,
		Origin:       incidentmodels.OriginSystem,
		UserID:       member.UserID,
		MembershipID: member.ID,
		CompanyID:    member.CompanyID,
		BranchID:     member.BranchID,
		ExpectedAt:   expectedAt,
		OccurredAt:   occurredAt,
	}
}
