package sweep

import (
	"context"
	"log/slog"
	"time"

	incidentmodels "fichaje/internal/incident/models"
	incidentservice "fichaje/internal/incident/service"
	schedulemodels "fichaje/internal/schedule/models"
	tenantmodels "fichaje/internal/tenant/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/requestcontext"
)

// ForgotInJob raises FORGOT_IN when a turn's start passed the grace window
// with no IN punch on the day. An existing FORGOT_IN, IN_LATE or NO_SHOW for
// the same turn suppresses it.
type ForgotInJob struct {
	deps
}

func NewForgotInJob(schedules ScheduleSource, records RecordReader, memberships MembershipReader, incidents *incidentservice.Service, logger *slog.Logger) *ForgotInJob {
	return &ForgotInJob{deps: newDeps(schedules, records, memberships, incidents, logger)}
}

func (j *ForgotInJob) Name() string { return "forgot_in" }

func (j *ForgotInJob) Run(ctx context.Context) error {
	now := requestcontext.Now(ctx)
	return j.forEachSchedule(ctx, j.Name(), func(ctx context.Context, _ schedulemodels.Schedule, member tenantmodels.Membership, day schedulemodels.DaySchedule) error {
		if !day.HasWork() {
			return nil
		}
		for _, turn := range day.Turns {
			expectedStart := turn.Start.At(now)
			if now.Before(expectedStart.Add(tolerance)) {
				continue
			}
			punchedIn, err := j.records.AnyOfTypeSince(ctx, member.ID, id.RecordIn, id.DateOf(now))
			if err != nil {
				return err
			}
			if punchedIn {
				continue
			}
			guard := []incidentmodels.Type{incidentmodels.TypeForgotIn, incidentmodels.TypeInLate, incidentmodels.TypeNoShow}
			if _, err := j.incidents.CreateIfAbsent(ctx,
				j.incidentInput(incidentmodels.TypeForgotIn, member, expectedStart, now),
				guard, expectedStart,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// NoShowJob raises NO_SHOW once a turn ended with still no IN punch on the
// day. Creating it retires any pending IN_LATE for the same turn, since the
// two classifications are mutually exclusive.
type NoShowJob struct {
	deps
}

func NewNoShowJob(schedules ScheduleSource, records RecordReader, memberships MembershipReader, incidents *incidentservice.Service, logger *slog.Logger) *NoShowJob {
	return &NoShowJob{deps: newDeps(schedules, records, memberships, incidents, logger)}
}

func (j *NoShowJob) Name() string { return "no_show" }

func (j *NoShowJob) Run(ctx context.Context) error {
	now := requestcontext.Now(ctx)
	return j.forEachSchedule(ctx, j.Name(), func(ctx context.Context, _ schedulemodels.Schedule, member tenantmodels.Membership, day schedulemodels.DaySchedule) error {
		if !day.HasWork() {
			return nil
		}
		for _, turn := range day.Turns {
			expectedStart := turn.Start.At(now)
			expectedEnd := turn.End.At(now)
			if now.Before(expectedEnd) {
				continue
			}
			punchedIn, err := j.records.AnyOfTypeSince(ctx, member.ID, id.RecordIn, id.DateOf(now))
			if err != nil {
				return err
			}
			if punchedIn {
				continue
			}
			inserted, err := j.incidents.CreateIfAbsent(ctx,
				j.incidentInput(incidentmodels.TypeNoShow, member, expectedStart, now),
				[]incidentmodels.Type{incidentmodels.TypeNoShow}, expectedStart,
			)
			if err != nil {
				return err
			}
			if inserted {
				if err := j.incidents.DropPendingInLate(ctx, member.ID, expectedStart); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// OutLateJob raises OUT_LATE when a turn's end passed the grace window while
// the member is still clocked in.
type OutLateJob struct {
	deps
}

func NewOutLateJob(schedules ScheduleSource, records RecordReader, memberships MembershipReader, incidents *incidentservice.Service, logger *slog.Logger) *OutLateJob {
	return &OutLateJob{deps: newDeps(schedules, records, memberships, incidents, logger)}
}

func (j *OutLateJob) Name() string { return "out_late" }

func (j *OutLateJob) Run(ctx context.Context) error {
	now := requestcontext.Now(ctx)
	return j.forEachSchedule(ctx, j.Name(), func(ctx context.Context, _ schedulemodels.Schedule, member tenantmodels.Membership, day schedulemodels.DaySchedule) error {
		if !day.HasWork() {
			return nil
		}
		last, err := j.records.Last(ctx, member.ID)
		if err != nil {
			// No records at all: nothing is open, the no-show job owns
			// this case.
			return nil
		}
		if last.Type != id.RecordIn {
			return nil
		}
		for _, turn := range day.Turns {
			expectedEnd := turn.End.At(now)
			if now.Before(expectedEnd.Add(tolerance)) {
				continue
			}
			guard := []incidentmodels.Type{incidentmodels.TypeOutLate, incidentmodels.TypeForgotOut}
			if _, err := j.incidents.CreateIfAbsent(ctx,
				j.incidentInput(incidentmodels.TypeOutLate, member, expectedEnd, now),
				guard, expectedEnd,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// forgotOutDelay is how long an OUT_LATE may sit unresolved before the
// forgot-out sweep escalates it.
const forgotOutDelay = 3 * time.Hour

// ForgotOutJob escalates OUT_LATE incidents that sat pending for hours with
// still no OUT punch, raising FORGOT_OUT for admin follow-up.
type ForgotOutJob struct {
	deps
	delay time.Duration
}

func NewForgotOutJob(schedules ScheduleSource, records RecordReader, memberships MembershipReader, incidents *incidentservice.Service, logger *slog.Logger) *ForgotOutJob {
	return &ForgotOutJob{
		deps:  newDeps(schedules, records, memberships, incidents, logger),
		delay: forgotOutDelay,
	}
}

func (j *ForgotOutJob) Name() string { return "forgot_out" }

func (j *ForgotOutJob) Run(ctx context.Context) error {
	now := requestcontext.Now(ctx)
	lingering, err := j.incidents.ListPendingOlderThan(ctx, incidentmodels.TypeOutLate, now.Add(-j.delay))
	if err != nil {
		return err
	}
	for _, inc := range lingering {
		punchedOut, err := j.records.AnyOfTypeSince(ctx, inc.MembershipID, id.RecordOut, inc.ExpectedAt)
		if err != nil {
			j.logger.ErrorContext(ctx, "sweep: checking out punches failed",
				"job", j.Name(), "incident_id", inc.ID.String(), "error", err)
			continue
		}
		if punchedOut {
			continue
		}
		member, err := j.memberships.FindByID(ctx, inc.MembershipID)
		if err != nil {
			j.logger.ErrorContext(ctx, "sweep: resolving membership failed",
				"job", j.Name(), "incident_id", inc.ID.String(), "error", err)
			continue
		}
		if _, err := j.incidents.CreateIfAbsent(ctx,
			j.incidentInput(incidentmodels.TypeForgotOut, member, inc.ExpectedAt, now),
			[]incidentmodels.Type{incidentmodels.TypeForgotOut}, inc.ExpectedAt,
		); err != nil {
			j.logger.ErrorContext(ctx, "sweep: creating incident failed",
				"job", j.Name(), "incident_id", inc.ID.String(), "error", err)
		}
	}
	return nil
}
