package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fichaje/internal/schedule/metrics"
	"fichaje/internal/schedule/models"
	tenantmodels "fichaje/internal/tenant/models"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/platform/tx"
	"fichaje/pkg/requestcontext"
)

// ScheduleStore is the persistence surface for schedule containers.
type ScheduleStore interface {
	Create(ctx context.Context, sch models.Schedule) error
	FindByID(ctx context.Context, scheduleID id.ScheduleID) (models.Schedule, error)
	FindActiveForDate(ctx context.Context, membershipID id.MembershipID, date time.Time) (models.Schedule, error)
	ListActiveAt(ctx context.Context, at time.Time) ([]models.Schedule, error)
	ListByMembership(ctx context.Context, membershipID id.MembershipID) ([]models.Schedule, error)
	Confirm(ctx context.Context, scheduleID id.ScheduleID, now time.Time) (models.Schedule, error)
}

// ShiftStore is the persistence surface for recurring shift blocks.
type ShiftStore interface {
	Create(ctx context.Context, sh models.Shift) error
	FindByID(ctx context.Context, shiftID id.ShiftID) (models.Shift, error)
	ListBySchedule(ctx context.Context, scheduleID id.ScheduleID) ([]models.Shift, error)
	ListByScheduleWeekday(ctx context.Context, scheduleID id.ScheduleID, weekday id.Weekday) ([]models.Shift, error)
	CloseValidity(ctx context.Context, shiftID id.ShiftID, until time.Time) error
}

// ExceptionStore is the persistence surface for dated deviations.
type ExceptionStore interface {
	Create(ctx context.Context, e models.Exception) error
	CreateVacationIfAbsent(ctx context.Context, e models.Exception) (bool, error)
	ListForDate(ctx context.Context, scheduleID id.ScheduleID, date time.Time) ([]models.Exception, error)
	ListForRange(ctx context.Context, scheduleID id.ScheduleID, from, to time.Time) ([]models.Exception, error)
	DeleteVacations(ctx context.Context, scheduleID id.ScheduleID, from, to time.Time) (int, error)
}

type Service struct {
	schedules  ScheduleStore
	shifts     ShiftStore
	exceptions ExceptionStore
	runner     tx.Runner
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(schedules ScheduleStore, shifts ShiftStore, exceptions ExceptionStore, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		schedules:  schedules,
		shifts:     shifts,
		exceptions: exceptions,
		runner:     runner,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDraft opens a new editable schedule for a member. Drafts do not
// affect resolution until confirmed.
func (s *Service) CreateDraft(ctx context.Context, member tenantmodels.Membership, validFrom time.Time) (models.Schedule, error) {
	now := requestcontext.Now(ctx)
	if validFrom.IsZero() {
		validFrom = now
	}
	sch := models.Schedule{
		ID:           id.NewScheduleID(),
		MembershipID: member.ID,
		CompanyID:    member.CompanyID,
		BranchID:     member.BranchID,
		Status:       models.ScheduleDraft,
		ValidFrom:    id.DateOf(validFrom),
		CreatedAt:    now,
	}
	if err := s.schedules.Create(ctx, sch); err != nil {
		return models.Schedule{}, dErrors.Wrap(err, dErrors.CodeInternal, "creating schedule")
	}
	s.logger.InfoContext(ctx, "schedule draft created",
		"schedule_id", sch.ID.String(), "membership_id", member.ID.String())
	return sch, nil
}

// AddShiftInput carries one new recurring block.
type AddShiftInput struct {
	Weekday   id.Weekday
	Start     id.TimeOfDay
	End       id.TimeOfDay
	ValidFrom time.Time
	ValidTo   *time.Time
}

// AddShift appends a recurring block to a schedule. Validation runs in a
// fixed order so clients get stable error messages: weekday, time range,
// validity window, then overlap against existing blocks on the same weekday.
func (s *Service) AddShift(ctx context.Context, scheduleID id.ScheduleID, in AddShiftInput) (models.Shift, error) {
	if !in.Weekday.IsValid() {
		return models.Shift{}, dErrors.Newf(dErrors.CodeValidation, "weekday %d out of range 1..7", in.Weekday)
	}
	if !in.Start.Before(in.End) {
		return models.Shift{}, dErrors.New(dErrors.CodeValidation, "shift start must be before end")
	}
	if in.ValidFrom.IsZero() {
		return models.Shift{}, dErrors.New(dErrors.CodeValidation, "valid_from is required")
	}
	if in.ValidTo != nil && id.DateOf(*in.ValidTo).Before(id.DateOf(in.ValidFrom)) {
		return models.Shift{}, dErrors.New(dErrors.CodeValidation, "valid_from must not be after valid_to")
	}
	today := id.DateOf(requestcontext.Now(ctx))
	if id.DateOf(in.ValidFrom).Before(today) {
		return models.Shift{}, dErrors.New(dErrors.CodeValidation, "valid_from must not be in the past")
	}

	sch, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return models.Shift{}, err
	}

	existing, err := s.shifts.ListByScheduleWeekday(ctx, sch.ID, in.Weekday)
	if err != nil {
		return models.Shift{}, dErrors.Wrap(err, dErrors.CodeInternal, "listing shifts")
	}
	for _, other := range existing {
		if other.OverlapsValidity(in.ValidFrom, in.ValidTo) && other.OverlapsTime(in.Start, in.End) {
			return models.Shift{}, dErrors.Newf(dErrors.CodeValidation,
				"shift %s-%s overlaps existing block %s-%s",
				in.Start, in.End, other.Start, other.End)
		}
	}

	sh := models.Shift{
		ID:         id.NewShiftID(),
		ScheduleID: sch.ID,
		Weekday:    in.Weekday,
		Start:      in.Start,
		End:        in.End,
		ValidFrom:  id.DateOf(in.ValidFrom),
		ValidTo:    in.ValidTo,
	}
	if err := s.shifts.Create(ctx, sh); err != nil {
		return models.Shift{}, dErrors.Wrap(err, dErrors.CodeInternal, "creating shift")
	}
	s.metrics.ShiftAdded()
	return sh, nil
}

// DeleteMode selects how far a shift deletion reaches.
type DeleteMode string

const (
	// DeleteOnlyThisBlock suppresses the block on one concrete date via a
	// MODIFIED_SHIFT exception; the recurring pattern stays intact.
	DeleteOnlyThisBlock DeleteMode = "ONLY_THIS_BLOCK"
	// DeleteFromThisDayOn closes the block's validity the day before the
	// date, so the date and everything after lose the block while history
	// keeps it.
	DeleteFromThisDayOn DeleteMode = "FROM_THIS_DAY_ON"
)

func (m DeleteMode) IsValid() bool {
	return m == DeleteOnlyThisBlock || m == DeleteFromThisDayOn
}

// DeleteShift removes a recurring block starting at the given date, using one
// of the two modes. Nothing is ever hard-deleted; past days keep resolving
// exactly as they did.
func (s *Service) DeleteShift(ctx context.Context, shiftID id.ShiftID, date time.Time, mode DeleteMode) error {
	if !mode.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown delete mode %q", mode)
	}
	if id.DateOf(date).Before(id.DateOf(requestcontext.Now(ctx))) {
		return dErrors.New(dErrors.CodeValidation, "cannot delete shifts on a past date")
	}
	sh, err := s.shifts.FindByID(ctx, shiftID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "shift not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "loading shift")
	}
	if id.WeekdayOf(date) != sh.Weekday {
		return dErrors.Newf(dErrors.CodeValidation, "date %s does not fall on the shift's weekday", id.DateOf(date).Format("2006-01-02"))
	}

	switch mode {
	case DeleteOnlyThisBlock:
		start, end := sh.Start, sh.End
		e := models.Exception{
			ID:         id.NewExceptionID(),
			ScheduleID: sh.ScheduleID,
			Date:       id.DateOf(date),
			Type:       models.ExceptionModifiedShift,
			Start:      &start,
			End:        &end,
			CreatedAt:  requestcontext.Now(ctx),
		}
		if err := s.exceptions.Create(ctx, e); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "creating shift exception")
		}
	case DeleteFromThisDayOn:
		until := id.DateOf(date).AddDate(0, 0, -1)
		if err := s.shifts.CloseValidity(ctx, sh.ID, until); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "closing shift validity")
		}
	}
	s.metrics.ShiftDeleted()
	return nil
}

// AddVacation records vacation days. Re-submitting a day that is already a
// vacation is a no-op, so duplicate requests can't double-book.
func (s *Service) AddVacation(ctx context.Context, scheduleID id.ScheduleID, dates []time.Time) error {
	if len(dates) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one vacation date is required")
	}
	sch, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	for _, date := range dates {
		e := models.Exception{
			ID:         id.NewExceptionID(),
			ScheduleID: sch.ID,
			Date:       id.DateOf(date),
			Type:       models.ExceptionVacation,
			CreatedAt:  now,
		}
		inserted, err := s.exceptions.CreateVacationIfAbsent(ctx, e)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "creating vacation")
		}
		if inserted {
			s.metrics.VacationAdded()
		}
	}
	return nil
}

// ExceptionInput carries one non-vacation deviation.
type ExceptionInput struct {
	Date  time.Time
	Type  models.ExceptionType
	Start *id.TimeOfDay
	End   *id.TimeOfDay
}

// AddExceptions records day-offs, modified blocks and extra blocks.
func (s *Service) AddExceptions(ctx context.Context, scheduleID id.ScheduleID, inputs []ExceptionInput) error {
	if len(inputs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one exception is required")
	}
	sch, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	for _, in := range inputs {
		if !in.Type.IsValid() {
			return dErrors.Newf(dErrors.CodeValidation, "unknown exception type %q", in.Type)
		}
		if in.Type == models.ExceptionVacation {
			return dErrors.New(dErrors.CodeValidation, "vacations have their own endpoint")
		}
		needsTimes := in.Type == models.ExceptionModifiedShift || in.Type == models.ExceptionExtraShift
		if needsTimes && (in.Start == nil || in.End == nil) {
			return dErrors.Newf(dErrors.CodeValidation, "%s exception requires start and end", in.Type)
		}
		if needsTimes && !in.Start.Before(*in.End) {
			return dErrors.New(dErrors.CodeValidation, "exception start must be before end")
		}
		e := models.Exception{
			ID:         id.NewExceptionID(),
			ScheduleID: sch.ID,
			Date:       id.DateOf(in.Date),
			Type:       in.Type,
			Start:      in.Start,
			End:        in.End,
			CreatedAt:  now,
		}
		if err := s.exceptions.Create(ctx, e); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "creating exception")
		}
		s.metrics.ExceptionAdded()
	}
	return nil
}

// deleteVacationForward caps how far a forward vacation deletion scans.
const deleteVacationForwardYears = 2

// DeleteVacation removes a vacation day, or with forward set, the day and
// every recorded vacation after it within a two year horizon.
func (s *Service) DeleteVacation(ctx context.Context, scheduleID id.ScheduleID, date time.Time, forward bool) (int, error) {
	sch, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return 0, err
	}
	from := id.DateOf(date)
	to := from
	if forward {
		to = from.AddDate(deleteVacationForwardYears, 0, 0)
	}
	removed, err := s.exceptions.DeleteVacations(ctx, sch.ID, from, to)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "deleting vacations")
	}
	if removed == 0 {
		return 0, dErrors.New(dErrors.CodeNotFound, "no vacation recorded for date")
	}
	return removed, nil
}

// Confirm activates a draft schedule. Any previously active schedule of the
// member is closed at the confirmation instant so there is exactly one active
// schedule at any point in time. Activating the draft and closing its
// siblings happen in one transaction.
func (s *Service) Confirm(ctx context.Context, scheduleID id.ScheduleID) (models.Schedule, error) {
	now := requestcontext.Now(ctx)
	var sch models.Schedule
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		sch, err = s.schedules.Confirm(ctx, scheduleID, now)
		return err
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Schedule{}, dErrors.New(dErrors.CodeNotFound, "schedule not found")
	}
	if errors.Is(err, sentinel.ErrInvalidState) {
		return models.Schedule{}, dErrors.New(dErrors.CodeConflict, "schedule is not a draft")
	}
	if err != nil {
		return models.Schedule{}, dErrors.Wrap(err, dErrors.CodeInternal, "confirming schedule")
	}
	s.metrics.ScheduleConfirmed()
	s.logger.InfoContext(ctx, "schedule confirmed",
		"schedule_id", sch.ID.String(), "membership_id", sch.MembershipID.String())
	return sch, nil
}

// WeeklyMinutes sums the durations of all blocks valid on the reference date.
// It is a planning figure: exceptions do not alter it.
func (s *Service) WeeklyMinutes(ctx context.Context, scheduleID id.ScheduleID) (int, error) {
	sch, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return 0, err
	}
	shifts, err := s.shifts.ListBySchedule(ctx, sch.ID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "listing shifts")
	}
	today := id.DateOf(requestcontext.Now(ctx))
	total := 0
	for _, sh := range shifts {
		if id.DateOf(sh.ValidFrom).After(today) {
			continue
		}
		if sh.ValidTo != nil && id.DateOf(*sh.ValidTo).Before(today) {
			continue
		}
		total += sh.End.Sub(sh.Start)
	}
	return total, nil
}

// ListShifts returns every block of the schedule.
func (s *Service) ListShifts(ctx context.Context, scheduleID id.ScheduleID) ([]models.Shift, error) {
	sch, err := s.loadSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	shifts, err := s.shifts.ListBySchedule(ctx, sch.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing shifts")
	}
	return shifts, nil
}

func (s *Service) loadSchedule(ctx context.Context, scheduleID id.ScheduleID) (models.Schedule, error) {
	sch, err := s.schedules.FindByID(ctx, scheduleID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Schedule{}, dErrors.New(dErrors.CodeNotFound, "schedule not found")
	}
	if err != nil {
		return models.Schedule{}, dErrors.Wrap(err, dErrors.CodeInternal, "loading schedule")
	}
	return sch, nil
}
