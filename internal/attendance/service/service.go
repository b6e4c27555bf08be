package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fichaje/internal/attendance/metrics"
	"fichaje/internal/attendance/models"
	incidentmodels "fichaje/internal/incident/models"
	incidentservice "fichaje/internal/incident/service"
	schedulemodels "fichaje/internal/schedule/models"
	tenantmodels "fichaje/internal/tenant/models"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/platform/tx"
	"fichaje/pkg/requestcontext"
)

// RecordStore is the persistence surface for punch records.
type RecordStore interface {
	Create(ctx context.Context, r models.Record) error
	CreateAlternating(ctx context.Context, r models.Record) error
	Last(ctx context.Context, membershipID id.MembershipID) (models.Record, error)
	FindByID(ctx context.Context, recordID id.RecordID) (models.Record, error)
	AnyOfTypeSince(ctx context.Context, membershipID id.MembershipID, t id.RecordType, since time.Time) (bool, error)
	ListRecent(ctx context.Context, membershipID id.MembershipID, limit int) ([]models.Record, error)
}

// DayResolver resolves a member's expected presence on a date. The schedule
// service implements it.
type DayResolver interface {
	ResolveDay(ctx context.Context, membershipID id.MembershipID, date time.Time) (schedulemodels.DaySchedule, error)
}

// MembershipResolver resolves the acting member. The tenant service
// implements it.
type MembershipResolver interface {
	ResolveActor(ctx context.Context) (tenantmodels.Membership, error)
}

// recentRecordsLimit caps the trail listing returned to clients.
const recentRecordsLimit = 50

type Service struct {
	records     RecordStore
	resolver    DayResolver
	memberships MembershipResolver
	incidents   *incidentservice.Service
	runner      tx.Runner
	logger      *slog.Logger
	metrics     *metrics.Metrics
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

func New(records RecordStore, resolver DayResolver, memberships MembershipResolver, incidents *incidentservice.Service, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		records:     records,
		resolver:    resolver,
		memberships: memberships,
		incidents:   incidents,
		runner:      runner,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PunchIn records an IN punch for the authenticated member. The record, its
// evaluation and any resulting incident are written in one transaction.
func (s *Service) PunchIn(ctx context.Context) (models.PunchResult, error) {
	return s.punch(ctx, id.RecordIn)
}

// PunchOut records an OUT punch for the authenticated member.
func (s *Service) PunchOut(ctx context.Context) (models.PunchResult, error) {
	return s.punch(ctx, id.RecordOut)
}

func (s *Service) punch(ctx context.Context, direction id.RecordType) (models.PunchResult, error) {
	member, err := s.memberships.ResolveActor(ctx)
	if err != nil {
		return models.PunchResult{}, err
	}
	now := requestcontext.Now(ctx)

	day, err := s.resolver.ResolveDay(ctx, member.ID, now)
	if err != nil {
		return models.PunchResult{}, err
	}
	ev := Evaluate(day, now, direction)

	var result models.PunchResult
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		r := models.Record{
			ID:           id.NewRecordID(),
			Type:         direction,
			UserID:       member.UserID,
			MembershipID: member.ID,
			CompanyID:    member.CompanyID,
			BranchID:     member.BranchID,
			At:           now,
		}
		// The store checks and inserts as one atomic step, so two racing
		// punches cannot both slip past the alternation guard.
		if err := s.records.CreateAlternating(ctx, r); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				s.metrics.Rejected()
				return s.alternationConflict(ctx, member.ID, direction)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "creating record")
		}

		result = models.PunchResult{Record: r, Evaluation: ev}
		switch ev.Status {
		case models.StatusEarly, models.StatusLate:
			recordID := r.ID
			_, err := s.incidents.Create(ctx, incidentservice.NewIncidentInput{
				Type:         punchIncidentType(direction, ev.Status),
				UserID:       member.UserID,
				MembershipID: member.ID,
				CompanyID:    member.CompanyID,
				BranchID:     member.BranchID,
				ExpectedAt:   ev.ExpectedAt,
				OccurredAt:   now,
				RecordID:     &recordID,
			})
			if err != nil {
				return err
			}
		case models.StatusNoShift:
			// Off-schedule IN punches only flag the confirmation question;
			// the incident, if any, comes from the member's answer.
			if direction == id.RecordIn {
				result.RequiresConfirmation = true
			}
		}
		return nil
	})
	if err != nil {
		return models.PunchResult{}, err
	}
	s.metrics.Punch(string(direction), string(ev.Status))
	s.logger.InfoContext(ctx, "punch recorded",
		"membership_id", member.ID.String(), "direction", string(direction), "status", string(ev.Status))
	return result, nil
}

// alternationConflict turns a store-level alternation rejection into a coded
// error: no two consecutive INs, no OUT without a preceding open IN.
func (s *Service) alternationConflict(ctx context.Context, membershipID id.MembershipID, direction id.RecordType) error {
	if _, err := s.records.Last(ctx, membershipID); errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeConflict, "cannot punch out without an open punch in")
	}
	return dErrors.Newf(dErrors.CodeConflict, "consecutive %s punches are not allowed", direction)
}

// ConfirmWorking answers the off-schedule question asked after a NO_SHIFT
// IN punch. YES means the member is genuinely working and the trail stands.
// NO means the IN was a mistake: a WRONG_IN incident is raised and a
// corrective OUT closes the accidental interval, atomically.
func (s *Service) ConfirmWorking(ctx context.Context, recordID id.RecordID, working bool) error {
	member, err := s.memberships.ResolveActor(ctx)
	if err != nil {
		return err
	}
	r, err := s.records.FindByID(ctx, recordID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "loading record")
	}
	if r.MembershipID != member.ID {
		return dErrors.New(dErrors.CodeForbidden, "only the record's owner may confirm it")
	}
	if r.Type != id.RecordIn {
		return dErrors.New(dErrors.CodeValidation, "only IN punches can be confirmed")
	}
	if working {
		return nil
	}

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		last, err := s.records.Last(ctx, member.ID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "loading last record")
		}
		if err == nil && last.ID != r.ID {
			return dErrors.New(dErrors.CodeConflict, "the punch is no longer the latest record")
		}

		rID := r.ID
		if _, err := s.incidents.Create(ctx, incidentservice.NewIncidentInput{
			Type:         incidentmodels.TypeWrongIn,
			Origin:       incidentmodels.OriginEmployee,
			UserID:       member.UserID,
			MembershipID: member.ID,
			CompanyID:    member.CompanyID,
			BranchID:     member.BranchID,
			ExpectedAt:   r.At,
			OccurredAt:   r.At,
			RecordID:     &rID,
		}); err != nil {
			return err
		}

		corrective := models.Record{
			ID:           id.NewRecordID(),
			Type:         id.RecordOut,
			UserID:       member.UserID,
			MembershipID: member.ID,
			CompanyID:    member.CompanyID,
			BranchID:     member.BranchID,
			At:           r.At.Add(time.Second),
			Corrective:   true,
		}
		if err := s.records.Create(ctx, corrective); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "creating corrective record")
		}
		return nil
	})
}

// RecentRecords returns the authenticated member's latest punches, newest
// first.
func (s *Service) RecentRecords(ctx context.Context) ([]models.Record, error) {
	member, err := s.memberships.ResolveActor(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListRecent(ctx, member.ID, recentRecordsLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing records")
	}
	return records, nil
}

func punchIncidentType(direction id.RecordType, status models.EvaluationStatus) incidentmodels.Type {
	switch {
	case direction == id.RecordIn && status == models.StatusEarly:
		return incidentmodels.TypeInEarly
	case direction == id.RecordIn && status == models.StatusLate:
		return incidentmodels.TypeInLate
	case direction == id.RecordOut && status == models.StatusEarly:
		return incidentmodels.TypeOutEarly
	default:
		return incidentmodels.TypeOutLate
	}
}
