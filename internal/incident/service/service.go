package service

import (
	"context"
	"log/slog"
	"time"

	attendancemodels "fichaje/internal/attendance/models"
	"fichaje/internal/incident/metrics"
	"fichaje/internal/incident/models"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/tx"
	"fichaje/pkg/requestcontext"
)

// IncidentStore is the persistence surface for incidents. CreateIfAbsent must
// be atomic: the existence guard and the insert happen as one operation.
type IncidentStore interface {
	Create(ctx context.Context, inc models.Incident) error
	CreateIfAbsent(ctx context.Context, inc models.Incident, guard []models.Type, since time.Time) (bool, error)
	FindByID(ctx context.Context, incidentID id.IncidentID) (models.Incident, error)
	List(ctx context.Context, f models.Filter) ([]models.Incident, error)
	ListPendingOlderThan(ctx context.Context, t models.Type, cutoff time.Time) ([]models.Incident, error)
	DeletePendingSince(ctx context.Context, membershipID id.MembershipID, t models.Type, since time.Time) (int, error)
	Update(ctx context.Context, inc models.Incident) error
	Delete(ctx context.Context, incidentID id.IncidentID) error
}

// RecordStore is the slice of the attendance store the incident engine needs
// to synthesize corrective punches and look up triggering records.
type RecordStore interface {
	Create(ctx context.Context, r attendancemodels.Record) error
	FindByID(ctx context.Context, recordID id.RecordID) (attendancemodels.Record, error)
}

type Service struct {
	incidents IncidentStore
	records   RecordStore
	runner    tx.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
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

func New(incidents IncidentStore, records RecordStore, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		incidents: incidents,
		records:   records,
		runner:    runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewIncidentInput carries the fields a caller controls when raising a
// system incident.
type NewIncidentInput struct {
	Type         models.Type
	Origin       models.Origin
	UserID       id.UserID
	MembershipID id.MembershipID
	CompanyID    id.CompanyID
	BranchID     id.BranchID
	ExpectedAt   time.Time
	OccurredAt   time.Time
	RecordID     *id.RecordID
}

func (s *Service) buildIncident(ctx context.Context, in NewIncidentInput) models.Incident {
	if in.Origin == "" {
		in.Origin = models.OriginSystem
	}
	return models.Incident{
		ID:           id.NewIncidentID(),
		Type:         in.Type,
		Origin:       in.Origin,
		State:        models.StatePending,
		UserID:       in.UserID,
		MembershipID: in.MembershipID,
		CompanyID:    in.CompanyID,
		BranchID:     in.BranchID,
		ExpectedAt:   in.ExpectedAt,
		OccurredAt:   in.OccurredAt,
		RecordID:     in.RecordID,
		CreatedAt:    requestcontext.Now(ctx),
	}
}

// Create raises an incident unconditionally. Punch-time incidents go through
// here, inside the punch transaction.
func (s *Service) Create(ctx context.Context, in NewIncidentInput) (models.Incident, error) {
	inc := s.buildIncident(ctx, in)
	if err := s.incidents.Create(ctx, inc); err != nil {
		return models.Incident{}, dErrors.Wrap(err, dErrors.CodeInternal, "creating incident")
	}
	s.metrics.Created(string(inc.Type))
	s.logger.InfoContext(ctx, "incident created",
		"incident_id", inc.ID.String(), "type", string(inc.Type), "membership_id", inc.MembershipID.String())
	return inc, nil
}

// CreateIfAbsent raises an incident unless the member already has one of the
// guard types with an expected time at or after since. Sweep jobs use this
// as their dedup guard; overlapping runs produce at most one incident.
func (s *Service) CreateIfAbsent(ctx context.Context, in NewIncidentInput, guard []models.Type, since time.Time) (bool, error) {
	inc := s.buildIncident(ctx, in)
	inserted, err := s.incidents.CreateIfAbsent(ctx, inc, guard, since)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "creating incident")
	}
	if !inserted {
		s.metrics.Deduplicated()
		return false, nil
	}
	s.metrics.Created(string(inc.Type))
	s.logger.InfoContext(ctx, "incident created",
		"incident_id", inc.ID.String(), "type", string(inc.Type), "membership_id", inc.MembershipID.String())
	return true, nil
}

// DropPendingInLate removes pending IN_LATE incidents superseded by a
// NO_SHOW for the same expected start.
func (s *Service) DropPendingInLate(ctx context.Context, membershipID id.MembershipID, since time.Time) error {
	if _, err := s.incidents.DeletePendingSince(ctx, membershipID, models.TypeInLate, since); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "dropping superseded incidents")
	}
	return nil
}

// ListPendingOlderThan exposes lingering pending incidents of one type to the
// sweep jobs.
func (s *Service) ListPendingOlderThan(ctx context.Context, t models.Type, cutoff time.Time) ([]models.Incident, error) {
	out, err := s.incidents.ListPendingOlderThan(ctx, t, cutoff)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing pending incidents")
	}
	return out, nil
}

// List returns incidents matching the filter, always scoped to the actor's
// company. Non-admin actors only ever see their own incidents.
func (s *Service) List(ctx context.Context, f models.Filter) ([]models.Incident, error) {
	companyID := requestcontext.CompanyID(ctx)
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing authenticated actor")
	}
	f.CompanyID = companyID
	if !requestcontext.Role(ctx).IsAdmin() {
		f.UserID = requestcontext.UserID(ctx)
	}
	out, err := s.incidents.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing incidents")
	}
	return out, nil
}

// AddAdminNote attaches a manual annotation to a member's trail. Notes are
// born admitted and never enter the disciplinary flow.
func (s *Service) AddAdminNote(ctx context.Context, target NewIncidentInput, note string) (models.Incident, error) {
	if !requestcontext.Role(ctx).IsAdmin() {
		return models.Incident{}, dErrors.New(dErrors.CodeForbidden, "admin role required")
	}
	if note == "" {
		return models.Incident{}, dErrors.New(dErrors.CodeValidation, "note must not be empty")
	}
	now := requestcontext.Now(ctx)
	inc := models.Incident{
		ID:           id.NewIncidentID(),
		Type:         models.TypeAdminNote,
		Origin:       models.OriginAdmin,
		State:        models.StateAdmitted,
		Admitted:     true,
		UserID:       target.UserID,
		MembershipID: target.MembershipID,
		CompanyID:    target.CompanyID,
		BranchID:     target.BranchID,
		ExpectedAt:   now,
		OccurredAt:   now,
		Note:         note,
		CreatedAt:    now,
	}
	if err := s.incidents.Create(ctx, inc); err != nil {
		return models.Incident{}, dErrors.Wrap(err, dErrors.CodeInternal, "creating admin note")
	}
	s.metrics.Created(string(models.TypeAdminNote))
	return inc, nil
}
