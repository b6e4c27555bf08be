package service

import (
	"context"
	"errors"
	"log/slog"

	"fichaje/internal/tenant/models"
	id "fichaje/pkg/domain"
	dErrors "fichaje/pkg/domain-errors"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/requestcontext"
)

// MembershipStore is the persistence surface the tenant service needs.
type MembershipStore interface {
	Create(ctx context.Context, m models.Membership) error
	FindByID(ctx context.Context, membershipID id.MembershipID) (models.Membership, error)
	FindActive(ctx context.Context, userID id.UserID, companyID id.CompanyID, branchID id.BranchID) (models.Membership, error)
	FindActiveByUser(ctx context.Context, userID id.UserID, companyID id.CompanyID) (models.Membership, error)
	ListActiveByBranch(ctx context.Context, companyID id.CompanyID, branchID id.BranchID) ([]models.Membership, error)
}

type Service struct {
	store  MembershipStore
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(store MembershipStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveActor returns the active membership of the authenticated user within
// the company carried by the request token. All attendance operations resolve
// through here, so a revoked membership cuts access everywhere at once.
func (s *Service) ResolveActor(ctx context.Context) (models.Membership, error) {
	userID := requestcontext.UserID(ctx)
	companyID := requestcontext.CompanyID(ctx)
	if userID.IsNil() || companyID.IsNil() {
		return models.Membership{}, dErrors.New(dErrors.CodeUnauthorized, "missing authenticated actor")
	}

	m, err := s.store.FindActiveByUser(ctx, userID, companyID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Membership{}, dErrors.New(dErrors.CodeForbidden, "no active membership for user in company")
	}
	if err != nil {
		return models.Membership{}, dErrors.Wrap(err, dErrors.CodeInternal, "resolving membership")
	}
	return m, nil
}

// ResolveMember loads a membership by id and verifies it belongs to the
// actor's company. Admins operate on other members only inside their own
// tenant; anything else resolves to not-found rather than leaking existence.
func (s *Service) ResolveMember(ctx context.Context, membershipID id.MembershipID) (models.Membership, error) {
	companyID := requestcontext.CompanyID(ctx)
	if companyID.IsNil() {
		return models.Membership{}, dErrors.New(dErrors.CodeUnauthorized, "missing authenticated actor")
	}

	m, err := s.store.FindByID(ctx, membershipID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Membership{}, dErrors.New(dErrors.CodeNotFound, "membership not found")
	}
	if err != nil {
		return models.Membership{}, dErrors.Wrap(err, dErrors.CodeInternal, "loading membership")
	}
	if m.CompanyID != companyID {
		return models.Membership{}, dErrors.New(dErrors.CodeNotFound, "membership not found")
	}
	if !m.Active {
		return models.Membership{}, dErrors.New(dErrors.CodeForbidden, "membership is inactive")
	}
	return m, nil
}

// RequireAdmin resolves the actor and rejects the request unless the actor
// holds at least branch admin rank.
func (s *Service) RequireAdmin(ctx context.Context) (models.Membership, error) {
	m, err := s.ResolveActor(ctx)
	if err != nil {
		return models.Membership{}, err
	}
	if !m.Role.IsAdmin() {
		return models.Membership{}, dErrors.New(dErrors.CodeForbidden, "admin role required")
	}
	return m, nil
}

// ListBranchMembers returns the active memberships of a branch inside a
// company. Used by the nightly jobs and by admin listings.
func (s *Service) ListBranchMembers(ctx context.Context, companyID id.CompanyID, branchID id.BranchID) ([]models.Membership, error) {
	members, err := s.store.ListActiveByBranch(ctx, companyID, branchID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing branch members")
	}
	return members, nil
}
