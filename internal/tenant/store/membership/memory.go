package membership

import (
	"context"
	"sync"

	"fichaje/internal/tenant/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
)

// InMemory is a map-backed membership store used in tests and when the
// service runs without a database.
type InMemory struct {
	mu          sync.RWMutex
	memberships map[id.MembershipID]models.Membership
}

func NewInMemory() *InMemory {
	return &InMemory{memberships: make(map[id.MembershipID]models.Membership)}
}

func (s *InMemory) Create(_ context.Context, m models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memberships[m.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.memberships {
		if existing.Active && m.Active &&
			existing.UserID == m.UserID &&
			existing.CompanyID == m.CompanyID &&
			existing.BranchID == m.BranchID {
			return sentinel.ErrConflict
		}
	}
	s.memberships[m.ID] = m
	return nil
}

func (s *InMemory) FindByID(_ context.Context, membershipID id.MembershipID) (models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[membershipID]
	if !ok {
		return models.Membership{}, sentinel.ErrNotFound
	}
	return m, nil
}

func (s *InMemory) FindActive(_ context.Context, userID id.UserID, companyID id.CompanyID, branchID id.BranchID) (models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberships {
		if m.Active && m.UserID == userID && m.CompanyID == companyID && m.BranchID == branchID {
			return m, nil
		}
	}
	return models.Membership{}, sentinel.ErrNotFound
}

func (s *InMemory) FindActiveByUser(_ context.Context, userID id.UserID, companyID id.CompanyID) (models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberships {
		if m.Active && m.UserID == userID && m.CompanyID == companyID {
			return m, nil
		}
	}
	return models.Membership{}, sentinel.ErrNotFound
}

func (s *InMemory) ListActiveByBranch(_ context.Context, companyID id.CompanyID, branchID id.BranchID) ([]models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Membership, 0)
	for _, m := range s.memberships {
		if m.Active && m.CompanyID == companyID && m.BranchID == branchID {
			out = append(out, m)
		}
	}
	return out, nil
}
