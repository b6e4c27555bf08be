package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"fichaje/internal/tenant/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
)

type InMemoryMembershipStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryMembershipStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryMembershipStoreSuite))
}

func (s *InMemoryMembershipStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryMembershipStoreSuite) membership() models.Membership {
	return models.Membership{
		ID:        id.NewMembershipID(),
		UserID:    id.NewUserID(),
		CompanyID: id.NewCompanyID(),
		BranchID:  id.NewBranchID(),
		Role:      id.RoleEmpleado,
		Active:    true,
	}
}

func (s *InMemoryMembershipStoreSuite) TestCreate() {
	m := s.membership()
	s.Require().NoError(s.store.Create(s.ctx, m))

	s.Run("duplicate active triple conflicts", func() {
		dup := s.membership()
		dup.UserID, dup.CompanyID, dup.BranchID = m.UserID, m.CompanyID, m.BranchID
		s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("an inactive copy of the triple is allowed", func() {
		old := s.membership()
		old.UserID, old.CompanyID, old.BranchID = m.UserID, m.CompanyID, m.BranchID
		old.Active = false
		s.NoError(s.store.Create(s.ctx, old))
	})
}

func (s *InMemoryMembershipStoreSuite) TestFindActiveByUser() {
	m := s.membership()
	s.Require().NoError(s.store.Create(s.ctx, m))

	inactive := s.membership()
	inactive.Active = false
	s.Require().NoError(s.store.Create(s.ctx, inactive))

	got, err := s.store.FindActiveByUser(s.ctx, m.UserID, m.CompanyID)
	s.Require().NoError(err)
	s.Equal(m.ID, got.ID)

	_, err = s.store.FindActiveByUser(s.ctx, inactive.UserID, inactive.CompanyID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryMembershipStoreSuite) TestListActiveByBranch() {
	first := s.membership()
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.membership()
	second.CompanyID, second.BranchID = first.CompanyID, first.BranchID
	s.Require().NoError(s.store.Create(s.ctx, second))

	dropped := s.membership()
	dropped.CompanyID, dropped.BranchID = first.CompanyID, first.BranchID
	dropped.Active = false
	s.Require().NoError(s.store.Create(s.ctx, dropped))

	out, err := s.store.ListActiveByBranch(s.ctx, first.CompanyID, first.BranchID)
	s.Require().NoError(err)
	s.Len(out, 2)
}
