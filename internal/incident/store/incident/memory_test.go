package incident

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fichaje/internal/incident/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/testutil"
)

type InMemoryIncidentStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context

	membershipID id.MembershipID
	expectedAt   time.Time
}

func TestInMemoryIncidentStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryIncidentStoreSuite))
}

func (s *InMemoryIncidentStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.membershipID = id.NewMembershipID()
	s.expectedAt = testutil.MustTime("2026-03-10T09:00:00Z")
}

func (s *InMemoryIncidentStoreSuite) incident(t models.Type) models.Incident {
	return models.Incident{
		ID:           id.NewIncidentID(),
		Type:         t,
		Origin:       models.OriginSystem,
		State:        models.StatePending,
		UserID:       id.NewUserID(),
		MembershipID: s.membershipID,
		CompanyID:    id.NewCompanyID(),
		BranchID:     id.NewBranchID(),
		ExpectedAt:   s.expectedAt,
		OccurredAt:   s.expectedAt.Add(16 * time.Minute),
		CreatedAt:    s.expectedAt.Add(16 * time.Minute),
	}
}

func (s *InMemoryIncidentStoreSuite) TestCreateIfAbsent() {
	guard := []models.Type{models.TypeForgotIn, models.TypeInLate}

	s.Run("first insert wins", func() {
		inserted, err := s.store.CreateIfAbsent(s.ctx, s.incident(models.TypeForgotIn), guard, s.expectedAt)
		s.Require().NoError(err)
		s.True(inserted)
	})

	s.Run("a guarded type within the window suppresses the second", func() {
		inserted, err := s.store.CreateIfAbsent(s.ctx, s.incident(models.TypeForgotIn), guard, s.expectedAt)
		s.Require().NoError(err)
		s.False(inserted)
	})

	s.Run("another member is unaffected", func() {
		other := s.incident(models.TypeForgotIn)
		other.MembershipID = id.NewMembershipID()
		inserted, err := s.store.CreateIfAbsent(s.ctx, other, guard, s.expectedAt)
		s.Require().NoError(err)
		s.True(inserted)
	})

	s.Run("an older occurrence outside the window does not suppress", func() {
		inserted, err := s.store.CreateIfAbsent(s.ctx, s.incident(models.TypeForgotIn), guard, s.expectedAt.Add(time.Minute))
		s.Require().NoError(err)
		s.True(inserted)
	})
}

func (s *InMemoryIncidentStoreSuite) TestConcurrentCreateIfAbsent() {
	guard := []models.Type{models.TypeForgotIn}
	var wg sync.WaitGroup
	var insertedCount atomic.Int32

	for range 50 {
		wg.Go(func() {
			inserted, err := s.store.CreateIfAbsent(s.ctx, s.incident(models.TypeForgotIn), guard, s.expectedAt)
			s.Require().NoError(err)
			if inserted {
				insertedCount.Add(1)
			}
		})
	}

	wg.Wait()
	s.Equal(int32(1), insertedCount.Load())
}

func (s *InMemoryIncidentStoreSuite) TestDeletePendingSince() {
	first := s.incident(models.TypeInLate)
	second := s.incident(models.TypeInLate)
	second.ExpectedAt = s.expectedAt.Add(-24 * time.Hour)
	admitted := s.incident(models.TypeInLate)
	admitted.State = models.StateAdmitted

	for _, inc := range []models.Incident{first, second, admitted} {
		s.Require().NoError(s.store.Create(s.ctx, inc))
	}

	removed, err := s.store.DeletePendingSince(s.ctx, s.membershipID, models.TypeInLate, s.expectedAt)
	s.Require().NoError(err)
	s.Equal(1, removed, "only the pending incident inside the window goes away")

	_, err = s.store.FindByID(s.ctx, first.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(s.ctx, admitted.ID)
	s.NoError(err, "settled incidents are never dropped")
}

func (s *InMemoryIncidentStoreSuite) TestListFilters() {
	late := s.incident(models.TypeInLate)
	noShow := s.incident(models.TypeNoShow)
	noShow.State = models.StateAdmitted
	noShow.OccurredAt = s.expectedAt.Add(30 * time.Minute)
	s.Require().NoError(s.store.Create(s.ctx, late))
	s.Require().NoError(s.store.Create(s.ctx, noShow))

	s.Run("newest first", func() {
		out, err := s.store.List(s.ctx, models.Filter{})
		s.Require().NoError(err)
		s.Require().Len(out, 2)
		s.Equal(noShow.ID, out[0].ID)
	})

	s.Run("by type", func() {
		out, err := s.store.List(s.ctx, models.Filter{Types: []models.Type{models.TypeNoShow}})
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		s.Equal(noShow.ID, out[0].ID)
	})

	s.Run("pending only", func() {
		out, err := s.store.List(s.ctx, models.Filter{PendingOnly: true})
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		s.Equal(late.ID, out[0].ID)
	})

	s.Run("by time window", func() {
		out, err := s.store.List(s.ctx, models.Filter{From: s.expectedAt.Add(time.Hour)})
		s.Require().NoError(err)
		s.Empty(out)
	})
}

func (s *InMemoryIncidentStoreSuite) TestUpdateTouchesStateOnly() {
	inc := s.incident(models.TypeOutLate)
	s.Require().NoError(s.store.Create(s.ctx, inc))

	changed := inc
	changed.State = models.StateAdmitted
	changed.Admitted = true
	changed.Note = "late delivery run"
	changed.Type = models.TypeNoShow // must not stick
	s.Require().NoError(s.store.Update(s.ctx, changed))

	got, err := s.store.FindByID(s.ctx, inc.ID)
	s.Require().NoError(err)
	s.Equal(models.StateAdmitted, got.State)
	s.True(got.Admitted)
	s.Equal("late delivery run", got.Note)
	s.Equal(models.TypeOutLate, got.Type)
}
