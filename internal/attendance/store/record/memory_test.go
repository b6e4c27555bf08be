package record

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fichaje/internal/attendance/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
	"fichaje/pkg/testutil"
)

type InMemoryRecordStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context

	membershipID id.MembershipID
	base         time.Time
}

func TestInMemoryRecordStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryRecordStoreSuite))
}

func (s *InMemoryRecordStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.membershipID = id.NewMembershipID()
	s.base = testutil.MustTime("2026-03-10T09:00:00Z")
}

func (s *InMemoryRecordStoreSuite) record(t id.RecordType, at time.Time) models.Record {
	return models.Record{
		ID:           id.NewRecordID(),
		Type:         t,
		UserID:       id.NewUserID(),
		MembershipID: s.membershipID,
		CompanyID:    id.NewCompanyID(),
		BranchID:     id.NewBranchID(),
		At:           at,
	}
}

func (s *InMemoryRecordStoreSuite) TestCreateAlternating() {
	s.Run("an OUT with no open IN is rejected", func() {
		err := s.store.CreateAlternating(s.ctx, s.record(id.RecordOut, s.base))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("the first IN lands", func() {
		s.NoError(s.store.CreateAlternating(s.ctx, s.record(id.RecordIn, s.base)))
	})

	s.Run("a second consecutive IN is rejected", func() {
		err := s.store.CreateAlternating(s.ctx, s.record(id.RecordIn, s.base.Add(time.Minute)))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("an OUT closes the interval", func() {
		s.NoError(s.store.CreateAlternating(s.ctx, s.record(id.RecordOut, s.base.Add(2*time.Minute))))
	})

	s.Run("another member keeps an independent sequence", func() {
		other := s.record(id.RecordIn, s.base)
		other.MembershipID = id.NewMembershipID()
		s.NoError(s.store.CreateAlternating(s.ctx, other))
	})
}

func (s *InMemoryRecordStoreSuite) TestConcurrentCreateAlternating() {
	var wg sync.WaitGroup
	var landed atomic.Int32

	for range 50 {
		wg.Go(func() {
			if err := s.store.CreateAlternating(s.ctx, s.record(id.RecordIn, s.base)); err == nil {
				landed.Add(1)
			}
		})
	}

	wg.Wait()
	s.Equal(int32(1), landed.Load(), "racing punches must not both pass the guard")

	out, err := s.store.ListRecent(s.ctx, s.membershipID, 10)
	s.Require().NoError(err)
	s.Len(out, 1)
}
