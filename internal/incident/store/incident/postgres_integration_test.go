//go:build integration

package incident_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fichaje/internal/incident/models"
	"fichaje/internal/incident/store/incident"
	id "fichaje/pkg/domain"
	"fichaje/pkg/testutil"
	"fichaje/pkg/testutil/containers"
)

type PostgresIncidentStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *incident.PostgresStore
}

func TestPostgresIncidentStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresIncidentStoreSuite))
}

func (s *PostgresIncidentStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = incident.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresIncidentStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "incidents"))
}

func (s *PostgresIncidentStoreSuite) incident(membershipID id.MembershipID) models.Incident {
	expectedAt := testutil.MustTime("2026-03-10T09:00:00Z")
	return models.Incident{
		ID:           id.NewIncidentID(),
		Type:         models.TypeForgotIn,
		Origin:       models.OriginSystem,
		State:        models.StatePending,
		UserID:       id.NewUserID(),
		MembershipID: membershipID,
		CompanyID:    id.NewCompanyID(),
		BranchID:     id.NewBranchID(),
		ExpectedAt:   expectedAt,
		OccurredAt:   expectedAt.Add(16 * time.Minute),
		CreatedAt:    expectedAt.Add(16 * time.Minute),
	}
}

// TestConcurrentCreateIfAbsent verifies that racing sweep ticks insert exactly
// one incident for the same membership and window.
func (s *PostgresIncidentStoreSuite) TestConcurrentCreateIfAbsent() {
	ctx := context.Background()
	membershipID := id.NewMembershipID()
	guard := []models.Type{models.TypeForgotIn, models.TypeInLate, models.TypeNoShow}
	since := testutil.MustTime("2026-03-10T09:00:00Z")

	const goroutines = 50
	var wg sync.WaitGroup
	var insertedCount atomic.Int32

	for range goroutines {
		wg.Go(func() {
			inserted, err := s.store.CreateIfAbsent(ctx, s.incident(membershipID), guard, since)
			s.Require().NoError(err)
			if inserted {
				insertedCount.Add(1)
			}
		})
	}
	wg.Wait()

	s.Equal(int32(1), insertedCount.Load())

	out, err := s.store.List(ctx, models.Filter{MembershipID: membershipID})
	s.Require().NoError(err)
	s.Len(out, 1)
}

func (s *PostgresIncidentStoreSuite) TestCreateIfAbsentWindowing() {
	ctx := context.Background()
	membershipID := id.NewMembershipID()
	guard := []models.Type{models.TypeForgotIn}
	since := testutil.MustTime("2026-03-10T09:00:00Z")

	inserted, err := s.store.CreateIfAbsent(ctx, s.incident(membershipID), guard, since)
	s.Require().NoError(err)
	s.True(inserted)

	s.Run("same window suppressed", func() {
		inserted, err := s.store.CreateIfAbsent(ctx, s.incident(membershipID), guard, since)
		s.Require().NoError(err)
		s.False(inserted)
	})

	s.Run("next day inserts again", func() {
		next := s.incident(membershipID)
		next.ExpectedAt = since.Add(24 * time.Hour)
		next.OccurredAt = next.ExpectedAt.Add(16 * time.Minute)
		inserted, err := s.store.CreateIfAbsent(ctx, next, guard, since.Add(24*time.Hour))
		s.Require().NoError(err)
		s.True(inserted)
	})
}

func (s *PostgresIncidentStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	inc := s.incident(id.NewMembershipID())
	s.Require().NoError(s.store.Create(ctx, inc))

	inc.State = models.StateAdmitted
	inc.Admitted = true
	inc.Note = "reviewed"
	s.Require().NoError(s.store.Update(ctx, inc))

	got, err := s.store.FindByID(ctx, inc.ID)
	s.Require().NoError(err)
	s.Equal(models.StateAdmitted, got.State)
	s.True(got.Admitted)
	s.Equal("reviewed", got.Note)

	s.Require().NoError(s.store.Delete(ctx, inc.ID))
	_, err = s.store.FindByID(ctx, inc.ID)
	s.Error(err)
}
