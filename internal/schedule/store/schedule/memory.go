package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"fichaje/internal/schedule/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
)

// InMemory is a map-backed schedule store used in tests and when the service
// runs without a database.
type InMemory struct {
	mu        sync.RWMutex
	schedules map[id.ScheduleID]models.Schedule
}

func NewInMemory() *InMemory {
	return &InMemory{schedules: make(map[id.ScheduleID]models.Schedule)}
}

func (s *InMemory) Create(_ context.Context, sch models.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[sch.ID]; ok {
		return sentinel.ErrConflict
	}
	s.schedules[sch.ID] = sch
	return nil
}

func (s *InMemory) FindByID(_ context.Context, scheduleID id.ScheduleID) (models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sch, ok := s.schedules[scheduleID]
	if !ok {
		return models.Schedule{}, sentinel.ErrNotFound
	}
	return sch, nil
}

// FindActiveForDate returns the member's active schedule whose validity
// window covers the date.
func (s *InMemory) FindActiveForDate(_ context.Context, membershipID id.MembershipID, date time.Time) (models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sch := range s.schedules {
		if sch.MembershipID == membershipID && sch.Status == models.ScheduleActive && sch.ContainsDate(date) {
			return sch, nil
		}
	}
	return models.Schedule{}, sentinel.ErrNotFound
}

// ListActiveAt returns every active schedule in the company whose validity
// covers the instant. The nightly jobs walk this list.
func (s *InMemory) ListActiveAt(_ context.Context, at time.Time) ([]models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Schedule
	for _, sch := range s.schedules {
		if sch.Status == models.ScheduleActive && sch.ContainsDate(at) {
			out = append(out, sch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListByMembership(_ context.Context, membershipID id.MembershipID) ([]models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Schedule
	for _, sch := range s.schedules {
		if sch.MembershipID == membershipID {
			out = append(out, sch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Confirm activates a draft and closes every other active schedule of the
// same member in one step. Closing stamps ValidTo with the confirmation
// instant so resolution before that instant keeps using the old schedule.
func (s *InMemory) Confirm(_ context.Context, scheduleID id.ScheduleID, now time.Time) (models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sch, ok := s.schedules[scheduleID]
	if !ok {
		return models.Schedule{}, sentinel.ErrNotFound
	}
	if sch.Status != models.ScheduleDraft {
		return models.Schedule{}, sentinel.ErrInvalidState
	}

	for otherID, other := range s.schedules {
		if otherID == scheduleID || other.MembershipID != sch.MembershipID {
			continue
		}
		if other.Status == models.ScheduleActive {
			closedAt := now
			other.Status = models.ScheduleClosed
			other.ValidTo = &closedAt
			s.schedules[otherID] = other
		}
	}

	sch.Status = models.ScheduleActive
	s.schedules[scheduleID] = sch
	return sch, nil
}
