package shift

import (
	"context"
	"sort"
	"sync"
	"time"

	"fichaje/internal/schedule/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
)

// InMemory is a map-backed shift store used in tests and when the service
// runs without a database.
type InMemory struct {
	mu     sync.RWMutex
	shifts map[id.ShiftID]models.Shift
}

func NewInMemory() *InMemory {
	return &InMemory{shifts: make(map[id.ShiftID]models.Shift)}
}

func (s *InMemory) Create(_ context.Context, sh models.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shifts[sh.ID]; ok {
		return sentinel.ErrConflict
	}
	s.shifts[sh.ID] = sh
	return nil
}

func (s *InMemory) FindByID(_ context.Context, shiftID id.ShiftID) (models.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shifts[shiftID]
	if !ok {
		return models.Shift{}, sentinel.ErrNotFound
	}
	return sh, nil
}

func (s *InMemory) ListBySchedule(_ context.Context, scheduleID id.ScheduleID) ([]models.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Shift
	for _, sh := range s.shifts {
		if sh.ScheduleID == scheduleID {
			out = append(out, sh)
		}
	}
	sortShifts(out)
	return out, nil
}

func (s *InMemory) ListByScheduleWeekday(_ context.Context, scheduleID id.ScheduleID, weekday id.Weekday) ([]models.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Shift
	for _, sh := range s.shifts {
		if sh.ScheduleID == scheduleID && sh.Weekday == weekday {
			out = append(out, sh)
		}
	}
	sortShifts(out)
	return out, nil
}

// CloseValidity caps the shift's validity at the given date. Used by forward
// deletions; past dates keep resolving the block.
func (s *InMemory) CloseValidity(_ context.Context, shiftID id.ShiftID, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shifts[shiftID]
	if !ok {
		return sentinel.ErrNotFound
	}
	capped := id.DateOf(until)
	sh.ValidTo = &capped
	s.shifts[shiftID] = sh
	return nil
}

func sortShifts(shifts []models.Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		if shifts[i].Weekday != shifts[j].Weekday {
			return shifts[i].Weekday < shifts[j].Weekday
		}
		return shifts[i].Start.Before(shifts[j].Start)
	})
}
