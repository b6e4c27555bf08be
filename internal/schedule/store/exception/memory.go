package exception

import (
	"context"
	"sort"
	"sync"
	"time"

	"fichaje/internal/schedule/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
)

// InMemory is a map-backed exception store used in tests and when the service
// runs without a database.
type InMemory struct {
	mu         sync.Mutex
	exceptions map[id.ExceptionID]models.Exception
}

func NewInMemory() *InMemory {
	return &InMemory{exceptions: make(map[id.ExceptionID]models.Exception)}
}

func (s *InMemory) Create(_ context.Context, e models.Exception) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exceptions[e.ID]; ok {
		return sentinel.ErrConflict
	}
	s.exceptions[e.ID] = e
	return nil
}

// CreateVacationIfAbsent inserts a VACATION exception for the date unless one
// already exists. Returns true when a row was inserted. The check and insert
// hold the same lock, so concurrent calls for the same date produce one row.
func (s *InMemory) CreateVacationIfAbsent(_ context.Context, e models.Exception) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := id.DateOf(e.Date)
	for _, existing := range s.exceptions {
		if existing.ScheduleID == e.ScheduleID &&
			existing.Type == models.ExceptionVacation &&
			id.DateOf(existing.Date).Equal(day) {
			return false, nil
		}
	}
	s.exceptions[e.ID] = e
	return true, nil
}

func (s *InMemory) ListForDate(_ context.Context, scheduleID id.ScheduleID, date time.Time) ([]models.Exception, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := id.DateOf(date)
	var out []models.Exception
	for _, e := range s.exceptions {
		if e.ScheduleID == scheduleID && id.DateOf(e.Date).Equal(day) {
			out = append(out, e)
		}
	}
	sortExceptions(out)
	return out, nil
}

func (s *InMemory) ListForRange(_ context.Context, scheduleID id.ScheduleID, from, to time.Time) ([]models.Exception, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := id.DateOf(from), id.DateOf(to)
	var out []models.Exception
	for _, e := range s.exceptions {
		d := id.DateOf(e.Date)
		if e.ScheduleID == scheduleID && !d.Before(lo) && !d.After(hi) {
			out = append(out, e)
		}
	}
	sortExceptions(out)
	return out, nil
}

// DeleteVacations removes VACATION exceptions of the schedule in [from, to]
// and returns how many were removed.
func (s *InMemory) DeleteVacations(_ context.Context, scheduleID id.ScheduleID, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := id.DateOf(from), id.DateOf(to)
	removed := 0
	for eID, e := range s.exceptions {
		d := id.DateOf(e.Date)
		if e.ScheduleID == scheduleID && e.Type == models.ExceptionVacation && !d.Before(lo) && !d.After(hi) {
			delete(s.exceptions, eID)
			removed++
		}
	}
	return removed, nil
}

func sortExceptions(exceptions []models.Exception) {
	sort.Slice(exceptions, func(i, j int) bool {
		if !exceptions[i].Date.Equal(exceptions[j].Date) {
			return exceptions[i].Date.Before(exceptions[j].Date)
		}
		return exceptions[i].CreatedAt.Before(exceptions[j].CreatedAt)
	})
}
