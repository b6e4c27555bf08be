package record

import (
	"context"
	"sort"
	"sync"
	"time"

	"fichaje/internal/attendance/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
)

// InMemory is a map-backed record store used in tests and when the service
// runs without a database.
type InMemory struct {
	mu      sync.Mutex
	records map[id.RecordID]models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.RecordID]models.Record)}
}

func (s *InMemory) Create(_ context.Context, r models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return sentinel.ErrConflict
	}
	s.records[r.ID] = r
	return nil
}

// CreateAlternating inserts the punch only if it keeps the member's IN/OUT
// sequence alternating. The check and the insert happen under one mutex
// acquisition, so two racing punches cannot both pass the guard.
func (s *InMemory) CreateAlternating(_ context.Context, r models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return sentinel.ErrConflict
	}
	// A member with no punches is considered "out", so the first punch
	// must be an IN.
	lastType := id.RecordOut
	var lastAt time.Time
	for _, existing := range s.records {
		if existing.MembershipID != r.MembershipID {
			continue
		}
		if existing.At.After(lastAt) {
			lastAt = existing.At
			lastType = existing.Type
		}
	}
	if lastType == r.Type {
		return sentinel.ErrConflict
	}
	s.records[r.ID] = r
	return nil
}

// Last returns the member's most recent record by punch time.
func (s *InMemory) Last(_ context.Context, membershipID id.MembershipID) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		last  models.Record
		found bool
	)
	for _, r := range s.records {
		if r.MembershipID != membershipID {
			continue
		}
		if !found || r.At.After(last.At) {
			last = r
			found = true
		}
	}
	if !found {
		return models.Record{}, sentinel.ErrNotFound
	}
	return last, nil
}

func (s *InMemory) FindByID(_ context.Context, recordID id.RecordID) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	return r, nil
}

// AnyOfTypeSince reports whether the member punched the given type at or
// after the instant. The sweeps use this as their existence guard.
func (s *InMemory) AnyOfTypeSince(_ context.Context, membershipID id.MembershipID, t id.RecordType, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.MembershipID == membershipID && r.Type == t && !r.At.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// ListRecent returns up to limit records of the member, newest first.
func (s *InMemory) ListRecent(_ context.Context, membershipID id.MembershipID, limit int) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Record
	for _, r := range s.records {
		if r.MembershipID == membershipID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
