package incident

import (
	"context"
	"sort"
	"sync"
	"time"

	"fichaje/internal/incident/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/platform/sentinel"
)

// InMemory is a map-backed incident store used in tests and when the service
// runs without a database. A single mutex covers the check-then-create
// sequence, which is what makes CreateIfAbsent safe under concurrent sweeps.
type InMemory struct {
	mu        sync.Mutex
	incidents map[id.IncidentID]models.Incident
}

func NewInMemory() *InMemory {
	return &InMemory{incidents: make(map[id.IncidentID]models.Incident)}
}

func (s *InMemory) Create(_ context.Context, inc models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[inc.ID]; ok {
		return sentinel.ErrConflict
	}
	s.incidents[inc.ID] = inc
	return nil
}

// CreateIfAbsent inserts the incident unless the member already has one of
// the guard types with expected_at at or after since. Returns true when a
// row was inserted.
func (s *InMemory) CreateIfAbsent(_ context.Context, inc models.Incident, guard []models.Type, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.incidents {
		if existing.MembershipID != inc.MembershipID {
			continue
		}
		for _, t := range guard {
			if existing.Type == t && !existing.ExpectedAt.Before(since) {
				return false, nil
			}
		}
	}
	s.incidents[inc.ID] = inc
	return true, nil
}

func (s *InMemory) FindByID(_ context.Context, incidentID id.IncidentID) (models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[incidentID]
	if !ok {
		return models.Incident{}, sentinel.ErrNotFound
	}
	return inc, nil
}

// List returns matching incidents newest first.
func (s *InMemory) List(_ context.Context, f models.Filter) ([]models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Incident
	for _, inc := range s.incidents {
		if matches(inc, f) {
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

// ListPendingOlderThan returns pending incidents of the type whose
// expected_at is at or before the cutoff. The forgot-out sweep scans
// lingering OUT_LATEs with this.
func (s *InMemory) ListPendingOlderThan(_ context.Context, t models.Type, cutoff time.Time) ([]models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Incident
	for _, inc := range s.incidents {
		if inc.Type == t && inc.State == models.StatePending && !inc.ExpectedAt.After(cutoff) {
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

// DeletePendingSince removes the member's pending incidents of the type with
// expected_at at or after since, returning how many went away.
func (s *InMemory) DeletePendingSince(_ context.Context, membershipID id.MembershipID, t models.Type, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for incID, inc := range s.incidents {
		if inc.MembershipID == membershipID && inc.Type == t &&
			inc.State == models.StatePending && !inc.ExpectedAt.Before(since) {
			delete(s.incidents, incID)
			removed++
		}
	}
	return removed, nil
}

// Update writes the mutable fields, matching what the SQL store touches.
func (s *InMemory) Update(_ context.Context, inc models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.incidents[inc.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	current.State = inc.State
	current.Admitted = inc.Admitted
	current.Note = inc.Note
	s.incidents[inc.ID] = current
	return nil
}

func (s *InMemory) Delete(_ context.Context, incidentID id.IncidentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[incidentID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.incidents, incidentID)
	return nil
}

func matches(inc models.Incident, f models.Filter) bool {
	if !f.CompanyID.IsNil() && inc.CompanyID != f.CompanyID {
		return false
	}
	if !f.BranchID.IsNil() && inc.BranchID != f.BranchID {
		return false
	}
	if !f.UserID.IsNil() && inc.UserID != f.UserID {
		return false
	}
	if !f.MembershipID.IsNil() && inc.MembershipID != f.MembershipID {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if inc.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && inc.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && inc.OccurredAt.After(f.To) {
		return false
	}
	if f.PendingOnly && inc.State != models.StatePending {
		return false
	}
	return true
}
