package policy

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"acadmin/internal/approval/models"
	"acadmin/pkg/platform/sentinel"
)

// InMemory is the policy store used by tests and single-process runs.
type InMemory struct {
	mu          sync.RWMutex
	rules       map[models.ActionKey]models.RuleConfig
	assignments []*models.ApproverAssignment
	nextID      int64
}

func NewInMemory() *InMemory {
	return &InMemory{rules: make(map[models.ActionKey]models.RuleConfig)}
}

func (s *InMemory) FindRuleConfig(_ context.Context, key models.ActionKey) (*models.RuleConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.rules[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &cfg, nil
}

func (s *InMemory) ListRuleConfigs(_ context.Context) ([]*models.RuleConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.RuleConfig, 0, len(s.rules))
	for _, cfg := range s.rules {
		c := cfg
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.RuleConfig) int {
		return strings.Compare(a.Key().String(), b.Key().String())
	})
	return out, nil
}

func (s *InMemory) UpsertRuleConfig(_ context.Context, cfg *models.RuleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[cfg.Key()] = *cfg
	return nil
}

func (s *InMemory) InsertRuleConfigIfAbsent(_ context.Context, cfg *models.RuleConfig) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[cfg.Key()]; ok {
		return false, nil
	}
	s.rules[cfg.Key()] = *cfg
	return true, nil
}

func (s *InMemory) ListActiveAssignments(_ context.Context, key models.ActionKey) ([]*models.ApproverAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ApproverAssignment
	for _, a := range s.assignments {
		if a.IsActive && a.ObjectType == key.ObjectType && a.Action == key.Action {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

// ListAssignments returns assignments matching the filter, newest first.
func (s *InMemory) ListAssignments(_ context.Context, f AssignmentFilter) ([]*models.ApproverAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ApproverAssignment
	for i := len(s.assignments) - 1; i >= 0; i-- {
		a := s.assignments[i]
		if f.matches(a) {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

// SaveAssignment inserts a, or reactivates the row with the same tuple.
func (s *InMemory) SaveAssignment(_ context.Context, a *models.ApproverAssignment) (*models.ApproverAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.assignments {
		if sameTuple(existing, a) {
			existing.IsActive = true
			existing.AssignedBy = a.AssignedBy
			existing.AssignedAt = a.AssignedAt
			existing.DeactivatedBy = ""
			existing.DeactivatedAt = nil
			c := *existing
			return &c, nil
		}
	}
	s.nextID++
	stored := *a
	stored.ID = s.nextID
	s.assignments = append(s.assignments, &stored)
	c := stored
	return &c, nil
}

func (s *InMemory) FindAssignment(_ context.Context, id int64) (*models.ApproverAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assignments {
		if a.ID == id {
			c := *a
			return &c, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// DeactivateAssignment marks an active assignment inactive.
func (s *InMemory) DeactivateAssignment(_ context.Context, id int64, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.ID != id {
			continue
		}
		if !a.IsActive {
			return sentinel.ErrInvalidState
		}
		a.IsActive = false
		a.DeactivatedBy = by
		a.DeactivatedAt = &at
		return nil
	}
	return sentinel.ErrNotFound
}

func sameTuple(a, b *models.ApproverAssignment) bool {
	return a.ObjectType == b.ObjectType &&
		a.Action == b.Action &&
		a.ApproverEmail == b.ApproverEmail &&
		strings.EqualFold(a.Scope.Degree, b.Scope.Degree) &&
		strings.EqualFold(a.Scope.Program, b.Scope.Program) &&
		strings.EqualFold(a.Scope.Branch, b.Scope.Branch)
}
