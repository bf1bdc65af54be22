// Package request persists approval requests and their votes.
package request

import (
	"context"
	"slices"
	"sync"

	"acadmin/internal/approval/models"
	"acadmin/pkg/platform/sentinel"
)

// InMemory mirrors the Postgres store for tests. Snapshot/Restore let an
// in-memory transaction runner undo a failed unit of work.
type InMemory struct {
	mu       sync.RWMutex
	requests map[int64]*models.ApprovalRequest
	votes    []*models.ApprovalVote
	nextID   int64
	nextVote int64
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[int64]*models.ApprovalRequest)}
}

func (s *InMemory) Create(_ context.Context, r *models.ApprovalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	s.requests[r.ID] = r.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*models.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

// FindForUpdate has no locking of its own; the in-memory runner serialises units of work.
func (s *InMemory) FindForUpdate(ctx context.Context, id int64) (*models.ApprovalRequest, error) {
	return s.FindByID(ctx, id)
}

func (s *InMemory) UpdateStatus(_ context.Context, r *models.ApprovalRequest, from models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != from {
		return sentinel.ErrInvalidState
	}
	s.requests[r.ID] = r.Clone()
	return nil
}

// ListByStatus returns requests in any of statuses, newest first.
func (s *InMemory) ListByStatus(_ context.Context, statuses []models.Status) ([]*models.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ApprovalRequest, 0)
	for _, r := range s.requests {
		if slices.Contains(statuses, r.Status) {
			out = append(out, r.Clone())
		}
	}
	slices.SortFunc(out, newestFirst)
	return out, nil
}

func newestFirst(a, b *models.ApprovalRequest) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}

func (s *InMemory) InsertVote(_ context.Context, v *models.ApprovalVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[v.ApprovalID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.votes {
		if existing.ApprovalID == v.ApprovalID && existing.VoterEmail == v.VoterEmail {
			return sentinel.ErrConflict
		}
	}
	s.nextVote++
	v.ID = s.nextVote
	stored := *v
	s.votes = append(s.votes, &stored)
	return nil
}

// ListVotes returns votes in insertion order.
func (s *InMemory) ListVotes(_ context.Context, approvalID int64) ([]models.ApprovalVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ApprovalVote
	for _, v := range s.votes {
		if v.ApprovalID == approvalID {
			out = append(out, *v)
		}
	}
	return out, nil
}

// Snapshot captures the store state.
type Snapshot struct {
	requests map[int64]*models.ApprovalRequest
	votes    []*models.ApprovalVote
	nextID   int64
	nextVote int64
}

func (s *InMemory) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		requests: make(map[int64]*models.ApprovalRequest, len(s.requests)),
		votes:    make([]*models.ApprovalVote, len(s.votes)),
		nextID:   s.nextID,
		nextVote: s.nextVote,
	}
	for id, r := range s.requests {
		snap.requests[id] = r.Clone()
	}
	for i, v := range s.votes {
		c := *v
		snap.votes[i] = &c
	}
	return snap
}

func (s *InMemory) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = snap.requests
	s.votes = snap.votes
	s.nextID = snap.nextID
	s.nextVote = snap.nextVote
}
