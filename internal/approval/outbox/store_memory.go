package outbox

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemory keeps entries in insertion order.
type InMemory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *InMemory) FetchUnpublished(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.PublishedAt == nil {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemory) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].PublishedAt == nil && slices.Contains(ids, s.entries[i].ID) {
			t := at
			s.entries[i].PublishedAt = &t
		}
	}
	return nil
}

// Entries returns a copy of every stored entry.
func (s *InMemory) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Len is used by the in-memory transaction runner to truncate on rollback.
func (s *InMemory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Truncate drops entries appended after position n.
func (s *InMemory) Truncate(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < len(s.entries) {
		s.entries = s.entries[:n]
	}
}
