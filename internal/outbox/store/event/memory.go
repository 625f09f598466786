package event

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sportsfest/internal/outbox/models"
)

// InMemory holds outbox events for tests and single-node runs. It has no
// transaction semantics: an Append is visible immediately, which is the same
// behavior the rest of the memory stores share. The slice keeps append order
// so events created within the same clock tick still drain in the order they
// were recorded.
type InMemory struct {
	mu     sync.Mutex
	events []*models.Event
	byID   map[uuid.UUID]*models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[uuid.UUID]*models.Event)}
}

func cloneEvent(e *models.Event) *models.Event {
	cp := *e
	cp.Payload = bytes.Clone(e.Payload)
	return &cp
}

func (s *InMemory) Append(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneEvent(e)
	if existing, ok := s.byID[cp.ID]; ok {
		*existing = *cp
		return nil
	}
	s.events = append(s.events, cp)
	s.byID[cp.ID] = cp
	return nil
}

// ListUnpublished returns up to limit undelivered events, oldest first.
func (s *InMemory) ListUnpublished(_ context.Context, limit int) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Event
	for _, e := range s.events {
		if !e.Published() {
			out = append(out, cloneEvent(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkPublished stamps the events as delivered. Unknown ids are skipped.
func (s *InMemory) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, eventID := range ids {
		if e, ok := s.byID[eventID]; ok {
			e.PublishedAt = at
		}
	}
	return nil
}

func (s *InMemory) CountUnpublished(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.events {
		if !e.Published() {
			count++
		}
	}
	return count, nil
}
