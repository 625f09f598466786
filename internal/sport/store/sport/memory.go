package sport

import (
	"context"
	"sort"
	"strings"
	"sync"

	"sportsfest/internal/sport/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded sport store for tests and single-node runs.
type InMemory struct {
	mu     sync.RWMutex
	sports map[id.SportID]*models.Sport
}

func NewInMemory() *InMemory {
	return &InMemory{sports: make(map[id.SportID]*models.Sport)}
}

// CreateIfNameAvailable inserts the sport unless another sport already holds
// the name (case-insensitive).
func (s *InMemory) CreateIfNameAvailable(_ context.Context, sport *models.Sport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lower := strings.ToLower(sport.Name)
	for _, existing := range s.sports {
		if strings.ToLower(existing.Name) == lower {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *sport
	s.sports[sport.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, sportID id.SportID) (*models.Sport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sport, ok := s.sports[sportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sport
	return &cp, nil
}

// List returns all sports ordered by name.
func (s *InMemory) List(_ context.Context) ([]*models.Sport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Sport, 0, len(s.sports))
	for _, sport := range s.sports {
		cp := *sport
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, sport *models.Sport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sports[sport.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *sport
	s.sports[sport.ID] = &cp
	return nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sports), nil
}
