package category

import (
	"context"
	"sort"
	"strings"
	"sync"

	"sportsfest/internal/sport/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded category store for tests and single-node runs.
type InMemory struct {
	mu         sync.RWMutex
	categories map[id.CategoryID]*models.Category
}

func NewInMemory() *InMemory {
	return &InMemory{categories: make(map[id.CategoryID]*models.Category)}
}

// Create inserts the category unless the sport already has one with the same
// name (case-insensitive).
func (s *InMemory) Create(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lower := strings.ToLower(category.Name)
	for _, existing := range s.categories {
		if existing.SportID == category.SportID && strings.ToLower(existing.Name) == lower {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *category
	s.categories[category.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, categoryID id.CategoryID) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[categoryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *category
	return &cp, nil
}

// ListBySport returns the sport's categories ordered by name.
func (s *InMemory) ListBySport(_ context.Context, sportID id.SportID) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Category
	for _, category := range s.categories {
		if category.SportID == sportID {
			cp := *category
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[category.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *category
	s.categories[category.ID] = &cp
	return nil
}

// Execute runs validate and mutate against the stored category while holding
// the store lock, so no concurrent mutation can interleave between them.
func (s *InMemory) Execute(_ context.Context, categoryID id.CategoryID, validate func(*models.Category) error, mutate func(*models.Category)) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[categoryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(category); err != nil {
		return nil, err
	}
	mutate(category)
	cp := *category
	return &cp, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.categories), nil
}
