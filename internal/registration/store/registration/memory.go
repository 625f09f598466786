package registration

import (
	"context"
	"sort"
	"sync"

	"sportsfest/internal/registration/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/platform/sentinel"
)

type liveKey struct {
	studentID  id.StudentID
	categoryID id.CategoryID
}

// InMemory is a mutex-guarded registration store for tests and single-node
// runs. The live index mirrors the partial unique index the postgres store
// relies on: one pending/confirmed/paid registration per student and
// category; cancelled and rejected rows do not block a fresh attempt.
type InMemory struct {
	mu            sync.Mutex
	registrations map[id.RegistrationID]*models.Registration
	live          map[liveKey]id.RegistrationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		registrations: make(map[id.RegistrationID]*models.Registration),
		live:          make(map[liveKey]id.RegistrationID),
	}
}

func cloneRegistration(r *models.Registration) *models.Registration {
	cr := *r
	return &cr
}

// Create inserts the registration. A student may hold only one live
// registration per category.
func (s *InMemory) Create(_ context.Context, r *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registrations[r.ID]; ok {
		return sentinel.ErrConflict
	}
	key := liveKey{studentID: r.StudentID, categoryID: r.CategoryID}
	if _, ok := s.live[key]; ok {
		return sentinel.ErrAlreadyUsed
	}

	s.registrations[r.ID] = cloneRegistration(r)
	if r.Status.HoldsSeat() {
		s.live[key] = r.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registrations[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(r), nil
}

// ListByStudent returns the student's registrations, newest first. Archived
// rows are skipped here and in the other listings; FindByID still sees them.
func (s *InMemory) ListByStudent(_ context.Context, studentID id.StudentID) ([]*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Registration
	for _, r := range s.registrations {
		if r.StudentID == studentID && !r.Archived {
			out = append(out, cloneRegistration(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	return out, nil
}

// ListByCategory returns the category's registrations in roster order,
// earliest registered first.
func (s *InMemory) ListByCategory(_ context.Context, categoryID id.CategoryID) ([]*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Registration
	for _, r := range s.registrations {
		if r.CategoryID == categoryID && !r.Archived {
			out = append(out, cloneRegistration(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

// ListByStatus returns registrations in the given status, oldest first.
func (s *InMemory) ListByStatus(_ context.Context, status models.Status) ([]*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Registration
	for _, r := range s.registrations {
		if r.Status == status && !r.Archived {
			out = append(out, cloneRegistration(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

// Execute runs validate and mutate against the stored registration while
// holding the store lock, so no concurrent mutation can interleave between
// them. Leaving a live status frees the student's slot in the category.
func (s *InMemory) Execute(_ context.Context, registrationID id.RegistrationID, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registrations[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	mutate(r)
	if !r.Status.HoldsSeat() {
		delete(s.live, liveKey{studentID: r.StudentID, categoryID: r.CategoryID})
	}
	return cloneRegistration(r), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, r := range s.registrations {
		if !r.Archived {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) CountByStatus(_ context.Context, status models.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, r := range s.registrations {
		if r.Status == status && !r.Archived {
			count++
		}
	}
	return count, nil
}
