package student

import (
	"context"
	"sort"
	"strings"
	"sync"

	"sportsfest/internal/student/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded student store for tests and single-node runs.
type InMemory struct {
	mu       sync.RWMutex
	students map[id.StudentID]*models.Student
	byEmail  map[string]id.StudentID
}

func NewInMemory() *InMemory {
	return &InMemory{
		students: make(map[id.StudentID]*models.Student),
		byEmail:  make(map[string]id.StudentID),
	}
}

// Create inserts the student. Emails, when present, must be unique.
func (s *InMemory) Create(_ context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if student.Email != "" {
		if _, taken := s.byEmail[student.Email]; taken {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *student
	s.students[student.ID] = &cp
	if student.Email != "" {
		s.byEmail[student.Email] = student.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, studentID id.StudentID) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	student, ok := s.students[studentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *student
	return &cp, nil
}

// FindByEmail looks a student up by normalized email.
func (s *InMemory) FindByEmail(_ context.Context, address string) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	studentID, ok := s.byEmail[strings.ToLower(address)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.students[studentID]
	return &cp, nil
}

func (s *InMemory) ListByInstitution(_ context.Context, institutionID id.InstitutionID) ([]*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Student
	for _, student := range s.students {
		if student.InstitutionID == institutionID {
			cp := *student
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.students[student.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if student.Email != "" && student.Email != existing.Email {
		if _, taken := s.byEmail[student.Email]; taken {
			return sentinel.ErrAlreadyUsed
		}
	}
	if existing.Email != "" && existing.Email != student.Email {
		delete(s.byEmail, existing.Email)
	}
	cp := *student
	s.students[student.ID] = &cp
	if student.Email != "" {
		s.byEmail[student.Email] = student.ID
	}
	return nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students), nil
}
