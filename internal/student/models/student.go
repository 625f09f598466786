package models

import (
	"strings"
	"time"

	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/email"
)

// Student is a festival participant enrolled by an institution.
//
// Invariants:
//   - FullName is non-empty
//   - Gender is a supported value
//   - DateOfBirth is in the past
//   - Email, when set, is normalized lowercase
//
// The paperwork flags mirror the institution's uploads; categories that
// require them gate registration on these flags, not on the files themselves.
type Student struct {
	ID            id.StudentID     `json:"id"`
	InstitutionID id.InstitutionID `json:"institution_id"`
	FullName      string           `json:"full_name"`
	Gender        id.Gender        `json:"gender"`
	DateOfBirth   time.Time        `json:"date_of_birth"`
	Email         string           `json:"email,omitempty"`
	Phone         string           `json:"phone,omitempty"`

	HasMedicalCertificate bool `json:"has_medical_certificate"`
	GuardianConsent       bool `json:"guardian_consent"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewStudent(studentID id.StudentID, institutionID id.InstitutionID, fullName string, gender id.Gender, dateOfBirth time.Time, now time.Time) (*Student, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student name cannot be empty")
	}
	if len(fullName) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student name must be 256 characters or less")
	}
	if !gender.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student gender is not supported")
	}
	if dateOfBirth.IsZero() || !dateOfBirth.Before(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "date of birth must be in the past")
	}
	return &Student{
		ID:            studentID,
		InstitutionID: institutionID,
		FullName:      fullName,
		Gender:        gender,
		DateOfBirth:   dateOfBirth,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// SetEmail normalizes and validates the contact email.
func (s *Student) SetEmail(raw string) error {
	normalized, err := email.Normalize(raw)
	if err != nil {
		return err
	}
	s.Email = normalized
	return nil
}

// Age returns the student's age in whole years at the given instant. The year
// count decrements when the birthday has not yet occurred this year.
func (s *Student) Age(now time.Time) int {
	years := now.Year() - s.DateOfBirth.Year()
	anniversary := time.Date(now.Year(), s.DateOfBirth.Month(), s.DateOfBirth.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func (s *Student) Deactivate(now time.Time) {
	s.IsActive = false
	s.UpdatedAt = now
}
