package models

import (
	"strings"
	"time"

	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
)

// Sport groups categories under one discipline (e.g. "Athletics", "Swimming").
// Categories carry the registrable units; the sport itself holds no capacity.
type Sport struct {
	ID          id.SportID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewSport(sportID id.SportID, name, description string, now time.Time) (*Sport, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sport name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sport name must be 128 characters or less")
	}
	return &Sport{
		ID:          sportID,
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Sport) Deactivate(now time.Time) {
	s.IsActive = false
	s.UpdatedAt = now
}

func (s *Sport) Reactivate(now time.Time) {
	s.IsActive = true
	s.UpdatedAt = now
}
