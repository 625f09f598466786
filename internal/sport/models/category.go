package models

import (
	"strings"
	"time"

	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
)

// DefaultMaxParticipants applies when a category is created without an
// explicit ceiling.
const DefaultMaxParticipants = 100

// DefaultCurrency is the festival's settlement currency.
const DefaultCurrency = "INR"

// Category is a registrable unit of a sport with a finite seat ceiling.
//
// Invariants:
//   - MaxParticipants > 0; the occupied seat count (tracked by the capacity
//     ledger, not on this struct) never exceeds it
//   - Fee is non-negative; a zero fee means registrations confirm without a
//     payment step
//   - AgeFrom/AgeTo are inclusive bounds; zero leaves that side open; when
//     both are set, AgeFrom <= AgeTo
//   - Categories are never hard-deleted while registrations reference them;
//     IsActive=false closes them to new registrations
type Category struct {
	ID              id.CategoryID    `json:"id"`
	SportID         id.SportID       `json:"sport_id"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	Fee             money.Amount     `json:"fee"`
	Currency        string           `json:"currency"`
	MaxParticipants int              `json:"max_participants"`
	AgeFrom         int              `json:"age_from,omitempty"`
	AgeTo           int              `json:"age_to,omitempty"`
	GenderAllowed   id.GenderAllowed `json:"gender_allowed"`

	RequiresMedicalCertificate bool `json:"requires_medical_certificate"`
	RequiresGuardianConsent    bool `json:"requires_guardian_consent"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCategory constructs an open category, applying the festival defaults for
// ceiling, currency and gender policy when the caller leaves them unset.
func NewCategory(categoryID id.CategoryID, sportID id.SportID, name string, fee money.Amount, now time.Time) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "category name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "category name must be 128 characters or less")
	}
	if sportID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "category requires a sport")
	}
	if fee.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "category fee cannot be negative")
	}
	return &Category{
		ID:              categoryID,
		SportID:         sportID,
		Name:            name,
		Fee:             fee,
		Currency:        DefaultCurrency,
		MaxParticipants: DefaultMaxParticipants,
		GenderAllowed:   id.GenderAllowedAny,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Validate re-checks the construction invariants after field mutation.
// Update paths call this before persisting.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "category name cannot be empty")
	}
	if c.MaxParticipants <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "max participants must be positive")
	}
	if c.Fee.IsNegative() {
		return dErrors.New(dErrors.CodeInvariantViolation, "category fee cannot be negative")
	}
	if c.AgeFrom < 0 || c.AgeTo < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "age bounds cannot be negative")
	}
	if c.AgeFrom > 0 && c.AgeTo > 0 && c.AgeFrom > c.AgeTo {
		return dErrors.New(dErrors.CodeInvariantViolation, "age_from cannot exceed age_to")
	}
	if !c.GenderAllowed.IsValid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "invalid gender policy %q", string(c.GenderAllowed))
	}
	return nil
}

// AgeEligible reports whether age falls inside the category's window.
// A zero bound leaves that side of the window open.
func (c *Category) AgeEligible(age int) bool {
	if c.AgeFrom > 0 && age < c.AgeFrom {
		return false
	}
	if c.AgeTo > 0 && age > c.AgeTo {
		return false
	}
	return true
}

// GenderEligible reports whether the category's gender policy admits g.
func (c *Category) GenderEligible(g id.Gender) bool {
	return c.GenderAllowed.Permits(g)
}

// CheckEligibility gates a registration attempt. It returns a coded error
// naming the first failed gate, or nil when the student may register.
func (c *Category) CheckEligibility(age int, gender id.Gender) error {
	if !c.IsActive {
		return dErrors.New(dErrors.CodeCategoryInactive, "category is not open for registration")
	}
	if !c.AgeEligible(age) {
		return dErrors.Newf(dErrors.CodeIneligible, "age %d is outside the category's allowed range", age)
	}
	if !c.GenderEligible(gender) {
		return dErrors.Newf(dErrors.CodeIneligible, "gender %q is not permitted in this category", gender.String())
	}
	return nil
}

// CheckDocuments gates categories that require paperwork on file before a
// student may register.
func (c *Category) CheckDocuments(hasMedicalCertificate, hasGuardianConsent bool) error {
	if c.RequiresMedicalCertificate && !hasMedicalCertificate {
		return dErrors.New(dErrors.CodeIneligible, "category requires a medical certificate on file")
	}
	if c.RequiresGuardianConsent && !hasGuardianConsent {
		return dErrors.New(dErrors.CodeIneligible, "category requires guardian consent on file")
	}
	return nil
}

// HasFee reports whether registrations in this category owe a payment.
func (c *Category) HasFee() bool {
	return c.Fee.IsPositive()
}

func (c *Category) Deactivate(now time.Time) {
	c.IsActive = false
	c.UpdatedAt = now
}

func (c *Category) Reactivate(now time.Time) {
	c.IsActive = true
	c.UpdatedAt = now
}
