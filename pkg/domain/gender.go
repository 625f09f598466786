package domain

import (
	"strings"

	dErrors "sportsfest/pkg/domain-errors"
)

// Gender is a student's declared gender.
// Invariant: the value must be one of the supported genders.
//
// Usage: construct via ParseGender at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Gender string

// Supported genders.
const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// validGenders is the single source of truth for valid genders.
var validGenders = map[Gender]bool{
	GenderMale:   true,
	GenderFemale: true,
	GenderOther:  true,
}

// ParseGender constructs a Gender from external input. Matching is
// case-insensitive because upstream rosters arrive in mixed case.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseGender(s string) (Gender, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "gender cannot be empty")
	}
	g := Gender(strings.ToLower(s))
	if !g.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid gender")
	}
	return g, nil
}

// IsValid checks if the gender is one of the supported enum values.
func (g Gender) IsValid() bool {
	return validGenders[g]
}

// String returns the string representation of the gender.
func (g Gender) String() string {
	return string(g)
}

// GenderAllowed restricts who may register for a category.
// Invariant: the value must be one of the supported restrictions.
type GenderAllowed string

// Supported category gender restrictions.
const (
	GenderAllowedMale   GenderAllowed = "male"
	GenderAllowedFemale GenderAllowed = "female"
	GenderAllowedMixed  GenderAllowed = "mixed"
	GenderAllowedAny    GenderAllowed = "any"
)

// validGenderAllowed is the single source of truth for valid restrictions.
var validGenderAllowed = map[GenderAllowed]bool{
	GenderAllowedMale:   true,
	GenderAllowedFemale: true,
	GenderAllowedMixed:  true,
	GenderAllowedAny:    true,
}

// ParseGenderAllowed constructs a GenderAllowed from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseGenderAllowed(s string) (GenderAllowed, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "gender restriction cannot be empty")
	}
	ga := GenderAllowed(strings.ToLower(s))
	if !ga.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid gender restriction")
	}
	return ga, nil
}

// IsValid checks if the restriction is one of the supported enum values.
func (ga GenderAllowed) IsValid() bool {
	return validGenderAllowed[ga]
}

// String returns the string representation of the restriction.
func (ga GenderAllowed) String() string {
	return string(ga)
}

// Permits reports whether a student of gender g may enter a category with
// this restriction. Mixed and any are open to every gender; male and female
// admit only that gender.
func (ga GenderAllowed) Permits(g Gender) bool {
	switch ga {
	case GenderAllowedAny, GenderAllowedMixed:
		return g.IsValid()
	case GenderAllowedMale:
		return g == GenderMale
	case GenderAllowedFemale:
		return g == GenderFemale
	default:
		return false
	}
}
