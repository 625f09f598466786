package domain

import (
	dErrors "sportsfest/pkg/domain-errors"
)

// Role identifies what an authenticated caller is allowed to do.
// This is a domain primitive that enforces validity at parse time.
type Role string

// Supported roles.
const (
	RoleAdmin     Role = "admin"
	RoleInstitute Role = "institute"
	RoleStudent   Role = "student"
)

// validRoles is the single source of truth for valid roles.
var validRoles = map[Role]bool{
	RoleAdmin:     true,
	RoleInstitute: true,
	RoleStudent:   true,
}

// ParseRole constructs a Role from external input, typically a JWT claim.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// CanManageFestival reports whether the role may perform administrative
// operations such as reviewing sponsorships or closing categories.
func (r Role) CanManageFestival() bool {
	return r == RoleAdmin
}
