package models

import (
	"strings"

	dErrors "sportsfest/pkg/domain-errors"
)

// Status is a sponsorship application's position in the review workflow.
// Invariant: status only moves along allowedTransitions; rejected, cancelled
// and expired are terminal.
type Status string

// Sponsorship workflow states.
const (
	StatusApplied     Status = "applied"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusCancelled   Status = "cancelled"
	StatusExpired     Status = "expired"
)

// allowedTransitions is the single source of truth for the workflow.
// A state mapping to an empty slice is terminal. Review may be skipped:
// an applied sponsorship can be decided directly.
var allowedTransitions = map[Status][]Status{
	StatusApplied:     {StatusUnderReview, StatusApproved, StatusRejected, StatusCancelled},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:    {StatusCancelled, StatusExpired},
	StatusRejected:    {},
	StatusCancelled:   {},
	StatusExpired:     {},
}

// ParseStatus constructs a Status from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "sponsorship status cannot be empty")
	}
	st := Status(strings.ToLower(s))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid sponsorship status")
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether the workflow permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from this status.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(allowedTransitions[s]) == 0
}

// AwaitingDecision reports whether the application still needs a reviewer's
// verdict.
func (s Status) AwaitingDecision() bool {
	return s == StatusApplied || s == StatusUnderReview
}
