package models

import (
	"strings"

	dErrors "sportsfest/pkg/domain-errors"
)

// Status is a registration's position in its lifecycle.
// Invariant: status only moves along allowedTransitions; paid, cancelled and
// rejected are terminal for the state machine itself. Cancelling a paid
// registration is a guarded exception handled by CanCancel, not a lifecycle
// edge: it requires the payment to be fully refunded first.
type Status string

// Registration lifecycle states.
const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// allowedTransitions is the single source of truth for the lifecycle.
// A state mapping to an empty slice is terminal.
var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusRejected},
	StatusConfirmed: {StatusPaid, StatusCancelled},
	StatusPaid:      {},
	StatusCancelled: {},
	StatusRejected:  {},
}

// ParseStatus constructs a Status from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "registration status cannot be empty")
	}
	st := Status(strings.ToLower(s))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid registration status")
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

// CanTransitionTo reports whether the lifecycle permits moving to next.
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

// HoldsSeat reports whether a registration in this status occupies a seat in
// its category. Cancelled and rejected registrations have released theirs.
func (s Status) HoldsSeat() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusPaid
}
