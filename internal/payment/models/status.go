package models

import (
	"strings"

	dErrors "sportsfest/pkg/domain-errors"
)

// Status is a payment's position in its lifecycle.
// Invariant: status only moves along allowedTransitions; failed, cancelled
// and refunded are terminal.
type Status string

// Payment lifecycle states.
const (
	StatusInitiated         Status = "initiated"
	StatusPending           Status = "pending"
	StatusSuccess           Status = "success"
	StatusFailed            Status = "failed"
	StatusCancelled         Status = "cancelled"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"
)

// allowedTransitions is the single source of truth for the lifecycle.
// A state mapping to an empty slice is terminal.
var allowedTransitions = map[Status][]Status{
	StatusInitiated:         {StatusPending, StatusSuccess, StatusFailed, StatusCancelled},
	StatusPending:           {StatusSuccess, StatusFailed},
	StatusSuccess:           {StatusRefunded, StatusPartiallyRefunded},
	StatusPartiallyRefunded: {StatusRefunded, StatusPartiallyRefunded},
	StatusFailed:            {},
	StatusCancelled:         {},
	StatusRefunded:          {},
}

// ParseStatus constructs a Status from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "payment status cannot be empty")
	}
	st := Status(strings.ToLower(s))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid payment status")
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

// Awaiting reports whether the payment is still waiting on a provider
// outcome. Only awaiting payments may be settled or swept by timeout.
func (s Status) Awaiting() bool {
	return s == StatusInitiated || s == StatusPending
}

// Refundable reports whether a refund may be applied in this status.
func (s Status) Refundable() bool {
	return s == StatusSuccess || s == StatusPartiallyRefunded
}
