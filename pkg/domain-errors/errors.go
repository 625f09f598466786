// Package domainerrors carries coded errors across service boundaries.
//
// Services return these so transport can translate them into stable HTTP
// responses and tests can assert on codes instead of message strings. Store
// implementations return sentinel errors (pkg/platform/sentinel) and services
// wrap them into coded errors here.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain error. Codes are part of the API surface:
// they appear verbatim in HTTP error envelopes.
type Code string

const (
	// Generic codes.
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_failed"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"

	// Registration lifecycle codes.
	CodeCategoryFull      Code = "category_full"
	CodeCategoryInactive  Code = "category_inactive"
	CodeIneligible        Code = "ineligible"
	CodeInvalidTransition Code = "invalid_transition"
	CodeAlreadyTerminal   Code = "already_terminal"
	CodePaidRegistration  Code = "paid_registration"

	// Payment codes.
	CodeRefundExceedsRemaining Code = "refund_exceeds_remaining"

	// Auth codes.
	CodeTooManyAttempts Code = "too_many_attempts"
)

// Error is a coded domain error. Message is safe to return to API callers;
// wrapped causes are for logs only.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. If err is nil,
// Wrap returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or any error in its chain) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode, kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-safe message from err. Uncoded errors report
// a generic message so internals never leak through the API.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidTransition, CodeAlreadyTerminal,
		CodePaidRegistration, CodeCategoryFull, CodeRefundExceedsRemaining:
		return http.StatusConflict
	case CodeCategoryInactive, CodeIneligible:
		return http.StatusUnprocessableEntity
	case CodeTooManyAttempts:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
