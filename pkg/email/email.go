// Package email normalizes and masks contact addresses.
//
// Addresses arrive from institution roster uploads in mixed case and with
// stray whitespace; Normalize is the single place that canonicalizes them
// before storage or lookup. Mask keeps addresses out of logs while leaving
// enough to correlate a support ticket.
package email

import (
	"net/mail"
	"strings"

	dErrors "sportsfest/pkg/domain-errors"
)

// Normalize trims, lowercases and validates an address. The lowered form is
// what stores index, so lookups stay case-insensitive.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "email cannot be empty")
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}
	return strings.ToLower(trimmed), nil
}

// Mask hides the local part of an address for log output: "s*****@school.edu".
// Invalid or empty input masks to "***".
func Mask(address string) string {
	at := strings.IndexByte(address, '@')
	if at <= 0 {
		return "***"
	}
	return address[:1] + "*****" + address[at:]
}
