// Package models defines the login challenge entity for OTP authentication.
package models

import (
	"time"

	dErrors "sportsfest/pkg/domain-errors"
)

// Challenge is one outstanding login code for an email address. At most one
// challenge is live per address: requesting a new code replaces the previous
// one and resets the attempt counter. The plaintext code is never stored,
// only its bcrypt hash.
type Challenge struct {
	Email     string    `json:"email"`
	CodeHash  []byte    `json:"code_hash"`
	Attempts  int       `json:"attempts"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewChallenge creates a challenge for an already-normalized address.
//
// Errors: returns CodeInvariantViolation when the address or hash is empty
// or the TTL is not positive.
func NewChallenge(address string, codeHash []byte, now time.Time, ttl time.Duration) (*Challenge, error) {
	if address == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "challenge requires an email address")
	}
	if len(codeHash) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "challenge requires a code hash")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "challenge ttl must be positive")
	}
	return &Challenge{
		Email:     address,
		CodeHash:  codeHash,
		Attempts:  0,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Exhausted reports whether the failure count has reached the allowed maximum.
func (c *Challenge) Exhausted(maxAttempts int) bool {
	return maxAttempts > 0 && c.Attempts >= maxAttempts
}

// RecordFailure counts one incorrect code. The caller persists the update.
func (c *Challenge) RecordFailure() {
	c.Attempts++
}
