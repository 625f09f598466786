// Package service implements passwordless login with one-time codes.
//
// Request issues a short numeric code, stores only its bcrypt hash with a
// TTL, and hands the plaintext to the notifier for delivery. Verify checks a
// submitted code against the hash, counts failures, and locks the challenge
// after too many of them. A code that verifies is consumed on the spot and
// exchanged for a signed access token.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sportsfest/internal/otp/models"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/email"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/requestcontext"
)

// codeDigits is the length of issued codes.
const codeDigits = 6

// RequestResult reports where the code went and when it stops working.
type RequestResult struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Token is the outcome of a successful verification.
type Token struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ActorID     id.ActorID `json:"actor_id"`
	Role        id.Role    `json:"role"`
}

// Request issues a fresh login code for an address. Any previous challenge
// for the same address is replaced, which also resets its attempt counter.
//
// Errors: CodeInvalidInput for a malformed address, CodeNotFound when no
// account carries it, CodeForbidden for a deactivated account,
// CodeUnavailable when the code could not be delivered.
func (s *Service) Request(ctx context.Context, address string) (*RequestResult, error) {
	ctx, span := s.tracer.Start(ctx, "otp.Request")
	defer span.End()

	normalized, err := email.Normalize(address)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.directory.Resolve(ctx, normalized); err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash login code: %w", err)
	}

	now := requestcontext.Now(ctx)
	ch, err := models.NewChallenge(normalized, hash, now, s.ttl)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	if err := s.store.Put(ctx, ch); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyLoginCode(ctx, normalized, code, ch.ExpiresAt); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not send the login code")
		}
	}

	s.metrics.IncrementRequested()
	s.logger.InfoContext(ctx, "login code issued",
		slog.String("email", email.Mask(normalized)),
		slog.Time("expires_at", ch.ExpiresAt),
	)
	return &RequestResult{Email: normalized, ExpiresAt: ch.ExpiresAt}, nil
}

// Verify exchanges a correct code for an access token. The challenge is
// consumed before the token is minted, so a code verifies exactly once.
//
// Errors: CodeUnauthorized for a missing, expired or incorrect code,
// CodeTooManyAttempts once failures reach the limit.
func (s *Service) Verify(ctx context.Context, address, code string) (*Token, error) {
	ctx, span := s.tracer.Start(ctx, "otp.Verify")
	defer span.End()

	normalized, err := email.Normalize(address)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "code cannot be empty")
	}

	ch, err := s.store.Find(ctx, normalized)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.metrics.IncrementRejected("missing")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no active code for this email")
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}

	now := requestcontext.Now(ctx)
	if ch.Expired(now) {
		_ = s.store.Delete(ctx, normalized)
		s.metrics.IncrementRejected("expired")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "code has expired, request a new one")
	}
	if ch.Exhausted(s.maxAttempts) {
		_ = s.store.Delete(ctx, normalized)
		s.metrics.IncrementRejected("locked")
		return nil, dErrors.New(dErrors.CodeTooManyAttempts, "too many incorrect codes, request a new one")
	}

	if bcrypt.CompareHashAndPassword(ch.CodeHash, []byte(code)) != nil {
		return nil, s.recordFailure(ctx, ch)
	}

	// Consume before minting: a crash here costs the caller one more
	// request, never a second use of the same code.
	if err := s.store.Delete(ctx, normalized); err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}

	actorID, role, err := s.directory.Resolve(ctx, normalized)
	if err != nil {
		return nil, err
	}
	accessToken, expiresAt, err := s.tokens.IssueAccessToken(actorID, role, now)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.metrics.IncrementVerified()
	s.logger.InfoContext(ctx, "login verified",
		slog.String("email", email.Mask(normalized)),
		slog.String("role", role.String()),
	)
	return &Token{AccessToken: accessToken, ExpiresAt: expiresAt, ActorID: actorID, Role: role}, nil
}

// recordFailure counts an incorrect code and locks the challenge once the
// limit is reached.
func (s *Service) recordFailure(ctx context.Context, ch *models.Challenge) error {
	ch.RecordFailure()
	if ch.Exhausted(s.maxAttempts) {
		if err := s.store.Delete(ctx, ch.Email); err != nil {
			return fmt.Errorf("invalidate challenge: %w", err)
		}
		s.metrics.IncrementRejected("locked")
		s.metrics.IncrementLockout()
		s.logger.WarnContext(ctx, "login challenge locked",
			slog.String("email", email.Mask(ch.Email)),
			slog.Int("attempts", ch.Attempts),
		)
		return dErrors.New(dErrors.CodeTooManyAttempts, "too many incorrect codes, request a new one")
	}
	if err := s.store.Update(ctx, ch); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	s.metrics.IncrementRejected("mismatch")
	return dErrors.New(dErrors.CodeUnauthorized, "incorrect code")
}

// SweepExpired drops expired challenges from stores without server-side
// expiry. The jobs runner calls this on an interval; the redis store sweeps
// nothing because its keys expire on their own.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	removed, err := s.store.Sweep(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, fmt.Errorf("sweep challenges: %w", err)
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "expired login challenges removed", slog.Int("count", removed))
	}
	return removed, nil
}

// generateCode draws a uniform numeric code from crypto/rand.
func generateCode() (string, error) {
	ceiling := big.NewInt(1)
	for range codeDigits {
		ceiling.Mul(ceiling, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, ceiling)
	if err != nil {
		return "", fmt.Errorf("generate login code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
