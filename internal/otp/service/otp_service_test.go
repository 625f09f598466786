package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"sportsfest/internal/jwt"
	challengestore "sportsfest/internal/otp/store/challenge"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/requestcontext"
)

// staticDirectory resolves every address to one fixed actor.
type staticDirectory struct {
	actorID id.ActorID
	role    id.Role
	err     error
}

func (d *staticDirectory) Resolve(_ context.Context, _ string) (id.ActorID, id.Role, error) {
	if d.err != nil {
		return id.ActorID{}, "", d.err
	}
	return d.actorID, d.role, nil
}

// captureNotifier records delivered codes instead of sending mail.
type captureNotifier struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (n *captureNotifier) NotifyLoginCode(_ context.Context, _, code string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.codes = append(n.codes, code)
	return nil
}

func (n *captureNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.codes) == 0 {
		return ""
	}
	return n.codes[len(n.codes)-1]
}

func (n *captureNotifier) sent() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.codes)
}

type OTPServiceSuite struct {
	suite.Suite

	store     *challengestore.InMemory
	directory *staticDirectory
	notifier  *captureNotifier
	tokens    *jwt.Service
	service   *Service

	actorID id.ActorID
	now     time.Time
	ctx     context.Context
}

func TestOTPServiceSuite(t *testing.T) {
	suite.Run(t, new(OTPServiceSuite))
}

func (s *OTPServiceSuite) SetupTest() {
	s.store = challengestore.NewInMemory()
	s.actorID = id.NewActorID()
	s.directory = &staticDirectory{actorID: s.actorID, role: id.RoleStudent}
	s.notifier = &captureNotifier{}
	s.tokens = jwt.NewService("test-signing-key", "sportsfest", 30*time.Minute)

	s.now = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.service = New(
		s.store,
		s.directory,
		s.tokens,
		WithNotifier(s.notifier),
		WithMaxAttempts(3),
	)
}

func (s *OTPServiceSuite) assertCode(err error, want dErrors.Code) {
	s.T().Helper()
	var domainErr *dErrors.Error
	s.Require().ErrorAs(err, &domainErr)
	s.Equal(want, domainErr.Code)
}

// wrongCode returns a six-digit code guaranteed not to match the last
// delivered one.
func (s *OTPServiceSuite) wrongCode() string {
	if s.notifier.lastCode() == "000000" {
		return "000001"
	}
	return "000000"
}

func (s *OTPServiceSuite) TestRequestDeliversCode() {
	res, err := s.service.Request(s.ctx, "  Priya@School.EDU ")
	s.Require().NoError(err)

	s.Equal("priya@school.edu", res.Email)
	s.Equal(s.now.Add(DefaultTTL), res.ExpiresAt)

	s.Require().Equal(1, s.notifier.sent())
	code := s.notifier.lastCode()
	s.Len(code, 6)
	s.NotContains(code, " ")
	for _, r := range code {
		s.True(r >= '0' && r <= '9', "code %q must be numeric", code)
	}

	ch, err := s.store.Find(s.ctx, "priya@school.edu")
	s.Require().NoError(err)
	s.Zero(ch.Attempts)
	s.NotEqual(code, string(ch.CodeHash), "store must never hold the plaintext code")
}

func (s *OTPServiceSuite) TestRequestUnknownAccount() {
	s.directory.err = dErrors.New(dErrors.CodeNotFound, "no account for this email")

	_, err := s.service.Request(s.ctx, "nobody@school.edu")
	s.assertCode(err, dErrors.CodeNotFound)
	s.Zero(s.notifier.sent())

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *OTPServiceSuite) TestRequestMalformedAddress() {
	_, err := s.service.Request(s.ctx, "not really an address")
	s.assertCode(err, dErrors.CodeInvalidInput)
}

func (s *OTPServiceSuite) TestRequestNotifierDown() {
	s.notifier.err = errors.New("smtp connection refused")

	_, err := s.service.Request(s.ctx, "priya@school.edu")
	s.assertCode(err, dErrors.CodeUnavailable)
}

func (s *OTPServiceSuite) TestVerifyIssuesToken() {
	_, err := s.service.Request(s.ctx, "priya@school.edu")
	s.Require().NoError(err)

	token, err := s.service.Verify(s.ctx, "Priya@school.edu", s.notifier.lastCode())
	s.Require().NoError(err)
	s.Equal(s.actorID, token.ActorID)
	s.Equal(id.RoleStudent, token.Role)
	s.Equal(s.now.Add(30*time.Minute), token.ExpiresAt)

	claims, err := s.tokens.ValidateToken(token.AccessToken)
	s.Require().NoError(err)
	s.Equal(s.actorID, claims.ActorID)
	s.Equal(id.RoleStudent, claims.Role)
}

func (s *OTPServiceSuite) TestVerifyConsumesCode() {
	_, err := s.service.Request(s.ctx, "priya@school.edu")
	s.Require().NoError(err)
	code := s.notifier.lastCode()

	_, err = s.service.Verify(s.ctx, "priya@school.edu", code)
	s.Require().NoError(err)

	_, err = s.service.Verify(s.ctx, "priya@school.edu", code)
	s.assertCode(err, dErrors.CodeUnauthorized)
}

func (s *OTPServiceSuite) TestVerifyWrongCodeCounts() {
	_, err := s.service.Request(s.ctx, "priya@school.edu")
	s.Require().NoError(err)

	_, err = s.service.Verify(s.ctx, "priya@school.edu", s.wrongCode())
	s.assertCode(err, dErrors.CodeUnauthorized)

	ch, err := s.store.Find(s.ctx, "priya@school.edu")
	s.Require().NoError(err)
	s.Equal(1, ch.Attempts)

	// Two failures sit below the limit of three; the real code still works.
	_, err = s.service.Verify(s.ctx, "priya@school.edu", s.wrongCode())
	s.assertCode(err, dErrors.CodeUnauthorized)

	_, err = s.service.Verify(s.ctx, "priya@school.edu", s.notifier.lastCode())
	s.NoError(err)
}

func (s *OTPServiceSuite) TestVerifyLockout() {
	_, err := s.service.Request(s.ctx, "priya@school.edu")
	s.Require().NoError(err)
	code := s.notifier.lastCode()

	for range 2 {
		_, err = s.service.Verify(s.ctx, "priya@school.edu", s.wrongCode())
		s.assertCode(err, dErrors.CodeUnauthorized)
	}
	_, err = s.service.Verify(s.ctx, "priya@school.edu", s.wrongCode())
	s.assertCode(err, dErrors.CodeTooManyAttempts)

	// The lockout invalidates the challenge, correct code included.
	_, err = s.service.Verify(s.ctx, "priya@school.edu", code)
	s.assertCode(err, dErrors.CodeUnauthorized)

	// A fresh request starts over.
	_, err = s.service.Request(s.ctx, "priya@school.edu")
	s.Require().NoError(err)
	_, err = s.service.Verify(s.ctx, "priya@school.edu", s.notifier.lastCode())
	s.NoError(err)
}

func (s *OTPServiceSuite) TestVerifyExpired() {
	_, err := s.service.Request(s.ctx, "priya@school.edu")
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(DefaultTTL+time.Second))
	_, err = s.service.Verify(later, "priya@school.edu", s.notifier.lastCode())
	s.assertCode(err, dErrors.CodeUnauthorized)

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count, "expired challenge must be dropped on verify")
}

func (s *OTPServiceSuite) TestRequestReplacesChallenge() {
	_, err := s.service.Request(s.ctx, "priya@school.edu")
	s.Require().NoError(err)

	_, err = s.service.Verify(s.ctx, "priya@school.edu", s.wrongCode())
	s.assertCode(err, dErrors.CodeUnauthorized)

	_, err = s.service.Request(s.ctx, "priya@school.edu")
	s.Require().NoError(err)

	ch, err := s.store.Find(s.ctx, "priya@school.edu")
	s.Require().NoError(err)
	s.Zero(ch.Attempts, "a fresh request resets the failure count")

	_, err = s.service.Verify(s.ctx, "priya@school.edu", s.notifier.lastCode())
	s.NoError(err)
}

func (s *OTPServiceSuite) TestVerifyWithoutRequest() {
	_, err := s.service.Verify(s.ctx, "priya@school.edu", "123456")
	s.assertCode(err, dErrors.CodeUnauthorized)
}

func (s *OTPServiceSuite) TestVerifyDeactivatedAccount() {
	_, err := s.service.Request(s.ctx, "priya@school.edu")
	s.Require().NoError(err)
	code := s.notifier.lastCode()

	// Deactivation lands between request and verify.
	s.directory.err = dErrors.New(dErrors.CodeForbidden, "account is deactivated")

	_, err = s.service.Verify(s.ctx, "priya@school.edu", code)
	s.assertCode(err, dErrors.CodeForbidden)

	// The code was consumed either way.
	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *OTPServiceSuite) TestSweepExpired() {
	_, err := s.service.Request(s.ctx, "priya@school.edu")
	s.Require().NoError(err)
	_, err = s.service.Request(s.ctx, "rahul@school.edu")
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), s.now.Add(DefaultTTL+time.Second))
	removed, err := s.service.SweepExpired(later)
	s.Require().NoError(err)
	s.Equal(2, removed)

	removed, err = s.service.SweepExpired(later)
	s.Require().NoError(err)
	s.Zero(removed)
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for range 32 {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q: want 6 digits", code)
		}
		if strings.Trim(code, "0123456789") != "" {
			t.Fatalf("code %q: want digits only", code)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1, "codes must not repeat every draw")
}
