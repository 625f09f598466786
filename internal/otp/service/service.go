package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	otpmetrics "sportsfest/internal/otp/metrics"
	"sportsfest/internal/otp/models"
	id "sportsfest/pkg/domain"
)

// Defaults mirror the platform config defaults so a bare New is usable in
// tests and dev.
const (
	DefaultTTL         = 5 * time.Minute
	DefaultMaxAttempts = 5
)

// Store persists login challenges, one per normalized address.
type Store interface {
	Put(ctx context.Context, ch *models.Challenge) error
	Find(ctx context.Context, address string) (*models.Challenge, error)
	Update(ctx context.Context, ch *models.Challenge) error
	Delete(ctx context.Context, address string) error
	Sweep(ctx context.Context, asOf time.Time) (int, error)
}

// Directory maps a normalized login address to the actor it authenticates.
type Directory interface {
	Resolve(ctx context.Context, address string) (id.ActorID, id.Role, error)
}

// TokenIssuer mints access tokens once a code checks out. Satisfied by the
// jwt service.
type TokenIssuer interface {
	IssueAccessToken(actorID id.ActorID, role id.Role, now time.Time) (string, time.Time, error)
}

// Notifier delivers the plaintext code to the requester. The code never
// leaves the service any other way.
type Notifier interface {
	NotifyLoginCode(ctx context.Context, address, code string, expiresAt time.Time) error
}

type serviceConfig struct {
	logger      *slog.Logger
	metrics     *otpmetrics.Metrics
	notifier    Notifier
	ttl         time.Duration
	maxAttempts int
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *otpmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *serviceConfig) {
		c.notifier = n
	}
}

// WithTTL sets how long an issued code stays valid. Non-positive values are
// ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *serviceConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxAttempts sets how many incorrect codes invalidate a challenge.
// Non-positive values are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *serviceConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// Service issues and verifies one-time login codes.
type Service struct {
	store       Store
	directory   Directory
	tokens      TokenIssuer
	notifier    Notifier
	logger      *slog.Logger
	metrics     *otpmetrics.Metrics
	tracer      trace.Tracer
	ttl         time.Duration
	maxAttempts int
}

func New(store Store, directory Directory, tokens TokenIssuer, opts ...Option) *Service {
	cfg := &serviceConfig{
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:       store,
		directory:   directory,
		tokens:      tokens,
		notifier:    cfg.notifier,
		logger:      cfg.logger,
		metrics:     cfg.metrics,
		tracer:      otel.Tracer("sportsfest/otp"),
		ttl:         cfg.ttl,
		maxAttempts: cfg.maxAttempts,
	}
}
