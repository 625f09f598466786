// Package service aggregates the festival dashboard numbers. It owns no
// state of its own: every figure comes from another feature's stats or
// counts, fetched in parallel.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	paymentservice "sportsfest/internal/payment/service"
	registrationservice "sportsfest/internal/registration/service"
	sponsorshipservice "sportsfest/internal/sponsorship/service"
	"sportsfest/pkg/requestcontext"
)

// RegistrationStats reports registration lifecycle counts.
type RegistrationStats interface {
	GetStats(ctx context.Context) (registrationservice.Stats, error)
}

// PaymentStats reports payment ledger counts and the collected total.
type PaymentStats interface {
	GetStats(ctx context.Context) (paymentservice.Stats, error)
}

// SponsorshipStats reports sponsor funding counts.
type SponsorshipStats interface {
	GetStats(ctx context.Context) (sponsorshipservice.Stats, error)
}

// Counter is the single count a roster or catalog store contributes.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Overview is the admin dashboard payload.
type Overview struct {
	GeneratedAt   time.Time                 `json:"generated_at"`
	Students      int                       `json:"students"`
	Categories    int                       `json:"categories"`
	Registrations registrationservice.Stats `json:"registrations"`
	Payments      paymentservice.Stats      `json:"payments"`
	Sponsorships  sponsorshipservice.Stats  `json:"sponsorships"`
}

type serviceConfig struct {
	logger *slog.Logger
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

// Service assembles the admin overview.
type Service struct {
	registrations RegistrationStats
	payments      PaymentStats
	sponsorships  SponsorshipStats
	students      Counter
	categories    Counter
	logger        *slog.Logger
	tracer        trace.Tracer
}

func New(registrations RegistrationStats, payments PaymentStats, sponsorships SponsorshipStats, students, categories Counter, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		registrations: registrations,
		payments:      payments,
		sponsorships:  sponsorships,
		students:      students,
		categories:    categories,
		logger:        cfg.logger,
		tracer:        otel.Tracer("sportsfest/admin"),
	}
}

// Overview fans out over the feature stats in parallel and fails on the
// first error. The counts are not a snapshot: rows written mid-flight can
// land in one figure and miss another.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	ctx, span := s.tracer.Start(ctx, "admin.Overview")
	defer span.End()

	out := &Overview{GeneratedAt: requestcontext.Now(ctx)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Registrations, err = s.registrations.GetStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Payments, err = s.payments.GetStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Sponsorships, err = s.sponsorships.GetStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Students, err = s.students.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Categories, err = s.categories.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
