package service

import (
	"context"
	"log/slog"
	"time"

	sponsorshipmetrics "sportsfest/internal/sponsorship/metrics"
	"sportsfest/internal/sponsorship/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/money"
)

// DefaultApprovalValidity is how long an approved grant stays live before
// the expiry sweep lapses it.
const DefaultApprovalValidity = 90 * 24 * time.Hour

// Store persists sponsorships. Execute must serialize validate+mutate per
// sponsorship so verdicts and the expiry sweep cannot interleave.
type Store interface {
	Create(ctx context.Context, sp *models.Sponsorship) error
	FindByID(ctx context.Context, sponsorshipID id.SponsorshipID) (*models.Sponsorship, error)
	ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Sponsorship, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Sponsorship, error)
	ListApprovedLapsed(ctx context.Context, asOf time.Time, limit int) ([]*models.Sponsorship, error)
	Execute(ctx context.Context, sponsorshipID id.SponsorshipID, validate func(*models.Sponsorship) error, mutate func(*models.Sponsorship)) (*models.Sponsorship, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.Status) (int, error)
	ApprovedTotal(ctx context.Context) (money.Amount, error)
}

type serviceConfig struct {
	logger           *slog.Logger
	metrics          *sponsorshipmetrics.Metrics
	approvalValidity time.Duration
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *sponsorshipmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithApprovalValidity overrides how long approvals stay valid.
func WithApprovalValidity(d time.Duration) Option {
	return func(c *serviceConfig) {
		if d > 0 {
			c.approvalValidity = d
		}
	}
}

// Service owns the sponsorship review workflow: intake, review verdicts,
// withdrawal and the validity sweep.
type Service struct {
	store            Store
	logger           *slog.Logger
	metrics          *sponsorshipmetrics.Metrics
	approvalValidity time.Duration
}

func New(store Store, opts ...Option) *Service {
	cfg := &serviceConfig{approvalValidity: DefaultApprovalValidity}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:            store,
		logger:           cfg.logger,
		metrics:          cfg.metrics,
		approvalValidity: cfg.approvalValidity,
	}
}
