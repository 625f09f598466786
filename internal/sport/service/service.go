package service

import (
	"context"
	"log/slog"

	sportmetrics "sportsfest/internal/sport/metrics"
	"sportsfest/internal/sport/models"
	id "sportsfest/pkg/domain"
)

// SportStore persists sports.
type SportStore interface {
	CreateIfNameAvailable(ctx context.Context, sport *models.Sport) error
	FindByID(ctx context.Context, sportID id.SportID) (*models.Sport, error)
	List(ctx context.Context) ([]*models.Sport, error)
	Update(ctx context.Context, sport *models.Sport) error
	Count(ctx context.Context) (int, error)
}

// CategoryStore persists sport categories.
type CategoryStore interface {
	Create(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, categoryID id.CategoryID) (*models.Category, error)
	ListBySport(ctx context.Context, sportID id.SportID) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Execute(ctx context.Context, categoryID id.CategoryID, validate func(*models.Category) error, mutate func(*models.Category)) (*models.Category, error)
	Count(ctx context.Context) (int, error)
}

type serviceConfig struct {
	logger  *slog.Logger
	metrics *sportmetrics.Metrics
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *sportmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// Service manages the sport and category catalog.
type Service struct {
	sports     SportStore
	categories CategoryStore
	logger     *slog.Logger
	metrics    *sportmetrics.Metrics
}

func New(sports SportStore, categories CategoryStore, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		sports:     sports,
		categories: categories,
		logger:     cfg.logger,
		metrics:    cfg.metrics,
	}
}
