package service

import (
	"context"
	"log/slog"

	capacitymetrics "sportsfest/internal/capacity/metrics"
	"sportsfest/internal/capacity/models"
	id "sportsfest/pkg/domain"
)

// Store is the storage boundary for the seat counter. Reserve must be atomic
// with respect to concurrent callers on the same category: no two calls may
// both observe a free seat when only one remains.
type Store interface {
	Reserve(ctx context.Context, token models.SeatToken, max int) error
	Release(ctx context.Context, token models.SeatToken) (bool, error)
	Counts(ctx context.Context, categoryID id.CategoryID) (occupied, max int, err error)
}

type serviceConfig struct {
	logger  *slog.Logger
	metrics *capacitymetrics.Metrics
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *capacitymetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// Ledger is the authoritative count of occupied seats per category and the
// single choke point preventing overbooking.
type Ledger struct {
	store   Store
	logger  *slog.Logger
	metrics *capacitymetrics.Metrics
}

func NewLedger(store Store, opts ...Option) *Ledger {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Ledger{
		store:   store,
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}
}
