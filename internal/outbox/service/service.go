// Package service implements the transactional outbox: domain services record
// events in the same storage transaction as the state change, and the relay
// delivers them to the configured publisher after commit.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	outboxmetrics "sportsfest/internal/outbox/metrics"
	"sportsfest/internal/outbox/models"
)

// Store persists outbox events. Append must join the transaction carried in
// ctx when one is present.
type Store interface {
	Append(ctx context.Context, e *models.Event) error
	ListUnpublished(ctx context.Context, limit int) ([]*models.Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
	CountUnpublished(ctx context.Context) (int, error)
}

// StoreTx runs a function within a storage transaction. The relay claims and
// stamps each batch inside one transaction so two relay instances cannot
// double-deliver.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Publisher delivers a batch of events to the downstream system. Delivery is
// at-least-once: the relay republishes a batch whose stamp failed, so
// consumers must tolerate duplicates.
type Publisher interface {
	Publish(ctx context.Context, events []*models.Event) error
}

type serviceConfig struct {
	logger  *slog.Logger
	metrics *outboxmetrics.Metrics
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *outboxmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}
