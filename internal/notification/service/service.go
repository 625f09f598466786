// Package service queues notifications and delivers them from a background
// worker. Producers enqueue without blocking; the worker drains the queue
// through a pluggable Sender, so a slow mail provider never stalls a
// request handler.
package service

import (
	"context"
	"log/slog"

	notificationmetrics "sportsfest/internal/notification/metrics"
	"sportsfest/internal/notification/models"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/email"
)

// DefaultQueueSize bounds the delivery queue. A full queue rejects new
// notifications rather than blocking producers.
const DefaultQueueSize = 256

// Sender delivers one notification. Implementations live in the sender
// package.
type Sender interface {
	Send(ctx context.Context, n *models.Notification) error
}

type serviceConfig struct {
	logger    *slog.Logger
	metrics   *notificationmetrics.Metrics
	queueSize int
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *notificationmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithQueueSize overrides the queue capacity. Non-positive values are
// ignored.
func WithQueueSize(n int) Option {
	return func(c *serviceConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// Service owns the notification queue and the worker that drains it.
type Service struct {
	inbox   chan *models.Notification
	sender  Sender
	logger  *slog.Logger
	metrics *notificationmetrics.Metrics
}

func New(sender Sender, opts ...Option) *Service {
	cfg := &serviceConfig{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		inbox:   make(chan *models.Notification, cfg.queueSize),
		sender:  sender,
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}
}

// Enqueue accepts a notification for background delivery. It never blocks.
//
// Errors: CodeUnavailable when the queue is full.
func (s *Service) Enqueue(ctx context.Context, n *models.Notification) error {
	select {
	case s.inbox <- n:
		s.metrics.IncrementQueued(n.Kind.String())
		return nil
	default:
		s.metrics.IncrementDropped()
		s.logger.WarnContext(ctx, "notification queue full",
			slog.String("kind", n.Kind.String()),
			slog.String("recipient", email.Mask(n.Recipient)),
		)
		return dErrors.New(dErrors.CodeUnavailable, "notification queue is full")
	}
}

// Run drains the queue until the context ends. Delivery failures are logged
// and counted; the worker keeps running.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-s.inbox:
			if err := s.sender.Send(ctx, n); err != nil {
				s.metrics.IncrementFailed()
				s.logger.ErrorContext(ctx, "notification delivery failed",
					slog.String("notification_id", n.ID.String()),
					slog.String("kind", n.Kind.String()),
					slog.String("recipient", email.Mask(n.Recipient)),
					slog.String("error", err.Error()),
				)
				continue
			}
			s.metrics.IncrementDelivered(n.Kind.String())
		}
	}
}

// Pending reports how many notifications wait in the queue.
func (s *Service) Pending() int {
	return len(s.inbox)
}
