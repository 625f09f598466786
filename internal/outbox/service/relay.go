package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	outboxmetrics "sportsfest/internal/outbox/metrics"
	"sportsfest/pkg/requestcontext"
)

const (
	// DefaultPollInterval bounds delivery latency when no NOTIFY wake
	// arrives (memory mode, or a missed notification).
	DefaultPollInterval = 5 * time.Second
	// DefaultBatchSize is how many events one drain pass claims.
	DefaultBatchSize = 100
)

// Relay drains unpublished events to the publisher. It wakes on the ticker
// and, when a wake channel is wired, immediately on each NOTIFY from the
// outbox table's insert trigger.
type Relay struct {
	store     Store
	storeTx   StoreTx
	publisher Publisher
	logger    *slog.Logger
	metrics   *outboxmetrics.Metrics

	interval time.Duration
	batch    int
	wake     <-chan struct{}
}

type RelayOption func(*Relay)

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

// WithWake wires a channel that triggers an immediate drain pass, typically
// fed by a postgres LISTEN subscription.
func WithWake(ch <-chan struct{}) RelayOption {
	return func(r *Relay) {
		r.wake = ch
	}
}

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithRelayMetrics(m *outboxmetrics.Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

func NewRelay(store Store, storeTx StoreTx, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		store:     store,
		storeTx:   storeTx,
		publisher: publisher,
		interval:  DefaultPollInterval,
		batch:     DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Run drains until ctx is cancelled. Delivery failures are logged and
// retried on the next pass; the relay itself only stops with its context.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-r.wake:
		}
		if err := r.Drain(ctx); err != nil {
			r.metrics.IncrementPublishFailure()
			r.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
		}
	}
}

// Drain claims and delivers batches until the outbox is empty. Each batch is
// claimed, published and stamped within one storage transaction.
func (r *Relay) Drain(ctx context.Context) error {
	for {
		delivered := 0
		err := r.storeTx.RunInTx(ctx, func(txCtx context.Context) error {
			events, err := r.store.ListUnpublished(txCtx, r.batch)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return nil
			}
			if err := r.publisher.Publish(txCtx, events); err != nil {
				return err
			}
			ids := make([]uuid.UUID, len(events))
			for i, e := range events {
				ids[i] = e.ID
			}
			if err := r.store.MarkPublished(txCtx, ids, requestcontext.Now(txCtx)); err != nil {
				return err
			}
			delivered = len(events)
			return nil
		})
		if err != nil {
			return err
		}
		if delivered == 0 {
			r.updateBacklog(ctx)
			return nil
		}
		r.metrics.AddPublished(delivered)
	}
}

func (r *Relay) updateBacklog(ctx context.Context) {
	backlog, err := r.store.CountUnpublished(ctx)
	if err != nil {
		return
	}
	r.metrics.SetBacklog(backlog)
}
