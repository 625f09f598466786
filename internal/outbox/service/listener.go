package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// NotifyChannel is the postgres channel the outbox insert trigger notifies.
const NotifyChannel = "outbox_events"

const (
	minReconnectInterval = time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// Listener subscribes to the outbox NOTIFY channel and turns notifications
// into wake signals for the relay, so committed events are delivered without
// waiting out the poll interval.
type Listener struct {
	pq     *pq.Listener
	wake   chan struct{}
	logger *slog.Logger
}

type ListenerOption func(*Listener)

func WithListenerLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

func NewListener(dsn string, opts ...ListenerOption) (*Listener, error) {
	l := &Listener{
		wake:   make(chan struct{}, 1),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}

	pl := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, func(_ pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Error("outbox listener connection event", "error", err)
		}
	})
	if err := pl.Listen(NotifyChannel); err != nil {
		_ = pl.Close()
		return nil, err
	}
	l.pq = pl
	return l, nil
}

// Wake is the channel to hand the relay via WithWake.
func (l *Listener) Wake() <-chan struct{} {
	return l.wake
}

// Run forwards notifications until ctx is cancelled. The signal channel is
// buffered with size one; a wake that is already pending absorbs further
// notifications, which is enough because the relay drains to empty.
func (l *Listener) Run(ctx context.Context) error {
	defer func() {
		_ = l.pq.Close()
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.pq.Notify:
			select {
			case l.wake <- struct{}{}:
			default:
			}
		case <-ping.C:
			if err := l.pq.Ping(); err != nil {
				l.logger.WarnContext(ctx, "outbox listener ping failed", "error", err)
			}
		}
	}
}
