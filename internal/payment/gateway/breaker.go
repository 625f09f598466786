package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sportsfest/internal/payment/models"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/circuit"
)

// DefaultCooldown is how long an open breaker waits between probe calls.
const DefaultCooldown = 30 * time.Second

// Breaker wraps a provider integration behind a circuit breaker. A hosted
// provider that starts timing out would otherwise stall every registration
// holding a seat; after enough consecutive failures the wrapper fails fast
// with CodeUnavailable instead. While open, one probe call per cooldown is
// let through, and enough successful probes close the circuit again.
type Breaker struct {
	inner    Gateway
	circuit  *circuit.Breaker
	cooldown time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	lastProbe time.Time
}

type BreakerOption func(*Breaker)

// WithCooldown sets the wait between probe calls while the circuit is open.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		b.cooldown = d
	}
}

// WithLogger sets the logger for open/close transitions.
func WithLogger(logger *slog.Logger) BreakerOption {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// WithCircuit replaces the default breaker, for callers that need their own
// thresholds.
func WithCircuit(c *circuit.Breaker) BreakerOption {
	return func(b *Breaker) {
		b.circuit = c
	}
}

// NewBreaker wraps inner. The name labels the circuit in logs; pass the
// provider name.
func NewBreaker(name string, inner Gateway, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		inner:    inner,
		circuit:  circuit.New(name),
		cooldown: DefaultCooldown,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) CreateOrder(ctx context.Context, payment *models.Payment) (Order, error) {
	if !b.allow() {
		return Order{}, b.suspended()
	}
	order, err := b.inner.CreateOrder(ctx, payment)
	b.observe(ctx, err)
	return order, err
}

func (b *Breaker) Refund(ctx context.Context, payment *models.Payment, amount money.Amount, reason string) (RefundReceipt, error) {
	if !b.allow() {
		return RefundReceipt{}, b.suspended()
	}
	receipt, err := b.inner.Refund(ctx, payment, amount, reason)
	b.observe(ctx, err)
	return receipt, err
}

// allow admits every call while the circuit is closed, and one probe per
// cooldown while it is open.
func (b *Breaker) allow() bool {
	if !b.circuit.IsOpen() {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if time.Since(b.lastProbe) < b.cooldown {
		return false
	}
	b.lastProbe = time.Now()
	return true
}

func (b *Breaker) observe(ctx context.Context, err error) {
	if err == nil {
		if _, change := b.circuit.RecordSuccess(); change.Closed {
			b.logger.InfoContext(ctx, "payment gateway circuit closed", "gateway", b.circuit.Name())
		}
		return
	}
	b.mu.Lock()
	b.lastProbe = time.Now()
	b.mu.Unlock()
	if _, change := b.circuit.RecordFailure(); change.Opened {
		b.logger.WarnContext(ctx, "payment gateway circuit opened", "gateway", b.circuit.Name(), "error", err)
	}
}

func (b *Breaker) suspended() error {
	return dErrors.Newf(dErrors.CodeUnavailable, "%s gateway suspended after repeated failures", b.circuit.Name())
}
