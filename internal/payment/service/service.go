package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"sportsfest/internal/payment/gateway"
	paymentmetrics "sportsfest/internal/payment/metrics"
	"sportsfest/internal/payment/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/money"
)

// Store persists payments. Execute must serialize validate+mutate per
// payment; the refund ceiling depends on it.
type Store interface {
	Create(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error)
	FindByRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.Payment, error)
	FindByProviderOrder(ctx context.Context, provider models.Provider, orderID string) (*models.Payment, error)
	ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Payment, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Payment, error)
	ListAwaitingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Payment, error)
	Execute(ctx context.Context, paymentID id.PaymentID, validate func(*models.Payment) error, mutate func(*models.Payment)) (*models.Payment, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.Status) (int, error)
	CollectedTotal(ctx context.Context) (money.Amount, error)
}

// StoreTx runs a function within a storage transaction. Settling a payment
// and its downstream registration update ride in one transaction so a crash
// cannot separate them.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// OutcomeSubscriber is notified after a registration payment settles.
// Notifications are at-least-once: replayed provider outcomes are forwarded
// again, so implementations must be idempotent.
type OutcomeSubscriber interface {
	OnPaymentOutcome(ctx context.Context, payment *models.Payment) error
}

// Events records integration events next to the settlement that caused them.
// Implementations append to the transactional outbox.
type Events interface {
	Record(ctx context.Context, eventType, aggregateID string, payload any) error
}

type serviceConfig struct {
	logger  *slog.Logger
	metrics *paymentmetrics.Metrics
	events  Events
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *paymentmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithEvents wires the outbox recorder. Without it no events are emitted.
func WithEvents(events Events) Option {
	return func(c *serviceConfig) {
		c.events = events
	}
}

// Service owns the payment lifecycle: creation, provider settlement, refund
// accounting and the timeout sweep.
type Service struct {
	store      Store
	storeTx    StoreTx
	gateways   map[models.Provider]gateway.Gateway
	subscriber OutcomeSubscriber
	events     Events
	logger     *slog.Logger
	metrics    *paymentmetrics.Metrics
	tracer     trace.Tracer
}

func New(store Store, storeTx StoreTx, gateways map[models.Provider]gateway.Gateway, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:    store,
		storeTx:  storeTx,
		gateways: gateways,
		events:   cfg.events,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
		tracer:   otel.Tracer("sportsfest/payment"),
	}
}

// Subscribe registers the outcome subscriber. Wired after construction
// because the registration service and this service reference each other.
func (s *Service) Subscribe(sub OutcomeSubscriber) {
	s.subscriber = sub
}
