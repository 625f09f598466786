package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	capacitymodels "sportsfest/internal/capacity/models"
	paymentmodels "sportsfest/internal/payment/models"
	paymentservice "sportsfest/internal/payment/service"
	registrationmetrics "sportsfest/internal/registration/metrics"
	"sportsfest/internal/registration/models"
	sportmodels "sportsfest/internal/sport/models"
	studentmodels "sportsfest/internal/student/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/money"
)

// Store persists registrations. Execute must serialize validate+mutate per
// registration; the cancel-after-refund check depends on it. Create must
// refuse a second live registration for the same student and category.
type Store interface {
	Create(ctx context.Context, r *models.Registration) error
	FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	ListByStudent(ctx context.Context, studentID id.StudentID) ([]*models.Registration, error)
	ListByCategory(ctx context.Context, categoryID id.CategoryID) ([]*models.Registration, error)
	ListByStatus(ctx context.Context, status models.Status) ([]*models.Registration, error)
	Execute(ctx context.Context, registrationID id.RegistrationID, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.Status) (int, error)
}

// StoreTx runs a function within a storage transaction. Registering rides the
// seat reservation, the registration row and the fee payment in one
// transaction so a crash cannot separate them.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Ledger reserves and releases category seats.
type Ledger interface {
	Reserve(ctx context.Context, categoryID id.CategoryID, maxParticipants int) (capacitymodels.SeatToken, error)
	Release(ctx context.Context, token capacitymodels.SeatToken) error
}

// CategoryStore resolves the category a student registers into.
type CategoryStore interface {
	FindByID(ctx context.Context, categoryID id.CategoryID) (*sportmodels.Category, error)
}

// StudentStore resolves the registering student.
type StudentStore interface {
	FindByID(ctx context.Context, studentID id.StudentID) (*studentmodels.Student, error)
}

// Payments opens and refunds registration fee payments.
type Payments interface {
	Create(ctx context.Context, params paymentservice.CreateParams) (*paymentmodels.Payment, error)
	GetPaymentByRegistration(ctx context.Context, registrationID id.RegistrationID) (*paymentmodels.Payment, error)
	Refund(ctx context.Context, paymentID id.PaymentID, amount money.Amount, reason string) (*paymentmodels.Payment, error)
}

// Events records integration events next to the state change that caused
// them. Implementations append to the transactional outbox, so a recorded
// event is durable iff the enclosing transaction commits.
type Events interface {
	Record(ctx context.Context, eventType, aggregateID string, payload any) error
}

// Notices queues best-effort student notifications. Satisfied by the
// notification service; failures are logged and never fail the operation.
type Notices interface {
	RegistrationConfirmed(ctx context.Context, address, studentName, categoryName string) error
	PaymentReceipt(ctx context.Context, address, amountLabel, categoryName string) error
}

type serviceConfig struct {
	logger  *slog.Logger
	metrics *registrationmetrics.Metrics
	events  Events
	notices Notices
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *registrationmetrics.Metrics) Option {
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

// WithNotices wires student notifications. Without it no notices are sent.
func WithNotices(notices Notices) Option {
	return func(c *serviceConfig) {
		c.notices = notices
	}
}

// Service owns the registration lifecycle: registering with an atomic seat
// reserve, cancellation with seat release, and the payment-outcome
// compensation path.
type Service struct {
	store      Store
	storeTx    StoreTx
	ledger     Ledger
	categories CategoryStore
	students   StudentStore
	payments   Payments
	events     Events
	notices    Notices
	logger     *slog.Logger
	metrics    *registrationmetrics.Metrics
	tracer     trace.Tracer
}

func New(store Store, storeTx StoreTx, ledger Ledger, categories CategoryStore, students StudentStore, payments Payments, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:      store,
		storeTx:    storeTx,
		ledger:     ledger,
		categories: categories,
		students:   students,
		payments:   payments,
		events:     cfg.events,
		notices:    cfg.notices,
		logger:     cfg.logger,
		metrics:    cfg.metrics,
		tracer:     otel.Tracer("sportsfest/registration"),
	}
}
