package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sportsfest/internal/payment/models"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/requestcontext"
)

// errOutcomeReplay marks a provider outcome that was already applied. It
// never leaves this package; the replay path turns it into a no-op.
var errOutcomeReplay = errors.New("provider outcome already applied")

// Outbox event types emitted by this service. Settlement events record once
// per state change; replayed provider outcomes do not emit again.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCancelled = "payment.cancelled"
	EventPaymentRefunded  = "payment.refunded"
)

type paymentEvent struct {
	PaymentID         string `json:"payment_id"`
	RegistrationID    string `json:"registration_id,omitempty"`
	InstitutionID     string `json:"institution_id,omitempty"`
	Amount            string `json:"amount"`
	Provider          string `json:"provider"`
	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
	Reason            string `json:"reason,omitempty"`
}

func (s *Service) recordEvent(ctx context.Context, eventType string, p *models.Payment, reason string) error {
	if s.events == nil {
		return nil
	}
	payload := paymentEvent{
		PaymentID:         p.ID.String(),
		Amount:            p.Amount.String(),
		Provider:          p.Provider.String(),
		ProviderPaymentID: p.ProviderPaymentID,
		Reason:            reason,
	}
	if !p.RegistrationID.IsNil() {
		payload.RegistrationID = p.RegistrationID.String()
	}
	if !p.InstitutionID.IsNil() {
		payload.InstitutionID = p.InstitutionID.String()
	}
	return s.events.Record(ctx, eventType, p.ID.String(), payload)
}

// CreateParams carries the fields for a new payment. Exactly one of
// RegistrationID and InstitutionID must be set.
type CreateParams struct {
	RegistrationID id.RegistrationID
	InstitutionID  id.InstitutionID
	Amount         money.Amount
	Currency       string
	Provider       models.Provider
	Description    string
}

// Create records an initiated payment, registers an order with the provider
// and leaves the payment pending the provider's outcome.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "payment.Create")
	defer span.End()

	now := requestcontext.Now(ctx)
	payment, err := models.NewPayment(id.NewPaymentID(), params.RegistrationID, params.InstitutionID,
		params.Amount, strings.ToUpper(strings.TrimSpace(params.Currency)), params.Provider, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	payment.Description = strings.TrimSpace(params.Description)

	gw, ok := s.gateways[payment.Provider]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "payment provider %s is not configured", payment.Provider)
	}

	if err := s.store.Create(ctx, payment); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, "registration already has a payment")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "payment owner does not exist")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create payment")
		}
	}

	order, err := gw.CreateOrder(ctx, payment)
	if err != nil {
		return nil, err
	}

	pending, err := s.store.Execute(ctx, payment.ID,
		func(p *models.Payment) error { return p.CanMarkPending() },
		func(p *models.Payment) { p.ApplyMarkPending(order.ProviderOrderID, now) },
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record provider order")
	}

	s.logger.InfoContext(ctx, "payment created",
		"payment_id", pending.ID.String(),
		"amount", pending.Amount.String(),
		"provider", pending.Provider.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementCreated()
	return pending, nil
}

// OutcomeParams carries a provider's verdict on a payment. Outcome must be
// success, failed or cancelled.
type OutcomeParams struct {
	PaymentID         id.PaymentID
	Outcome           models.Status
	ProviderPaymentID string
	Reason            string
	Payload           json.RawMessage
	FromWebhook       bool
}

// outcomeApplied reports whether current already reflects outcome. A success
// later refunded still counts as applied success.
func outcomeApplied(current, outcome models.Status) bool {
	if outcome == models.StatusSuccess {
		return current == models.StatusSuccess ||
			current == models.StatusRefunded ||
			current == models.StatusPartiallyRefunded
	}
	return current == outcome
}

// HandleProviderOutcome settles a payment with the provider's verdict and
// notifies the outcome subscriber, all in one storage transaction.
//
// The call is idempotent: replaying an outcome that was already applied is a
// no-op on the payment but still notifies the subscriber, so a crash after
// settling cannot permanently swallow the downstream effects. A conflicting
// outcome (failing an already-successful payment) is rejected with
// CodeConflict.
func (s *Service) HandleProviderOutcome(ctx context.Context, params OutcomeParams) (*models.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "payment.HandleProviderOutcome",
		trace.WithAttributes(attribute.String("payment_id", params.PaymentID.String())))
	defer span.End()

	switch params.Outcome {
	case models.StatusSuccess, models.StatusFailed, models.StatusCancelled:
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid payment outcome %q", string(params.Outcome))
	}

	now := requestcontext.Now(ctx)
	var settled *models.Payment
	err := s.storeTx.RunInTx(ctx, func(txCtx context.Context) error {
		payment, err := s.store.Execute(txCtx, params.PaymentID,
			func(p *models.Payment) error {
				if !p.Status.Awaiting() {
					if outcomeApplied(p.Status, params.Outcome) {
						return errOutcomeReplay
					}
					return dErrors.Newf(dErrors.CodeConflict, "payment already settled as %s", p.Status)
				}
				switch params.Outcome {
				case models.StatusSuccess:
					return p.CanMarkSuccess()
				case models.StatusFailed:
					return p.CanMarkFailed()
				default:
					return p.CanMarkCancelled()
				}
			},
			func(p *models.Payment) {
				switch params.Outcome {
				case models.StatusSuccess:
					p.ApplyMarkSuccess(params.ProviderPaymentID, params.Payload, now)
				case models.StatusFailed:
					p.ApplyMarkFailed(params.Reason, params.Payload, now)
				default:
					p.ApplyMarkCancelled(params.Reason, now)
				}
				if params.FromWebhook {
					p.WebhookReceived = true
				}
			},
		)
		switch {
		case errors.Is(err, errOutcomeReplay):
			payment, err = s.store.FindByID(txCtx, params.PaymentID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load replayed payment")
			}
			s.logger.InfoContext(txCtx, "provider outcome replayed",
				"payment_id", payment.ID.String(),
				"outcome", params.Outcome.String(),
			)
			s.metrics.IncrementWebhookReplay()
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "payment not found")
		case err != nil:
			return err
		default:
			s.logger.InfoContext(txCtx, "payment settled",
				"payment_id", payment.ID.String(),
				"outcome", params.Outcome.String(),
				"request_id", requestcontext.RequestID(txCtx),
			)
			s.metrics.IncrementSettled(params.Outcome.String())
			if params.Outcome == models.StatusSuccess {
				s.metrics.ObserveSettledAmount(payment.Amount.Minor())
			}
			eventType := EventPaymentSucceeded
			switch params.Outcome {
			case models.StatusFailed:
				eventType = EventPaymentFailed
			case models.StatusCancelled:
				eventType = EventPaymentCancelled
			}
			if err := s.recordEvent(txCtx, eventType, payment, params.Reason); err != nil {
				return err
			}
		}

		if s.subscriber != nil && payment.ForRegistration() {
			if err := s.subscriber.OnPaymentOutcome(txCtx, payment); err != nil {
				return err
			}
		}
		settled = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// Refund applies a refund to a settled payment. A zero amount refunds the
// full remaining balance. The store lock serializes concurrent refunds, so
// two partial refunds cannot both read a stale ledger and overshoot.
func (s *Service) Refund(ctx context.Context, paymentID id.PaymentID, amount money.Amount, reason string) (*models.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "payment.Refund")
	defer span.End()

	if amount.IsNegative() {
		return nil, dErrors.New(dErrors.CodeValidation, "refund amount must be positive")
	}

	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	resolved := amount
	if resolved.IsZero() {
		resolved = payment.Remaining()
	}
	if err := payment.CanRefund(resolved); err != nil {
		if dErrors.HasCode(err, dErrors.CodeRefundExceedsRemaining) {
			s.metrics.IncrementRefundRejected()
		}
		return nil, err
	}

	gw, ok := s.gateways[payment.Provider]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "payment provider %s is not configured", payment.Provider)
	}
	receipt, err := gw.Refund(ctx, payment, resolved, reason)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var refunded *models.Payment
	err = s.storeTx.RunInTx(ctx, func(txCtx context.Context) error {
		applied, err := s.store.Execute(txCtx, paymentID,
			func(p *models.Payment) error { return p.CanRefund(resolved) },
			func(p *models.Payment) { p.ApplyRefund(resolved, reason, receipt.RefundID, now) },
		)
		if err != nil {
			return err
		}
		refunded = applied
		return s.recordEvent(txCtx, EventPaymentRefunded, refunded, reason)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeRefundExceedsRemaining) {
			s.metrics.IncrementRefundRejected()
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "refund applied",
		"payment_id", refunded.ID.String(),
		"refund_amount", resolved.String(),
		"refund_total", refunded.RefundAmount.String(),
		"status", refunded.Status.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementRefundApplied()
	return refunded, nil
}

// FailStaleAwaiting settles payments stuck in initiated or pending longer
// than olderThan as failed, routing each through the same outcome path a
// provider webhook takes so held seats are released.
func (s *Service) FailStaleAwaiting(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-olderThan)
	stale, err := s.store.ListAwaitingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stale payments")
	}

	failed := 0
	for _, p := range stale {
		_, err := s.HandleProviderOutcome(ctx, OutcomeParams{
			PaymentID: p.ID,
			Outcome:   models.StatusFailed,
			Reason:    "payment timed out",
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to time out payment",
				"payment_id", p.ID.String(),
				"error", err,
			)
			continue
		}
		failed++
	}
	return failed, nil
}

func (s *Service) GetPayment(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	payment, err := s.store.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return payment, nil
}

func (s *Service) GetPaymentByRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.Payment, error) {
	payment, err := s.store.FindByRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration has no payment")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return payment, nil
}

// GetPaymentByProviderOrder resolves a webhook's order reference to the
// payment it belongs to.
func (s *Service) GetPaymentByProviderOrder(ctx context.Context, provider models.Provider, orderID string) (*models.Payment, error) {
	if orderID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "provider order id cannot be empty")
	}
	payment, err := s.store.FindByProviderOrder(ctx, provider, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no payment matches the provider order")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return payment, nil
}

func (s *Service) ListPaymentsByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Payment, error) {
	payments, err := s.store.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}

func (s *Service) ListPaymentsByStatus(ctx context.Context, status models.Status) ([]*models.Payment, error) {
	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid payment status: %s", status)
	}
	payments, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}

// Stats summarizes the payment ledger for the admin dashboard.
type Stats struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Awaiting  int          `json:"awaiting"`
	Refunded  int          `json:"refunded"`
	Collected money.Amount `json:"collected"`
}

func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error
	if stats.Total, err = s.store.Count(ctx); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count payments")
	}
	if stats.Succeeded, err = s.store.CountByStatus(ctx, models.StatusSuccess); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count successful payments")
	}
	if stats.Failed, err = s.store.CountByStatus(ctx, models.StatusFailed); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count failed payments")
	}
	if stats.Refunded, err = s.store.CountByStatus(ctx, models.StatusRefunded); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count refunded payments")
	}
	initiated, err := s.store.CountByStatus(ctx, models.StatusInitiated)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count initiated payments")
	}
	pending, err := s.store.CountByStatus(ctx, models.StatusPending)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count pending payments")
	}
	stats.Awaiting = initiated + pending
	if stats.Collected, err = s.store.CollectedTotal(ctx); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sum collected payments")
	}
	return stats, nil
}
