package models

import (
	"encoding/json"
	"time"

	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
)

// DefaultCurrency is the festival's settlement currency.
const DefaultCurrency = "INR"

// Payment tracks a single charge from creation through settlement and any
// refunds. A payment references exactly one owner: the registration it pays
// for, or the institution it was collected from.
//
// Invariants:
//   - Amount > 0
//   - exactly one of RegistrationID / InstitutionID is set
//   - RefundAmount never decreases and never exceeds Amount
//   - Status changes only through the Apply* methods after the matching Can*
//     guard passed; callers must run both under the store's per-payment lock
type Payment struct {
	ID             id.PaymentID      `json:"id"`
	RegistrationID id.RegistrationID `json:"registration_id,omitempty"`
	InstitutionID  id.InstitutionID  `json:"institution_id,omitempty"`

	Amount   money.Amount `json:"amount"`
	Currency string       `json:"currency"`
	Status   Status       `json:"status"`
	Provider Provider     `json:"provider"`

	ProviderPaymentID string          `json:"provider_payment_id,omitempty"`
	ProviderOrderID   string          `json:"provider_order_id,omitempty"`
	ProviderPayload   json.RawMessage `json:"provider_payload,omitempty"`

	Description   string `json:"description,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	RefundAmount money.Amount `json:"refund_amount"`
	RefundReason string       `json:"refund_reason,omitempty"`
	RefundID     string       `json:"refund_id,omitempty"`

	WebhookReceived  bool `json:"webhook_received"`
	WebhookProcessed bool `json:"webhook_processed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPayment constructs an initiated payment owned by either a registration
// or an institution. An empty currency falls back to the festival default;
// an empty provider falls back to local collection.
func NewPayment(paymentID id.PaymentID, registrationID id.RegistrationID, institutionID id.InstitutionID, amount money.Amount, currency string, provider Provider, now time.Time) (*Payment, error) {
	if registrationID.IsNil() == institutionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment must reference exactly one of registration or institution")
	}
	if !amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment amount must be positive")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if provider == "" {
		provider = ProviderLocal
	}
	if !provider.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "invalid payment provider %q", string(provider))
	}
	return &Payment{
		ID:             paymentID,
		RegistrationID: registrationID,
		InstitutionID:  institutionID,
		Amount:         amount,
		Currency:       currency,
		Status:         StatusInitiated,
		Provider:       provider,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// transitionError names the rejected move in a stable, coded way.
func (p *Payment) transitionError(next Status) error {
	if p.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeAlreadyTerminal, "payment is already %s", p.Status)
	}
	return dErrors.Newf(dErrors.CodeInvalidTransition, "payment cannot move from %s to %s", p.Status, next)
}

// CanMarkPending guards the move to pending, taken once a provider order
// exists and the payment awaits the gateway's outcome.
func (p *Payment) CanMarkPending() error {
	if !p.Status.CanTransitionTo(StatusPending) {
		return p.transitionError(StatusPending)
	}
	return nil
}

// ApplyMarkPending records the provider order and moves to pending.
func (p *Payment) ApplyMarkPending(providerOrderID string, now time.Time) {
	p.Status = StatusPending
	if providerOrderID != "" {
		p.ProviderOrderID = providerOrderID
	}
	p.UpdatedAt = now
}

// CanMarkSuccess guards settlement as success.
func (p *Payment) CanMarkSuccess() error {
	if !p.Status.CanTransitionTo(StatusSuccess) {
		return p.transitionError(StatusSuccess)
	}
	return nil
}

// ApplyMarkSuccess settles the payment as success, recording the provider's
// payment reference and raw payload.
func (p *Payment) ApplyMarkSuccess(providerPaymentID string, payload json.RawMessage, now time.Time) {
	p.Status = StatusSuccess
	if providerPaymentID != "" {
		p.ProviderPaymentID = providerPaymentID
	}
	if payload != nil {
		p.ProviderPayload = payload
	}
	p.WebhookProcessed = true
	p.UpdatedAt = now
}

// CanMarkFailed guards settlement as failed.
func (p *Payment) CanMarkFailed() error {
	if !p.Status.CanTransitionTo(StatusFailed) {
		return p.transitionError(StatusFailed)
	}
	return nil
}

// ApplyMarkFailed settles the payment as failed with the provider's reason.
func (p *Payment) ApplyMarkFailed(reason string, payload json.RawMessage, now time.Time) {
	p.Status = StatusFailed
	p.FailureReason = reason
	if payload != nil {
		p.ProviderPayload = payload
	}
	p.WebhookProcessed = true
	p.UpdatedAt = now
}

// CanMarkCancelled guards cancellation, valid only before the provider was
// asked for an outcome.
func (p *Payment) CanMarkCancelled() error {
	if !p.Status.CanTransitionTo(StatusCancelled) {
		return p.transitionError(StatusCancelled)
	}
	return nil
}

// ApplyMarkCancelled cancels an initiated payment.
func (p *Payment) ApplyMarkCancelled(reason string, now time.Time) {
	p.Status = StatusCancelled
	p.FailureReason = reason
	p.UpdatedAt = now
}

// Remaining returns how much of the amount is still refundable.
func (p *Payment) Remaining() money.Amount {
	return p.Amount - p.RefundAmount
}

// CanRefund guards a refund of amount against the cumulative ceiling.
//
// Errors: CodeAlreadyTerminal when the payment is fully refunded, failed or
// cancelled; CodeInvalidTransition when it never succeeded; CodeValidation
// for a non-positive amount; CodeRefundExceedsRemaining when amount would
// push the cumulative refund past the amount paid.
func (p *Payment) CanRefund(amount money.Amount) error {
	if !p.Status.Refundable() {
		return p.transitionError(StatusRefunded)
	}
	if !amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "refund amount must be positive")
	}
	if amount.Cmp(p.Remaining()) > 0 {
		return dErrors.Newf(dErrors.CodeRefundExceedsRemaining,
			"refund of %s exceeds remaining %s", amount, p.Remaining())
	}
	return nil
}

// ApplyRefund accumulates the refund and recomputes the status: refunded when
// the full amount is covered, partially_refunded otherwise.
func (p *Payment) ApplyRefund(amount money.Amount, reason, refundID string, now time.Time) {
	p.RefundAmount += amount
	if p.RefundAmount.Cmp(p.Amount) >= 0 {
		p.Status = StatusRefunded
	} else {
		p.Status = StatusPartiallyRefunded
	}
	if reason != "" {
		p.RefundReason = reason
	}
	if refundID != "" {
		p.RefundID = refundID
	}
	p.UpdatedAt = now
}

// ForRegistration reports whether the payment pays for a registration.
func (p *Payment) ForRegistration() bool {
	return !p.RegistrationID.IsNil()
}
