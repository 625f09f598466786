package models

import (
	"time"

	"github.com/google/uuid"

	capacitymodels "sportsfest/internal/capacity/models"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
)

// Registration binds one student to one sport category and carries the seat
// token reserved for it.
//
// Invariants:
//   - a student holds at most one live (pending/confirmed/paid) registration
//     per category; the store enforces this
//   - every live registration owns exactly one seat token; cancellation and
//     rejection release it
//   - Status changes only through the Apply* methods after the matching Can*
//     guard passed; callers must run both under the store's per-row lock
//   - a paid registration is cancellable only after its payment was fully
//     refunded
type Registration struct {
	ID         id.RegistrationID `json:"id"`
	StudentID  id.StudentID      `json:"student_id"`
	CategoryID id.CategoryID     `json:"category_id"`
	Status     Status            `json:"status"`

	PaymentID   id.PaymentID `json:"payment_id,omitempty"`
	SeatTokenID uuid.UUID    `json:"seat_token_id"`

	Notes        string `json:"notes,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
	RejectReason string `json:"reject_reason,omitempty"`

	// Archived hides a settled row from listings. The row itself is kept.
	Archived bool `json:"archived,omitempty"`

	RegisteredAt time.Time `json:"registered_at"`
	ConfirmedAt  time.Time `json:"confirmed_at,omitempty"`
	CancelledAt  time.Time `json:"cancelled_at,omitempty"`
	ArchivedAt   time.Time `json:"archived_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewRegistration constructs a pending registration holding the given seat.
// The seat must already be reserved; a registration never exists without one.
func NewRegistration(registrationID id.RegistrationID, studentID id.StudentID, categoryID id.CategoryID, seat capacitymodels.SeatToken, now time.Time) (*Registration, error) {
	if studentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration requires a student")
	}
	if categoryID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration requires a category")
	}
	if seat.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration requires a reserved seat")
	}
	if seat.CategoryID != categoryID {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "seat token belongs to a different category")
	}
	return &Registration{
		ID:           registrationID,
		StudentID:    studentID,
		CategoryID:   categoryID,
		Status:       StatusPending,
		SeatTokenID:  seat.ID,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

// SeatToken reconstructs the capacity token this registration holds, for
// release on cancellation or compensation.
func (r *Registration) SeatToken() capacitymodels.SeatToken {
	return capacitymodels.SeatToken{ID: r.SeatTokenID, CategoryID: r.CategoryID}
}

// transitionError names the rejected move in a stable, coded way.
func (r *Registration) transitionError(next Status) error {
	if r.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeAlreadyTerminal, "registration is already %s", r.Status)
	}
	return dErrors.Newf(dErrors.CodeInvalidTransition, "registration cannot move from %s to %s", r.Status, next)
}

// CanConfirm guards the move to confirmed, taken once the seat reservation
// committed.
func (r *Registration) CanConfirm() error {
	if !r.Status.CanTransitionTo(StatusConfirmed) {
		return r.transitionError(StatusConfirmed)
	}
	return nil
}

func (r *Registration) ApplyConfirm(now time.Time) {
	r.Status = StatusConfirmed
	r.ConfirmedAt = now
	r.UpdatedAt = now
}

// CanAttachPayment guards recording the payment created for this
// registration's fee. Only a confirmed registration without a payment
// may take one.
func (r *Registration) CanAttachPayment() error {
	if r.Status != StatusConfirmed {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot attach a payment to a %s registration", r.Status)
	}
	if !r.PaymentID.IsNil() {
		return dErrors.New(dErrors.CodeConflict, "registration already has a payment")
	}
	return nil
}

func (r *Registration) ApplyAttachPayment(paymentID id.PaymentID, now time.Time) {
	r.PaymentID = paymentID
	r.UpdatedAt = now
}

// CanMarkPaid guards the move to paid, taken when the registration's payment
// settles successfully.
func (r *Registration) CanMarkPaid() error {
	if !r.Status.CanTransitionTo(StatusPaid) {
		return r.transitionError(StatusPaid)
	}
	return nil
}

func (r *Registration) ApplyMarkPaid(now time.Time) {
	r.Status = StatusPaid
	r.UpdatedAt = now
}

// CanCancel guards cancellation. A paid registration refuses to cancel while
// money is held: the caller must refund the payment in full first and pass
// paymentRefunded accordingly.
func (r *Registration) CanCancel(paymentRefunded bool) error {
	if r.Status == StatusPaid {
		if !paymentRefunded {
			return dErrors.New(dErrors.CodePaidRegistration, "cannot cancel a paid registration; refund the payment first")
		}
		return nil
	}
	if !r.Status.CanTransitionTo(StatusCancelled) {
		return r.transitionError(StatusCancelled)
	}
	return nil
}

func (r *Registration) ApplyCancel(reason string, now time.Time) {
	r.Status = StatusCancelled
	r.CancelReason = reason
	r.CancelledAt = now
	r.UpdatedAt = now
}

// CanReject guards an administrative rejection of a not-yet-confirmed
// registration.
func (r *Registration) CanReject() error {
	if !r.Status.CanTransitionTo(StatusRejected) {
		return r.transitionError(StatusRejected)
	}
	return nil
}

func (r *Registration) ApplyReject(reason string, now time.Time) {
	r.Status = StatusRejected
	r.RejectReason = reason
	r.UpdatedAt = now
}

// CanArchive guards the soft delete. Only registrations that no longer hold
// a seat archive; live rows must be cancelled or rejected first.
func (r *Registration) CanArchive() error {
	if r.Archived {
		return dErrors.New(dErrors.CodeConflict, "registration is already archived")
	}
	if r.Status.HoldsSeat() {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot archive a %s registration", r.Status)
	}
	return nil
}

func (r *Registration) ApplyArchive(now time.Time) {
	r.Archived = true
	r.ArchivedAt = now
	r.UpdatedAt = now
}

// HoldsSeat reports whether this registration currently occupies its seat.
func (r *Registration) HoldsSeat() bool {
	return r.Status.HoldsSeat()
}
