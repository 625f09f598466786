package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	capacitymodels "sportsfest/internal/capacity/models"
	paymentmodels "sportsfest/internal/payment/models"
	paymentservice "sportsfest/internal/payment/service"
	"sportsfest/internal/registration/models"
	sportmodels "sportsfest/internal/sport/models"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/requestcontext"
)

// CancelReasonPaymentFailed marks cancellations driven by the payment
// compensation path rather than by the registrant.
const CancelReasonPaymentFailed = "payment_failed"

// Outbox event types emitted by this service.
const (
	EventRegistrationConfirmed = "registration.confirmed"
	EventRegistrationPaid      = "registration.paid"
	EventRegistrationCancelled = "registration.cancelled"
	EventRegistrationRejected  = "registration.rejected"
)

// errOutcomeNoop marks a payment outcome the registration already reflects.
// It never leaves this package; the replay path turns it into a no-op.
var errOutcomeNoop = errors.New("payment outcome already reflected")

type registrationEvent struct {
	RegistrationID string `json:"registration_id"`
	StudentID      string `json:"student_id"`
	CategoryID     string `json:"category_id"`
	PaymentID      string `json:"payment_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

func (s *Service) recordEvent(ctx context.Context, eventType string, r *models.Registration, reason string) error {
	if s.events == nil {
		return nil
	}
	payload := registrationEvent{
		RegistrationID: r.ID.String(),
		StudentID:      r.StudentID.String(),
		CategoryID:     r.CategoryID.String(),
		Reason:         reason,
	}
	if !r.PaymentID.IsNil() {
		payload.PaymentID = r.PaymentID.String()
	}
	return s.events.Record(ctx, eventType, r.ID.String(), payload)
}

// RegisterParams carries the fields for a new registration attempt.
type RegisterParams struct {
	StudentID  id.StudentID
	CategoryID id.CategoryID
	Provider   paymentmodels.Provider
	Notes      string
}

// RegisterStudent registers a student into a category. Eligibility and
// paperwork gates run first; then the seat reservation, the confirmed
// registration row and, for fee-charging categories, the opened payment all
// commit in one transaction. A full category or a duplicate live
// registration aborts the whole attempt with nothing persisted.
//
// The returned payment is nil for zero-fee categories: those registrations
// are complete at confirmed.
func (s *Service) RegisterStudent(ctx context.Context, params RegisterParams) (*models.Registration, *paymentmodels.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "registration.RegisterStudent",
		trace.WithAttributes(attribute.String("category_id", params.CategoryID.String())))
	defer span.End()

	student, err := s.students.FindByID(ctx, params.StudentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if !student.IsActive {
		return nil, nil, dErrors.New(dErrors.CodeIneligible, "student is not active")
	}

	category, err := s.categories.FindByID(ctx, params.CategoryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "category not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load category")
	}

	now := requestcontext.Now(ctx)
	if err := category.CheckEligibility(student.Age(now), student.Gender); err != nil {
		return nil, nil, err
	}
	if err := category.CheckDocuments(student.HasMedicalCertificate, student.GuardianConsent); err != nil {
		return nil, nil, err
	}

	var (
		registration *models.Registration
		payment      *paymentmodels.Payment
	)
	err = s.storeTx.RunInTx(ctx, func(txCtx context.Context) error {
		seat, err := s.ledger.Reserve(txCtx, category.ID, category.MaxParticipants)
		if err != nil {
			return err
		}
		registration, payment, err = s.confirmWithSeat(txCtx, params, category, seat, now)
		if err != nil {
			// Under postgres the enclosing rollback returns the seat and an
			// aborted transaction refuses this statement anyway; the memory
			// ledger has no transaction and needs the explicit release.
			_ = s.ledger.Release(txCtx, seat)
			return err
		}
		return s.recordEvent(txCtx, EventRegistrationConfirmed, registration, "")
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "registration confirmed",
		"registration_id", registration.ID.String(),
		"student_id", student.ID.String(),
		"category_id", category.ID.String(),
		"fee", category.Fee.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementCreated()
	s.metrics.IncrementConfirmed()

	if s.notices != nil && student.Email != "" {
		if err := s.notices.RegistrationConfirmed(ctx, student.Email, student.FullName, category.Name); err != nil {
			s.logger.WarnContext(ctx, "could not queue confirmation notice",
				"registration_id", registration.ID.String(),
				"error", err.Error(),
			)
		}
	}
	return registration, payment, nil
}

// confirmWithSeat creates the pending row, confirms it and opens the fee
// payment. Runs with the seat already reserved; the caller compensates the
// reservation when this fails.
func (s *Service) confirmWithSeat(ctx context.Context, params RegisterParams, category *sportmodels.Category, seat capacitymodels.SeatToken, now time.Time) (*models.Registration, *paymentmodels.Payment, error) {
	reg, err := models.NewRegistration(id.NewRegistrationID(), params.StudentID, category.ID, seat, now)
	if err != nil {
		return nil, nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}
	reg.Notes = strings.TrimSpace(params.Notes)

	if err := s.store.Create(ctx, reg); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, nil, dErrors.New(dErrors.CodeConflict, "student already has a live registration in this category")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "student or category no longer exists")
		default:
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
		}
	}

	reg, err = s.store.Execute(ctx, reg.ID,
		func(r *models.Registration) error { return r.CanConfirm() },
		func(r *models.Registration) { r.ApplyConfirm(now) },
	)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm registration")
	}

	if !category.HasFee() {
		return reg, nil, nil
	}

	payment, err := s.payments.Create(ctx, paymentservice.CreateParams{
		RegistrationID: reg.ID,
		Amount:         category.Fee,
		Currency:       category.Currency,
		Provider:       params.Provider,
		Description:    "registration fee: " + category.Name,
	})
	if err != nil {
		return nil, nil, err
	}

	reg, err = s.store.Execute(ctx, reg.ID,
		func(r *models.Registration) error { return r.CanAttachPayment() },
		func(r *models.Registration) { r.ApplyAttachPayment(payment.ID, now) },
	)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach payment")
	}
	return reg, payment, nil
}

// OnPaymentOutcome applies a settled payment's verdict to its registration.
// It runs inside the payment settlement transaction, so the payment row and
// the registration row commit together.
//
// The handling is idempotent: an outcome the registration already reflects
// is a no-op, which keeps webhook replays and crash-redeliveries from
// cancelling twice or releasing a seat twice.
func (s *Service) OnPaymentOutcome(ctx context.Context, payment *paymentmodels.Payment) error {
	ctx, span := s.tracer.Start(ctx, "registration.OnPaymentOutcome",
		trace.WithAttributes(attribute.String("payment_id", payment.ID.String())))
	defer span.End()

	switch payment.Status {
	case paymentmodels.StatusSuccess, paymentmodels.StatusRefunded, paymentmodels.StatusPartiallyRefunded:
		// Refund statuses arrive here only through replayed success
		// outcomes; the registration is paid either way.
		return s.applyPaymentSuccess(ctx, payment)
	case paymentmodels.StatusFailed, paymentmodels.StatusCancelled:
		return s.applyPaymentFailure(ctx, payment)
	default:
		return nil
	}
}

func (s *Service) applyPaymentSuccess(ctx context.Context, payment *paymentmodels.Payment) error {
	now := requestcontext.Now(ctx)
	reg, err := s.store.Execute(ctx, payment.RegistrationID,
		func(r *models.Registration) error {
			if r.Status != models.StatusConfirmed {
				return errOutcomeNoop
			}
			return r.CanMarkPaid()
		},
		func(r *models.Registration) { r.ApplyMarkPaid(now) },
	)
	switch {
	case errors.Is(err, errOutcomeNoop):
		s.logger.InfoContext(ctx, "payment success already reflected",
			"registration_id", payment.RegistrationID.String(),
			"payment_id", payment.ID.String(),
		)
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		// Failing the settlement would wedge the provider's retries on a row
		// that cannot appear; keep the money and leave a trace instead.
		s.logger.ErrorContext(ctx, "payment references unknown registration",
			"registration_id", payment.RegistrationID.String(),
			"payment_id", payment.ID.String(),
		)
		return nil
	case err != nil:
		return err
	}

	s.metrics.IncrementPaid()
	s.logger.InfoContext(ctx, "registration paid",
		"registration_id", reg.ID.String(),
		"payment_id", payment.ID.String(),
	)
	s.sendReceipt(ctx, reg, payment)
	return s.recordEvent(ctx, EventRegistrationPaid, reg, "")
}

// sendReceipt queues the fee receipt. The receipt is best effort: the
// provider holds the money whether or not the student hears about it.
func (s *Service) sendReceipt(ctx context.Context, reg *models.Registration, payment *paymentmodels.Payment) {
	if s.notices == nil {
		return
	}
	student, err := s.students.FindByID(ctx, reg.StudentID)
	if err != nil || student.Email == "" {
		return
	}
	category, err := s.categories.FindByID(ctx, reg.CategoryID)
	if err != nil {
		return
	}
	label := payment.Amount.String() + " " + payment.Currency
	if err := s.notices.PaymentReceipt(ctx, student.Email, label, category.Name); err != nil {
		s.logger.WarnContext(ctx, "could not queue payment receipt",
			"registration_id", reg.ID.String(),
			"error", err.Error(),
		)
	}
}

func (s *Service) applyPaymentFailure(ctx context.Context, payment *paymentmodels.Payment) error {
	now := requestcontext.Now(ctx)
	reg, err := s.store.Execute(ctx, payment.RegistrationID,
		func(r *models.Registration) error {
			if !r.HoldsSeat() {
				return errOutcomeNoop
			}
			return r.CanCancel(false)
		},
		func(r *models.Registration) { r.ApplyCancel(CancelReasonPaymentFailed, now) },
	)
	switch {
	case errors.Is(err, errOutcomeNoop):
		s.logger.InfoContext(ctx, "payment failure already reflected",
			"registration_id", payment.RegistrationID.String(),
			"payment_id", payment.ID.String(),
		)
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		s.logger.ErrorContext(ctx, "payment references unknown registration",
			"registration_id", payment.RegistrationID.String(),
			"payment_id", payment.ID.String(),
		)
		return nil
	case err != nil:
		return err
	}

	if err := s.ledger.Release(ctx, reg.SeatToken()); err != nil {
		return err
	}

	s.metrics.IncrementCancelled(CancelReasonPaymentFailed)
	s.metrics.IncrementSeatCompensation()
	s.logger.InfoContext(ctx, "registration cancelled after payment failure",
		"registration_id", reg.ID.String(),
		"payment_id", payment.ID.String(),
	)
	return s.recordEvent(ctx, EventRegistrationCancelled, reg, CancelReasonPaymentFailed)
}

// Confirm moves a pending registration to confirmed. RegisterStudent
// confirms inside its own transaction, so under normal operation no row is
// ever observable as pending; this exists for operator repair of rows
// seeded or imported in that state.
func (s *Service) Confirm(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Confirm",
		trace.WithAttributes(attribute.String("registration_id", registrationID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	var confirmed *models.Registration
	err := s.storeTx.RunInTx(ctx, func(txCtx context.Context) error {
		reg, err := s.store.Execute(txCtx, registrationID,
			func(r *models.Registration) error { return r.CanConfirm() },
			func(r *models.Registration) { r.ApplyConfirm(now) },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "registration not found")
			}
			return err
		}
		confirmed = reg
		return s.recordEvent(txCtx, EventRegistrationConfirmed, reg, "")
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementConfirmed()
	s.logger.InfoContext(ctx, "registration confirmed",
		"registration_id", confirmed.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return confirmed, nil
}

// Cancel moves the registration to cancelled and releases its seat, both in
// one transaction. A paid registration cancels only once its payment was
// refunded in full; the refund check runs under the registration's row lock
// so the verdict cannot go stale before the cancel applies.
func (s *Service) Cancel(ctx context.Context, registrationID id.RegistrationID, reason string) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Cancel",
		trace.WithAttributes(attribute.String("registration_id", registrationID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	var cancelled *models.Registration
	err := s.storeTx.RunInTx(ctx, func(txCtx context.Context) error {
		reg, err := s.store.Execute(txCtx, registrationID,
			func(r *models.Registration) error {
				refunded, err := s.paymentRefunded(txCtx, r)
				if err != nil {
					return err
				}
				return r.CanCancel(refunded)
			},
			func(r *models.Registration) { r.ApplyCancel(strings.TrimSpace(reason), now) },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "registration not found")
			}
			return err
		}
		if err := s.ledger.Release(txCtx, reg.SeatToken()); err != nil {
			return err
		}
		cancelled = reg
		return s.recordEvent(txCtx, EventRegistrationCancelled, reg, reg.CancelReason)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCancelled("user")
	s.logger.InfoContext(ctx, "registration cancelled",
		"registration_id", cancelled.ID.String(),
		"reason", cancelled.CancelReason,
		"request_id", requestcontext.RequestID(ctx),
	)
	return cancelled, nil
}

// paymentRefunded reports whether the registration's payment was refunded in
// full. Partial refunds do not unlock cancellation.
func (s *Service) paymentRefunded(ctx context.Context, r *models.Registration) (bool, error) {
	if r.Status != models.StatusPaid || r.PaymentID.IsNil() {
		return false, nil
	}
	payment, err := s.payments.GetPaymentByRegistration(ctx, r.ID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return payment.Status == paymentmodels.StatusRefunded, nil
}

// Reject declines a pending registration and releases its seat. Used by
// admissions review before a registration was ever confirmed.
func (s *Service) Reject(ctx context.Context, registrationID id.RegistrationID, reason string) (*models.Registration, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason cannot be empty")
	}

	now := requestcontext.Now(ctx)
	var rejected *models.Registration
	err := s.storeTx.RunInTx(ctx, func(txCtx context.Context) error {
		reg, err := s.store.Execute(txCtx, registrationID,
			func(r *models.Registration) error { return r.CanReject() },
			func(r *models.Registration) { r.ApplyReject(reason, now) },
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "registration not found")
			}
			return err
		}
		if err := s.ledger.Release(txCtx, reg.SeatToken()); err != nil {
			return err
		}
		rejected = reg
		return s.recordEvent(txCtx, EventRegistrationRejected, reg, reason)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementRejected()
	s.logger.InfoContext(ctx, "registration rejected",
		"registration_id", rejected.ID.String(),
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	return rejected, nil
}

// Archive soft-deletes a settled registration: the row drops out of listings
// and counts but stays fetchable by id. Live registrations refuse; cancel or
// reject them first.
func (s *Service) Archive(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	now := requestcontext.Now(ctx)
	archived, err := s.store.Execute(ctx, registrationID,
		func(r *models.Registration) error { return r.CanArchive() },
		func(r *models.Registration) { r.ApplyArchive(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "registration archived",
		"registration_id", archived.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return archived, nil
}

// RefundRegistrationPayment refunds the fee payment of a registration. A
// zero amount refunds the full remaining balance. The registration itself
// stays paid; cancelling after a full refund is the caller's separate step.
func (s *Service) RefundRegistrationPayment(ctx context.Context, registrationID id.RegistrationID, amount money.Amount, reason string) (*paymentmodels.Payment, error) {
	reg, err := s.GetRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.PaymentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotFound, "registration has no payment")
	}

	refunded, err := s.payments.Refund(ctx, reg.PaymentID, amount, reason)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registration payment refunded",
		"registration_id", reg.ID.String(),
		"payment_id", refunded.ID.String(),
		"refund_total", refunded.RefundAmount.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return refunded, nil
}

func (s *Service) GetRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.store.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return reg, nil
}

func (s *Service) ListRegistrationsByStudent(ctx context.Context, studentID id.StudentID) ([]*models.Registration, error) {
	registrations, err := s.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return registrations, nil
}

func (s *Service) ListRegistrationsByCategory(ctx context.Context, categoryID id.CategoryID) ([]*models.Registration, error) {
	registrations, err := s.store.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return registrations, nil
}

func (s *Service) ListRegistrationsByStatus(ctx context.Context, status models.Status) ([]*models.Registration, error) {
	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid registration status: %s", status)
	}
	registrations, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return registrations, nil
}

// Stats summarizes the registration population for the admin dashboard.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Paid      int `json:"paid"`
	Cancelled int `json:"cancelled"`
	Rejected  int `json:"rejected"`
}

func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error
	if stats.Total, err = s.store.Count(ctx); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count registrations")
	}
	counts := []struct {
		status models.Status
		dst    *int
	}{
		{models.StatusPending, &stats.Pending},
		{models.StatusConfirmed, &stats.Confirmed},
		{models.StatusPaid, &stats.Paid},
		{models.StatusCancelled, &stats.Cancelled},
		{models.StatusRejected, &stats.Rejected},
	}
	for _, c := range counts {
		if *c.dst, err = s.store.CountByStatus(ctx, c.status); err != nil {
			return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count registrations")
		}
	}
	return stats, nil
}
