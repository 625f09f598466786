package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	paymentmodels "sportsfest/internal/payment/models"
	regmodels "sportsfest/internal/registration/models"
	registrationservice "sportsfest/internal/registration/service"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/httputil"
	"sportsfest/pkg/requestcontext"
)

// RegistrationService drives the registration lifecycle.
type RegistrationService interface {
	RegisterStudent(ctx context.Context, params registrationservice.RegisterParams) (*regmodels.Registration, *paymentmodels.Payment, error)
	Confirm(ctx context.Context, registrationID id.RegistrationID) (*regmodels.Registration, error)
	Cancel(ctx context.Context, registrationID id.RegistrationID, reason string) (*regmodels.Registration, error)
	Reject(ctx context.Context, registrationID id.RegistrationID, reason string) (*regmodels.Registration, error)
	Archive(ctx context.Context, registrationID id.RegistrationID) (*regmodels.Registration, error)
	RefundRegistrationPayment(ctx context.Context, registrationID id.RegistrationID, amount money.Amount, reason string) (*paymentmodels.Payment, error)
	GetRegistration(ctx context.Context, registrationID id.RegistrationID) (*regmodels.Registration, error)
	ListRegistrationsByStudent(ctx context.Context, studentID id.StudentID) ([]*regmodels.Registration, error)
	ListRegistrationsByStatus(ctx context.Context, status regmodels.Status) ([]*regmodels.Registration, error)
}

type registrationHandler struct {
	logger        *slog.Logger
	registrations RegistrationService
}

func newRegistrationHandler(registrations RegistrationService, logger *slog.Logger) *registrationHandler {
	return &registrationHandler{logger: logger, registrations: registrations}
}

// register mounts the registration routes. Students create, read and cancel
// with their bearer token; admissions decisions, refunds and archiving are
// operator-only.
func (h *registrationHandler) register(r chi.Router, g Gates) {
	r.With(g.Auth).Post("/registrations", h.handleRegister)
	r.With(g.Auth).Get("/registrations/{registrationID}", h.handleGet)
	r.With(g.Auth).Post("/registrations/{registrationID}/cancel", h.handleCancel)
	r.With(g.Auth).Get("/students/{studentID}/registrations", h.handleListByStudent)

	r.With(g.Admin).Get("/registrations", h.handleListByStatus)
	r.With(g.Admin).Post("/registrations/{registrationID}/confirm", h.handleConfirm)
	r.With(g.Admin).Post("/registrations/{registrationID}/reject", h.handleReject)
	r.With(g.Admin).Post("/registrations/{registrationID}/refund", h.handleRefund)
	r.With(g.Admin).Delete("/registrations/{registrationID}", h.handleArchive)
}

type registerBody struct {
	StudentID  string `json:"student_id"`
	CategoryID string `json:"category_id"`
	Provider   string `json:"provider,omitempty"`
	Notes      string `json:"notes,omitempty"`

	studentID  id.StudentID
	categoryID id.CategoryID
	provider   paymentmodels.Provider
}

func (b *registerBody) Validate() error {
	var err error
	if b.studentID, err = id.ParseStudentID(b.StudentID); err != nil {
		return err
	}
	if b.categoryID, err = id.ParseCategoryID(b.CategoryID); err != nil {
		return err
	}
	if b.Provider == "" {
		b.provider = paymentmodels.ProviderLocal
		return nil
	}
	b.provider, err = paymentmodels.ParseProvider(b.Provider)
	return err
}

// registrationCreatedResponse pairs the confirmed registration with the
// payment the caller must drive to completion. Payment is absent for
// zero-fee categories.
type registrationCreatedResponse struct {
	Registration *regmodels.Registration `json:"registration"`
	Payment      *paymentmodels.Payment  `json:"payment,omitempty"`
}

func (h *registrationHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[registerBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	registration, payment, err := h.registrations.RegisterStudent(ctx, registrationservice.RegisterParams{
		StudentID:  body.studentID,
		CategoryID: body.categoryID,
		Provider:   body.provider,
		Notes:      body.Notes,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, registrationCreatedResponse{
		Registration: registration,
		Payment:      payment,
	})
}

func (h *registrationHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	registration, err := h.registrations.GetRegistration(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registration)
}

func (h *registrationHandler) handleListByStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := id.ParseStudentID(chi.URLParam(r, "studentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	registrations, err := h.registrations.ListRegistrationsByStudent(r.Context(), studentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registrations)
}

func (h *registrationHandler) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := regmodels.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	registrations, err := h.registrations.ListRegistrationsByStatus(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registrations)
}

func (h *registrationHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	registration, err := h.registrations.Confirm(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registration)
}

type reasonBody struct {
	Reason string `json:"reason,omitempty"`
}

func (h *registrationHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[reasonBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	registration, err := h.registrations.Cancel(ctx, registrationID, body.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registration)
}

// handleArchive is the delete endpoint: settled rows are hidden, never
// removed.
func (h *registrationHandler) handleArchive(w http.ResponseWriter, r *http.Request) {
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	registration, err := h.registrations.Archive(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registration)
}

func (h *registrationHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[reasonBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	registration, err := h.registrations.Reject(ctx, registrationID, body.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registration)
}

type refundBody struct {
	Amount string `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`

	amount money.Amount
}

// Validate parses the amount. An absent amount means the full remaining
// balance.
func (b *refundBody) Validate() error {
	if b.Amount == "" {
		return nil
	}
	parsed, err := money.Parse(b.Amount)
	if err != nil {
		return err
	}
	if !parsed.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	b.amount = parsed
	return nil
}

func (h *registrationHandler) handleRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[refundBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	payment, err := h.registrations.RefundRegistrationPayment(ctx, registrationID, body.amount, body.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payment)
}
