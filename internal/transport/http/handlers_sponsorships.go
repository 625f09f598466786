package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	sponmodels "sportsfest/internal/sponsorship/models"
	sponsorshipservice "sportsfest/internal/sponsorship/service"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/httputil"
	"sportsfest/pkg/requestcontext"
)

// SponsorshipService runs the sponsorship review workflow.
type SponsorshipService interface {
	Apply(ctx context.Context, params sponsorshipservice.ApplyParams) (*sponmodels.Sponsorship, error)
	MarkUnderReview(ctx context.Context, sponsorshipID id.SponsorshipID, reviewer string) (*sponmodels.Sponsorship, error)
	Approve(ctx context.Context, params sponsorshipservice.ApproveParams) (*sponmodels.Sponsorship, error)
	Reject(ctx context.Context, sponsorshipID id.SponsorshipID, reason, reviewer string) (*sponmodels.Sponsorship, error)
	Cancel(ctx context.Context, sponsorshipID id.SponsorshipID, reason string) (*sponmodels.Sponsorship, error)
	GetSponsorship(ctx context.Context, sponsorshipID id.SponsorshipID) (*sponmodels.Sponsorship, error)
	ListSponsorshipsByStatus(ctx context.Context, status sponmodels.Status) ([]*sponmodels.Sponsorship, error)
}

type sponsorshipHandler struct {
	logger       *slog.Logger
	sponsorships SponsorshipService
}

func newSponsorshipHandler(sponsorships SponsorshipService, logger *slog.Logger) *sponsorshipHandler {
	return &sponsorshipHandler{logger: logger, sponsorships: sponsorships}
}

// register mounts the sponsorship routes. Applying and tracking an
// application are open: sponsors are outside parties without accounts, and
// the application id is the tracking capability. Review decisions are
// operator-only.
func (h *sponsorshipHandler) register(r chi.Router, g Gates) {
	r.Post("/sponsorships", h.handleApply)
	r.Get("/sponsorships/{sponsorshipID}", h.handleGet)

	r.With(g.Admin).Get("/sponsorships", h.handleListByStatus)
	r.With(g.Admin).Post("/sponsorships/{sponsorshipID}/review", h.handleMarkUnderReview)
	r.With(g.Admin).Post("/sponsorships/{sponsorshipID}/approve", h.handleApprove)
	r.With(g.Admin).Post("/sponsorships/{sponsorshipID}/reject", h.handleReject)
	r.With(g.Admin).Post("/sponsorships/{sponsorshipID}/cancel", h.handleCancel)
}

type applySponsorshipBody struct {
	InstitutionID   string `json:"institution_id"`
	SponsorName     string `json:"sponsor_name"`
	ContactPerson   string `json:"contact_person,omitempty"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	RequestedAmount string `json:"requested_amount"`
	Currency        string `json:"currency,omitempty"`
	SponsorshipType string `json:"sponsorship_type,omitempty"`
	Description     string `json:"description,omitempty"`

	institutionID   id.InstitutionID
	requestedAmount money.Amount
}

func (b *applySponsorshipBody) Validate() error {
	var err error
	if b.institutionID, err = id.ParseInstitutionID(b.InstitutionID); err != nil {
		return err
	}
	if strings.TrimSpace(b.SponsorName) == "" {
		return dErrors.New(dErrors.CodeValidation, "sponsor_name is required")
	}
	if b.requestedAmount, err = money.Parse(b.RequestedAmount); err != nil {
		return err
	}
	return nil
}

func (h *sponsorshipHandler) handleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[applySponsorshipBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sponsorship, err := h.sponsorships.Apply(ctx, sponsorshipservice.ApplyParams{
		InstitutionID:   body.institutionID,
		SponsorName:     body.SponsorName,
		ContactPerson:   body.ContactPerson,
		Email:           body.Email,
		Phone:           body.Phone,
		RequestedAmount: body.requestedAmount,
		Currency:        body.Currency,
		SponsorshipType: body.SponsorshipType,
		Description:     body.Description,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sponsorship)
}

func (h *sponsorshipHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	sponsorshipID, err := id.ParseSponsorshipID(chi.URLParam(r, "sponsorshipID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sponsorship, err := h.sponsorships.GetSponsorship(r.Context(), sponsorshipID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sponsorship)
}

func (h *sponsorshipHandler) handleListByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := sponmodels.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sponsorships, err := h.sponsorships.ListSponsorshipsByStatus(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sponsorships)
}

type reviewBody struct {
	Reviewer string `json:"reviewer,omitempty"`
}

func (h *sponsorshipHandler) handleMarkUnderReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sponsorshipID, err := id.ParseSponsorshipID(chi.URLParam(r, "sponsorshipID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[reviewBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sponsorship, err := h.sponsorships.MarkUnderReview(ctx, sponsorshipID, body.Reviewer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sponsorship)
}

type approveBody struct {
	Amount   string `json:"amount,omitempty"`
	Reviewer string `json:"reviewer,omitempty"`
	Notes    string `json:"notes,omitempty"`

	amount *money.Amount
}

// Validate parses the granted amount. An absent amount approves the
// requested figure.
func (b *approveBody) Validate() error {
	if b.Amount == "" {
		return nil
	}
	parsed, err := money.Parse(b.Amount)
	if err != nil {
		return err
	}
	b.amount = &parsed
	return nil
}

func (h *sponsorshipHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sponsorshipID, err := id.ParseSponsorshipID(chi.URLParam(r, "sponsorshipID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[approveBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sponsorship, err := h.sponsorships.Approve(ctx, sponsorshipservice.ApproveParams{
		SponsorshipID: sponsorshipID,
		Amount:        body.amount,
		Reviewer:      body.Reviewer,
		Notes:         body.Notes,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sponsorship)
}

type rejectSponsorshipBody struct {
	Reason   string `json:"reason,omitempty"`
	Reviewer string `json:"reviewer,omitempty"`
}

func (h *sponsorshipHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sponsorshipID, err := id.ParseSponsorshipID(chi.URLParam(r, "sponsorshipID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[rejectSponsorshipBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sponsorship, err := h.sponsorships.Reject(ctx, sponsorshipID, body.Reason, body.Reviewer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sponsorship)
}

func (h *sponsorshipHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sponsorshipID, err := id.ParseSponsorshipID(chi.URLParam(r, "sponsorshipID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[reasonBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sponsorship, err := h.sponsorships.Cancel(ctx, sponsorshipID, body.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sponsorship)
}
