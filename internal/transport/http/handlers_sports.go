package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	sportmodels "sportsfest/internal/sport/models"
	sportservice "sportsfest/internal/sport/service"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/httputil"
	"sportsfest/pkg/requestcontext"
)

// SportService manages the sport and category catalog.
type SportService interface {
	CreateSport(ctx context.Context, name, description string) (*sportmodels.Sport, error)
	GetSport(ctx context.Context, sportID id.SportID) (*sportmodels.Sport, error)
	ListSports(ctx context.Context) ([]*sportmodels.Sport, error)
	CreateCategory(ctx context.Context, params sportservice.CreateCategoryParams) (*sportmodels.Category, error)
	GetCategory(ctx context.Context, categoryID id.CategoryID) (*sportmodels.Category, error)
	ListCategories(ctx context.Context, sportID id.SportID) ([]*sportmodels.Category, error)
	UpdateCategory(ctx context.Context, categoryID id.CategoryID, params sportservice.UpdateCategoryParams) (*sportmodels.Category, error)
	CloseCategory(ctx context.Context, categoryID id.CategoryID) (*sportmodels.Category, error)
	ReopenCategory(ctx context.Context, categoryID id.CategoryID) (*sportmodels.Category, error)
}

type sportHandler struct {
	logger *slog.Logger
	sports SportService
}

func newSportHandler(sports SportService, logger *slog.Logger) *sportHandler {
	return &sportHandler{logger: logger, sports: sports}
}

// register mounts the catalog routes. Reads are public so students can
// browse before logging in; writes are operator-only.
func (h *sportHandler) register(r chi.Router, g Gates) {
	r.Get("/sports", h.handleListSports)
	r.Get("/sports/{sportID}", h.handleGetSport)
	r.Get("/sports/{sportID}/categories", h.handleListCategories)
	r.Get("/categories/{categoryID}", h.handleGetCategory)

	r.With(g.Admin).Post("/sports", h.handleCreateSport)
	r.With(g.Admin).Post("/sports/{sportID}/categories", h.handleCreateCategory)
	r.With(g.Admin).Patch("/categories/{categoryID}", h.handleUpdateCategory)
	r.With(g.Admin).Post("/categories/{categoryID}/close", h.handleCloseCategory)
	r.With(g.Admin).Post("/categories/{categoryID}/reopen", h.handleReopenCategory)
}

type createSportBody struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (b *createSportBody) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func (h *sportHandler) handleCreateSport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[createSportBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sport, err := h.sports.CreateSport(ctx, body.Name, body.Description)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sport)
}

func (h *sportHandler) handleGetSport(w http.ResponseWriter, r *http.Request) {
	sportID, err := id.ParseSportID(chi.URLParam(r, "sportID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sport, err := h.sports.GetSport(r.Context(), sportID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sport)
}

func (h *sportHandler) handleListSports(w http.ResponseWriter, r *http.Request) {
	sports, err := h.sports.ListSports(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sports)
}

type createCategoryBody struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Fee             string `json:"fee,omitempty"`
	Currency        string `json:"currency,omitempty"`
	MaxParticipants int    `json:"max_participants"`
	AgeFrom         int    `json:"age_from,omitempty"`
	AgeTo           int    `json:"age_to,omitempty"`
	GenderAllowed   string `json:"gender_allowed,omitempty"`

	RequiresMedicalCertificate bool `json:"requires_medical_certificate,omitempty"`
	RequiresGuardianConsent    bool `json:"requires_guardian_consent,omitempty"`

	fee           money.Amount
	genderAllowed id.GenderAllowed
}

func (b *createCategoryBody) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if b.Fee != "" {
		var err error
		if b.fee, err = money.Parse(b.Fee); err != nil {
			return err
		}
	}
	if b.GenderAllowed != "" {
		var err error
		if b.genderAllowed, err = id.ParseGenderAllowed(b.GenderAllowed); err != nil {
			return err
		}
	}
	return nil
}

func (h *sportHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sportID, err := id.ParseSportID(chi.URLParam(r, "sportID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[createCategoryBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	category, err := h.sports.CreateCategory(ctx, sportservice.CreateCategoryParams{
		SportID:         sportID,
		Name:            body.Name,
		Description:     body.Description,
		Fee:             body.fee,
		Currency:        body.Currency,
		MaxParticipants: body.MaxParticipants,
		AgeFrom:         body.AgeFrom,
		AgeTo:           body.AgeTo,
		GenderAllowed:   body.genderAllowed,

		RequiresMedicalCertificate: body.RequiresMedicalCertificate,
		RequiresGuardianConsent:    body.RequiresGuardianConsent,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, category)
}

func (h *sportHandler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := id.ParseCategoryID(chi.URLParam(r, "categoryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	category, err := h.sports.GetCategory(r.Context(), categoryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, category)
}

func (h *sportHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	sportID, err := id.ParseSportID(chi.URLParam(r, "sportID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	categories, err := h.sports.ListCategories(r.Context(), sportID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, categories)
}

type updateCategoryBody struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	Fee             *string `json:"fee,omitempty"`
	Currency        *string `json:"currency,omitempty"`
	MaxParticipants *int    `json:"max_participants,omitempty"`
	AgeFrom         *int    `json:"age_from,omitempty"`
	AgeTo           *int    `json:"age_to,omitempty"`
	GenderAllowed   *string `json:"gender_allowed,omitempty"`

	RequiresMedicalCertificate *bool `json:"requires_medical_certificate,omitempty"`
	RequiresGuardianConsent    *bool `json:"requires_guardian_consent,omitempty"`

	fee           *money.Amount
	genderAllowed *id.GenderAllowed
}

func (b *updateCategoryBody) Validate() error {
	if b.Fee != nil {
		parsed, err := money.Parse(*b.Fee)
		if err != nil {
			return err
		}
		b.fee = &parsed
	}
	if b.GenderAllowed != nil {
		parsed, err := id.ParseGenderAllowed(*b.GenderAllowed)
		if err != nil {
			return err
		}
		b.genderAllowed = &parsed
	}
	return nil
}

func (h *sportHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	categoryID, err := id.ParseCategoryID(chi.URLParam(r, "categoryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, ok := httputil.DecodeAndPrepare[updateCategoryBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	category, err := h.sports.UpdateCategory(ctx, categoryID, sportservice.UpdateCategoryParams{
		Name:            body.Name,
		Description:     body.Description,
		Fee:             body.fee,
		Currency:        body.Currency,
		MaxParticipants: body.MaxParticipants,
		AgeFrom:         body.AgeFrom,
		AgeTo:           body.AgeTo,
		GenderAllowed:   body.genderAllowed,

		RequiresMedicalCertificate: body.RequiresMedicalCertificate,
		RequiresGuardianConsent:    body.RequiresGuardianConsent,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, category)
}

func (h *sportHandler) handleCloseCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := id.ParseCategoryID(chi.URLParam(r, "categoryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	category, err := h.sports.CloseCategory(r.Context(), categoryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, category)
}

func (h *sportHandler) handleReopenCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := id.ParseCategoryID(chi.URLParam(r, "categoryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	category, err := h.sports.ReopenCategory(r.Context(), categoryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, category)
}
