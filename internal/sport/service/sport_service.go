package service

import (
	"context"
	"errors"
	"strings"

	"sportsfest/internal/sport/models"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/requestcontext"
)

// CreateCategoryParams carries the admin-supplied fields for a new category.
// Zero values fall back to the festival defaults (ceiling 100, currency INR,
// gender policy "any").
type CreateCategoryParams struct {
	SportID         id.SportID
	Name            string
	Description     string
	Fee             money.Amount
	Currency        string
	MaxParticipants int
	AgeFrom         int
	AgeTo           int
	GenderAllowed   id.GenderAllowed

	RequiresMedicalCertificate bool
	RequiresGuardianConsent    bool
}

// UpdateCategoryParams carries partial category updates; nil fields are left
// unchanged.
type UpdateCategoryParams struct {
	Name            *string
	Description     *string
	Fee             *money.Amount
	Currency        *string
	MaxParticipants *int
	AgeFrom         *int
	AgeTo           *int
	GenderAllowed   *id.GenderAllowed

	RequiresMedicalCertificate *bool
	RequiresGuardianConsent    *bool
}

func (s *Service) CreateSport(ctx context.Context, name, description string) (*models.Sport, error) {
	sport, err := models.NewSport(id.NewSportID(), name, description, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.sports.CreateIfNameAvailable(ctx, sport); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "sport name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sport")
	}

	s.logger.InfoContext(ctx, "sport created",
		"sport_id", sport.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementSportCreated()
	return sport, nil
}

func (s *Service) GetSport(ctx context.Context, sportID id.SportID) (*models.Sport, error) {
	sport, err := s.sports.FindByID(ctx, sportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sport not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sport")
	}
	return sport, nil
}

func (s *Service) ListSports(ctx context.Context) ([]*models.Sport, error) {
	sports, err := s.sports.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sports")
	}
	return sports, nil
}

// CreateCategory opens a new registrable category under an existing sport.
func (s *Service) CreateCategory(ctx context.Context, params CreateCategoryParams) (*models.Category, error) {
	if _, err := s.GetSport(ctx, params.SportID); err != nil {
		return nil, err
	}

	category, err := models.NewCategory(id.NewCategoryID(), params.SportID, params.Name, params.Fee, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	category.Description = strings.TrimSpace(params.Description)
	if params.Currency != "" {
		category.Currency = strings.ToUpper(strings.TrimSpace(params.Currency))
	}
	if params.MaxParticipants != 0 {
		category.MaxParticipants = params.MaxParticipants
	}
	category.AgeFrom = params.AgeFrom
	category.AgeTo = params.AgeTo
	if params.GenderAllowed != "" {
		category.GenderAllowed = params.GenderAllowed
	}
	category.RequiresMedicalCertificate = params.RequiresMedicalCertificate
	category.RequiresGuardianConsent = params.RequiresGuardianConsent

	if err := category.Validate(); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
	}

	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "category name must be unique within the sport")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sport not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create category")
	}

	s.logger.InfoContext(ctx, "category created",
		"category_id", category.ID.String(),
		"sport_id", category.SportID.String(),
		"fee", category.Fee.String(),
		"max_participants", category.MaxParticipants,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementCategoryCreated()
	return category, nil
}

func (s *Service) GetCategory(ctx context.Context, categoryID id.CategoryID) (*models.Category, error) {
	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "category not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load category")
	}
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context, sportID id.SportID) ([]*models.Category, error) {
	categories, err := s.categories.ListBySport(ctx, sportID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list categories")
	}
	return categories, nil
}

// UpdateCategory applies a partial update under the store's row lock so the
// resulting state is validated against concurrent mutation.
func (s *Service) UpdateCategory(ctx context.Context, categoryID id.CategoryID, params UpdateCategoryParams) (*models.Category, error) {
	now := requestcontext.Now(ctx)
	category, err := s.categories.Execute(ctx, categoryID,
		func(c *models.Category) error {
			scratch := *c
			applyCategoryUpdate(&scratch, params)
			if err := scratch.Validate(); err != nil {
				return dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
			}
			return nil
		},
		func(c *models.Category) {
			applyCategoryUpdate(c, params)
			c.UpdatedAt = now
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "category not found")
		}
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update category")
	}
	return category, nil
}

// CloseCategory stops new registrations without touching existing ones.
func (s *Service) CloseCategory(ctx context.Context, categoryID id.CategoryID) (*models.Category, error) {
	now := requestcontext.Now(ctx)
	category, err := s.categories.Execute(ctx, categoryID,
		func(c *models.Category) error {
			if !c.IsActive {
				return dErrors.New(dErrors.CodeConflict, "category is already closed")
			}
			return nil
		},
		func(c *models.Category) {
			c.Deactivate(now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "category not found")
		}
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to close category")
	}

	s.logger.InfoContext(ctx, "category closed",
		"category_id", category.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementCategoryClosed()
	return category, nil
}

// ReopenCategory reopens a closed category for registration.
func (s *Service) ReopenCategory(ctx context.Context, categoryID id.CategoryID) (*models.Category, error) {
	now := requestcontext.Now(ctx)
	category, err := s.categories.Execute(ctx, categoryID,
		func(c *models.Category) error {
			if c.IsActive {
				return dErrors.New(dErrors.CodeConflict, "category is already open")
			}
			return nil
		},
		func(c *models.Category) {
			c.Reactivate(now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "category not found")
		}
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reopen category")
	}
	return category, nil
}

func applyCategoryUpdate(c *models.Category, params UpdateCategoryParams) {
	if params.Name != nil {
		c.Name = strings.TrimSpace(*params.Name)
	}
	if params.Description != nil {
		c.Description = strings.TrimSpace(*params.Description)
	}
	if params.Fee != nil {
		c.Fee = *params.Fee
	}
	if params.Currency != nil {
		c.Currency = strings.ToUpper(strings.TrimSpace(*params.Currency))
	}
	if params.MaxParticipants != nil {
		c.MaxParticipants = *params.MaxParticipants
	}
	if params.AgeFrom != nil {
		c.AgeFrom = *params.AgeFrom
	}
	if params.AgeTo != nil {
		c.AgeTo = *params.AgeTo
	}
	if params.GenderAllowed != nil {
		c.GenderAllowed = *params.GenderAllowed
	}
	if params.RequiresMedicalCertificate != nil {
		c.RequiresMedicalCertificate = *params.RequiresMedicalCertificate
	}
	if params.RequiresGuardianConsent != nil {
		c.RequiresGuardianConsent = *params.RequiresGuardianConsent
	}
}
