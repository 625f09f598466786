package service

import (
	"context"
	"errors"

	"sportsfest/internal/sponsorship/models"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/email"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/requestcontext"
)

// ApplyParams carries a new sponsorship application.
type ApplyParams struct {
	InstitutionID   id.InstitutionID
	SponsorName     string
	ContactPerson   string
	Email           string
	Phone           string
	RequestedAmount money.Amount
	Currency        string
	SponsorshipType string
	Description     string
}

// Apply files a sponsorship application in the applied state.
func (s *Service) Apply(ctx context.Context, params ApplyParams) (*models.Sponsorship, error) {
	now := requestcontext.Now(ctx)

	sponsorship, err := models.NewSponsorship(id.NewSponsorshipID(), params.InstitutionID, params.SponsorName, params.RequestedAmount, params.Currency, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	sponsorship.SponsorContactPerson = params.ContactPerson
	sponsorship.SponsorPhone = params.Phone
	sponsorship.SponsorshipType = params.SponsorshipType
	sponsorship.Description = params.Description
	if params.Email != "" {
		normalized, err := email.Normalize(params.Email)
		if err != nil {
			return nil, err
		}
		sponsorship.SponsorEmail = normalized
	}

	if err := s.store.Create(ctx, sponsorship); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sponsorship")
	}

	s.logger.InfoContext(ctx, "sponsorship applied",
		"sponsorship_id", sponsorship.ID,
		"institution_id", sponsorship.InstitutionID,
		"requested_amount", sponsorship.RequestedAmount,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementApplied()
	return sponsorship, nil
}

// MarkUnderReview moves an applied sponsorship into review.
func (s *Service) MarkUnderReview(ctx context.Context, sponsorshipID id.SponsorshipID, reviewer string) (*models.Sponsorship, error) {
	now := requestcontext.Now(ctx)

	sponsorship, err := s.store.Execute(ctx, sponsorshipID,
		func(sp *models.Sponsorship) error { return sp.CanMarkUnderReview() },
		func(sp *models.Sponsorship) { sp.ApplyMarkUnderReview(reviewer, now) },
	)
	if err != nil {
		return nil, s.mapExecuteErr(err)
	}
	return sponsorship, nil
}

// ApproveParams carries a reviewer's approval. A nil Amount grants the
// requested amount.
type ApproveParams struct {
	SponsorshipID id.SponsorshipID
	Amount        *money.Amount
	Reviewer      string
	Notes         string
}

// Approve grants the sponsorship for the resolved amount and stamps its
// validity window.
func (s *Service) Approve(ctx context.Context, params ApproveParams) (*models.Sponsorship, error) {
	now := requestcontext.Now(ctx)
	validUntil := now.Add(s.approvalValidity)

	var granted money.Amount
	sponsorship, err := s.store.Execute(ctx, params.SponsorshipID,
		func(sp *models.Sponsorship) error {
			granted = sp.RequestedAmount
			if params.Amount != nil {
				granted = *params.Amount
			}
			return sp.CanApprove(granted)
		},
		func(sp *models.Sponsorship) {
			sp.ApplyApprove(granted, params.Reviewer, params.Notes, validUntil, now)
		},
	)
	if err != nil {
		return nil, s.mapExecuteErr(err)
	}

	s.logger.InfoContext(ctx, "sponsorship approved",
		"sponsorship_id", sponsorship.ID,
		"approved_amount", sponsorship.ApprovedAmount,
		"valid_until", sponsorship.ValidUntil,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementDecided("approved")
	return sponsorship, nil
}

// Reject records a reviewer's rejection. The reason is mandatory; the
// institution sees it.
func (s *Service) Reject(ctx context.Context, sponsorshipID id.SponsorshipID, reason, reviewer string) (*models.Sponsorship, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason cannot be empty")
	}
	now := requestcontext.Now(ctx)

	sponsorship, err := s.store.Execute(ctx, sponsorshipID,
		func(sp *models.Sponsorship) error { return sp.CanReject() },
		func(sp *models.Sponsorship) { sp.ApplyReject(reason, reviewer, now) },
	)
	if err != nil {
		return nil, s.mapExecuteErr(err)
	}

	s.logger.InfoContext(ctx, "sponsorship rejected",
		"sponsorship_id", sponsorship.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementDecided("rejected")
	return sponsorship, nil
}

// Cancel withdraws an application before disbursement.
func (s *Service) Cancel(ctx context.Context, sponsorshipID id.SponsorshipID, reason string) (*models.Sponsorship, error) {
	now := requestcontext.Now(ctx)

	sponsorship, err := s.store.Execute(ctx, sponsorshipID,
		func(sp *models.Sponsorship) error { return sp.CanCancel() },
		func(sp *models.Sponsorship) { sp.ApplyCancel(reason, now) },
	)
	if err != nil {
		return nil, s.mapExecuteErr(err)
	}

	s.logger.InfoContext(ctx, "sponsorship cancelled",
		"sponsorship_id", sponsorship.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncrementDecided("cancelled")
	return sponsorship, nil
}

// ExpireLapsed lapses approved sponsorships whose validity window has
// closed. The periodic sweep calls this; it returns how many grants were
// expired.
func (s *Service) ExpireLapsed(ctx context.Context, limit int) (int, error) {
	now := requestcontext.Now(ctx)

	lapsed, err := s.store.ListApprovedLapsed(ctx, now, limit)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list lapsed sponsorships")
	}

	expired := 0
	for _, sp := range lapsed {
		_, err := s.store.Execute(ctx, sp.ID,
			func(sp *models.Sponsorship) error { return sp.CanExpire() },
			func(sp *models.Sponsorship) { sp.ApplyExpire(now) },
		)
		if err != nil {
			// A verdict may have landed between the list and the lock.
			if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
				continue
			}
			s.logger.ErrorContext(ctx, "failed to expire sponsorship",
				"sponsorship_id", sp.ID,
				"error", err,
			)
			continue
		}
		expired++
		s.metrics.IncrementExpired()
		s.logger.InfoContext(ctx, "sponsorship expired",
			"sponsorship_id", sp.ID,
			"valid_until", sp.ValidUntil,
		)
	}
	return expired, nil
}

func (s *Service) GetSponsorship(ctx context.Context, sponsorshipID id.SponsorshipID) (*models.Sponsorship, error) {
	sponsorship, err := s.store.FindByID(ctx, sponsorshipID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sponsorship not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sponsorship")
	}
	return sponsorship, nil
}

func (s *Service) ListSponsorshipsByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Sponsorship, error) {
	sponsorships, err := s.store.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sponsorships")
	}
	return sponsorships, nil
}

// ListSponsorshipsByStatus feeds the reviewers' queue.
func (s *Service) ListSponsorshipsByStatus(ctx context.Context, status models.Status) ([]*models.Sponsorship, error) {
	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid sponsorship status: %s", status)
	}
	sponsorships, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sponsorships")
	}
	return sponsorships, nil
}

// Stats summarizes sponsor funding for the admin dashboard.
type Stats struct {
	Total         int          `json:"total"`
	Awaiting      int          `json:"awaiting"`
	Approved      int          `json:"approved"`
	Rejected      int          `json:"rejected"`
	ApprovedTotal money.Amount `json:"approved_total"`
}

func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error
	if stats.Total, err = s.store.Count(ctx); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count sponsorships")
	}
	applied, err := s.store.CountByStatus(ctx, models.StatusApplied)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count applied sponsorships")
	}
	underReview, err := s.store.CountByStatus(ctx, models.StatusUnderReview)
	if err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count sponsorships under review")
	}
	stats.Awaiting = applied + underReview
	if stats.Approved, err = s.store.CountByStatus(ctx, models.StatusApproved); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count approved sponsorships")
	}
	if stats.Rejected, err = s.store.CountByStatus(ctx, models.StatusRejected); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count rejected sponsorships")
	}
	if stats.ApprovedTotal, err = s.store.ApprovedTotal(ctx); err != nil {
		return Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sum approved sponsorships")
	}
	return stats, nil
}

// mapExecuteErr translates store sentinels; coded guard errors pass through.
func (s *Service) mapExecuteErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "sponsorship not found")
	}
	return err
}
