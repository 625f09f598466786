package models

import (
	"strings"
	"time"

	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
)

// DefaultCurrency is the festival's settlement currency.
const DefaultCurrency = "INR"

// Sponsorship is an institution's application for sponsor funding, moving
// through the review workflow from applied to a reviewer's verdict.
//
// Invariants:
//   - RequestedAmount > 0
//   - ApprovedAmount is zero until approval and positive afterwards
//   - Status changes only through the Apply* methods after the matching Can*
//     guard passed; callers must run both under the store's per-row lock
type Sponsorship struct {
	ID            id.SponsorshipID `json:"id"`
	InstitutionID id.InstitutionID `json:"institution_id"`

	SponsorName          string `json:"sponsor_name"`
	SponsorContactPerson string `json:"sponsor_contact_person,omitempty"`
	SponsorEmail         string `json:"sponsor_email,omitempty"`
	SponsorPhone         string `json:"sponsor_phone,omitempty"`

	RequestedAmount money.Amount `json:"requested_amount"`
	ApprovedAmount  money.Amount `json:"approved_amount"`
	Currency        string       `json:"currency"`

	SponsorshipType string `json:"sponsorship_type,omitempty"`
	Description     string `json:"description,omitempty"`

	Status          Status `json:"status"`
	ReviewedBy      string `json:"reviewed_by,omitempty"`
	ReviewNotes     string `json:"review_notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`

	ValidUntil time.Time `json:"valid_until,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSponsorship constructs an applied sponsorship. An empty currency falls
// back to the festival default.
func NewSponsorship(sponsorshipID id.SponsorshipID, institutionID id.InstitutionID, sponsorName string, requestedAmount money.Amount, currency string, now time.Time) (*Sponsorship, error) {
	sponsorName = strings.TrimSpace(sponsorName)
	if sponsorName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sponsor name cannot be empty")
	}
	if len(sponsorName) > 255 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sponsor name must be 255 characters or less")
	}
	if institutionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sponsorship requires an institution")
	}
	if !requestedAmount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requested amount must be positive")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Sponsorship{
		ID:              sponsorshipID,
		InstitutionID:   institutionID,
		SponsorName:     sponsorName,
		RequestedAmount: requestedAmount,
		Currency:        currency,
		Status:          StatusApplied,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// transitionError names the current and attempted states, per the workflow's
// error contract.
func (s *Sponsorship) transitionError(next Status) error {
	return dErrors.Newf(dErrors.CodeInvalidTransition, "sponsorship cannot move from %s to %s", s.Status, next)
}

// CanMarkUnderReview guards the move into review, valid only straight from
// applied.
func (s *Sponsorship) CanMarkUnderReview() error {
	if s.Status != StatusApplied {
		return s.transitionError(StatusUnderReview)
	}
	return nil
}

// ApplyMarkUnderReview records the reviewer taking the application.
func (s *Sponsorship) ApplyMarkUnderReview(reviewer string, now time.Time) {
	s.Status = StatusUnderReview
	if reviewer != "" {
		s.ReviewedBy = reviewer
	}
	s.ReviewedAt = now
	s.UpdatedAt = now
}

// CanApprove guards approval for the resolved amount. Review may be skipped;
// approval is valid from applied as well as under_review.
func (s *Sponsorship) CanApprove(amount money.Amount) error {
	if !s.Status.CanTransitionTo(StatusApproved) {
		return s.transitionError(StatusApproved)
	}
	if !amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "approved amount must be positive")
	}
	return nil
}

// ApplyApprove records the verdict, the granted amount and how long the
// grant stays valid.
func (s *Sponsorship) ApplyApprove(amount money.Amount, reviewer, notes string, validUntil, now time.Time) {
	s.Status = StatusApproved
	s.ApprovedAmount = amount
	if reviewer != "" {
		s.ReviewedBy = reviewer
	}
	if notes != "" {
		s.ReviewNotes = notes
	}
	s.ValidUntil = validUntil
	s.ReviewedAt = now
	s.UpdatedAt = now
}

// CanReject guards rejection, valid from applied or under_review.
func (s *Sponsorship) CanReject() error {
	if !s.Status.CanTransitionTo(StatusRejected) {
		return s.transitionError(StatusRejected)
	}
	return nil
}

// ApplyReject records the rejection and its reason.
func (s *Sponsorship) ApplyReject(reason, reviewer string, now time.Time) {
	s.Status = StatusRejected
	s.RejectionReason = reason
	if reviewer != "" {
		s.ReviewedBy = reviewer
	}
	s.ReviewedAt = now
	s.UpdatedAt = now
}

// CanCancel guards cancellation, valid any time before a terminal verdict,
// including after approval while funds are undisbursed.
func (s *Sponsorship) CanCancel() error {
	if !s.Status.CanTransitionTo(StatusCancelled) {
		return s.transitionError(StatusCancelled)
	}
	return nil
}

// ApplyCancel withdraws the application.
func (s *Sponsorship) ApplyCancel(reason string, now time.Time) {
	s.Status = StatusCancelled
	s.CancelReason = reason
	s.UpdatedAt = now
}

// CanExpire guards expiry, reachable only from approved.
func (s *Sponsorship) CanExpire() error {
	if !s.Status.CanTransitionTo(StatusExpired) {
		return s.transitionError(StatusExpired)
	}
	return nil
}

// ApplyExpire lapses an approved grant whose validity window closed.
func (s *Sponsorship) ApplyExpire(now time.Time) {
	s.Status = StatusExpired
	s.UpdatedAt = now
}

// FinalAmount returns the granted amount once approved, the requested
// amount otherwise.
func (s *Sponsorship) FinalAmount() money.Amount {
	if s.ApprovedAmount.IsPositive() {
		return s.ApprovedAmount
	}
	return s.RequestedAmount
}
