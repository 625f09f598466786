package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sportsfest/internal/sponsorship/models"
	sponsorshipstore "sportsfest/internal/sponsorship/store/sponsorship"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
	"sportsfest/pkg/requestcontext"
)

type SponsorshipServiceSuite struct {
	suite.Suite
	service *Service
	store   *sponsorshipstore.InMemory
	ctx     context.Context
	now     time.Time
}

func TestSponsorshipServiceSuite(t *testing.T) {
	suite.Run(t, new(SponsorshipServiceSuite))
}

func (s *SponsorshipServiceSuite) SetupTest() {
	s.store = sponsorshipstore.NewInMemory()
	s.service = New(s.store)
	s.now = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *SponsorshipServiceSuite) apply(amount money.Amount) *models.Sponsorship {
	sponsorship, err := s.service.Apply(s.ctx, ApplyParams{
		InstitutionID:   id.NewInstitutionID(),
		SponsorName:     "Deccan Sports Goods",
		Email:           "Sponsor@Deccan.example",
		RequestedAmount: amount,
	})
	s.Require().NoError(err)
	return sponsorship
}

func (s *SponsorshipServiceSuite) TestApply() {
	s.Run("files an application", func() {
		sponsorship := s.apply(money.MustParse("50000.00"))
		s.Equal(models.StatusApplied, sponsorship.Status)
		s.Equal("INR", sponsorship.Currency)
		s.Equal("sponsor@deccan.example", sponsorship.SponsorEmail)

		stored, err := s.service.GetSponsorship(s.ctx, sponsorship.ID)
		s.Require().NoError(err)
		s.Equal(sponsorship.ID, stored.ID)
	})

	s.Run("rejects invalid input as validation", func() {
		_, err := s.service.Apply(s.ctx, ApplyParams{
			InstitutionID:   id.NewInstitutionID(),
			SponsorName:     "",
			RequestedAmount: money.MustParse("100.00"),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects malformed email", func() {
		_, err := s.service.Apply(s.ctx, ApplyParams{
			InstitutionID:   id.NewInstitutionID(),
			SponsorName:     "Apex Beverages",
			Email:           "not-an-address",
			RequestedAmount: money.MustParse("100.00"),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *SponsorshipServiceSuite) TestReviewWorkflow() {
	s.Run("review then approve with a reduced amount", func() {
		sponsorship := s.apply(money.MustParse("50000.00"))

		underReview, err := s.service.MarkUnderReview(s.ctx, sponsorship.ID, "treasurer")
		s.Require().NoError(err)
		s.Equal(models.StatusUnderReview, underReview.Status)
		s.Equal("treasurer", underReview.ReviewedBy)

		granted := money.MustParse("40000.00")
		approved, err := s.service.Approve(s.ctx, ApproveParams{
			SponsorshipID: sponsorship.ID,
			Amount:        &granted,
			Reviewer:      "director",
			Notes:         "reduced to fit budget",
		})
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Status)
		s.Equal(granted, approved.ApprovedAmount)
		s.Equal(s.now.Add(DefaultApprovalValidity), approved.ValidUntil)
	})

	s.Run("approval without an amount grants the requested amount", func() {
		sponsorship := s.apply(money.MustParse("25000.00"))

		approved, err := s.service.Approve(s.ctx, ApproveParams{SponsorshipID: sponsorship.ID, Reviewer: "director"})
		s.Require().NoError(err)
		s.Equal(money.MustParse("25000.00"), approved.ApprovedAmount)
	})

	s.Run("approval rejects a non-positive amount", func() {
		sponsorship := s.apply(money.MustParse("25000.00"))

		zero := money.Zero
		_, err := s.service.Approve(s.ctx, ApproveParams{SponsorshipID: sponsorship.ID, Amount: &zero})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejection requires a reason", func() {
		sponsorship := s.apply(money.MustParse("25000.00"))

		_, err := s.service.Reject(s.ctx, sponsorship.ID, "", "director")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		rejected, err := s.service.Reject(s.ctx, sponsorship.ID, "sponsor failed verification", "director")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, rejected.Status)
		s.Equal("sponsor failed verification", rejected.RejectionReason)
	})

	s.Run("verdict on a settled application names both states", func() {
		sponsorship := s.apply(money.MustParse("25000.00"))
		_, err := s.service.Reject(s.ctx, sponsorship.ID, "duplicate application", "director")
		s.Require().NoError(err)

		_, err = s.service.Approve(s.ctx, ApproveParams{SponsorshipID: sponsorship.ID})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		s.Contains(err.Error(), "rejected")
		s.Contains(err.Error(), "approved")
	})

	s.Run("unknown sponsorship", func() {
		_, err := s.service.MarkUnderReview(s.ctx, id.NewSponsorshipID(), "treasurer")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *SponsorshipServiceSuite) TestCancel() {
	s.Run("cancels an approved grant", func() {
		sponsorship := s.apply(money.MustParse("25000.00"))
		_, err := s.service.Approve(s.ctx, ApproveParams{SponsorshipID: sponsorship.ID})
		s.Require().NoError(err)

		cancelled, err := s.service.Cancel(s.ctx, sponsorship.ID, "funds redirected")
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, cancelled.Status)
		s.Equal("funds redirected", cancelled.CancelReason)
	})

	s.Run("cancel is final", func() {
		sponsorship := s.apply(money.MustParse("25000.00"))
		_, err := s.service.Cancel(s.ctx, sponsorship.ID, "")
		s.Require().NoError(err)

		_, err = s.service.Cancel(s.ctx, sponsorship.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *SponsorshipServiceSuite) TestExpireLapsed() {
	s.Run("lapses grants past their window", func() {
		first := s.apply(money.MustParse("10000.00"))
		second := s.apply(money.MustParse("20000.00"))
		fresh := s.apply(money.MustParse("30000.00"))

		staleCtx := requestcontext.WithTime(context.Background(), s.now.Add(-DefaultApprovalValidity-time.Hour))
		for _, sponsorshipID := range []id.SponsorshipID{first.ID, second.ID} {
			_, err := s.service.Approve(staleCtx, ApproveParams{SponsorshipID: sponsorshipID})
			s.Require().NoError(err)
		}
		_, err := s.service.Approve(s.ctx, ApproveParams{SponsorshipID: fresh.ID})
		s.Require().NoError(err)

		expired, err := s.service.ExpireLapsed(s.ctx, 10)
		s.Require().NoError(err)
		s.Equal(2, expired)

		for _, sponsorshipID := range []id.SponsorshipID{first.ID, second.ID} {
			sp, err := s.service.GetSponsorship(s.ctx, sponsorshipID)
			s.Require().NoError(err)
			s.Equal(models.StatusExpired, sp.Status)
		}
		stillApproved, err := s.service.GetSponsorship(s.ctx, fresh.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, stillApproved.Status)
	})

	s.Run("sweep with nothing lapsed is a no-op", func() {
		sponsorship := s.apply(money.MustParse("10000.00"))
		_, err := s.service.Approve(s.ctx, ApproveParams{SponsorshipID: sponsorship.ID})
		s.Require().NoError(err)

		expired, err := s.service.ExpireLapsed(s.ctx, 10)
		s.Require().NoError(err)
		s.Zero(expired)
	})
}

func (s *SponsorshipServiceSuite) TestListing() {
	s.Run("by institution", func() {
		institutionID := id.NewInstitutionID()
		for i := 0; i < 2; i++ {
			_, err := s.service.Apply(s.ctx, ApplyParams{
				InstitutionID:   institutionID,
				SponsorName:     "Apex Beverages",
				RequestedAmount: money.MustParse("1000.00"),
			})
			s.Require().NoError(err)
		}
		s.apply(money.MustParse("1000.00"))

		list, err := s.service.ListSponsorshipsByInstitution(s.ctx, institutionID)
		s.Require().NoError(err)
		s.Len(list, 2)
	})

	s.Run("by status feeds the review queue", func() {
		sponsorship := s.apply(money.MustParse("1000.00"))
		_, err := s.service.MarkUnderReview(s.ctx, sponsorship.ID, "treasurer")
		s.Require().NoError(err)

		queue, err := s.service.ListSponsorshipsByStatus(s.ctx, models.StatusUnderReview)
		s.Require().NoError(err)
		s.Len(queue, 1)

		_, err = s.service.ListSponsorshipsByStatus(s.ctx, models.Status("funded"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *SponsorshipServiceSuite) TestGetStats() {
	approvedOne := s.apply(money.MustParse("10000.00"))
	approvedTwo := s.apply(money.MustParse("20000.00"))
	rejected := s.apply(money.MustParse("5000.00"))
	s.apply(money.MustParse("7000.00"))

	reduced := money.MustParse("15000.00")
	_, err := s.service.Approve(s.ctx, ApproveParams{SponsorshipID: approvedOne.ID})
	s.Require().NoError(err)
	_, err = s.service.Approve(s.ctx, ApproveParams{SponsorshipID: approvedTwo.ID, Amount: &reduced})
	s.Require().NoError(err)
	_, err = s.service.Reject(s.ctx, rejected.ID, "over budget", "director")
	s.Require().NoError(err)

	stats, err := s.service.GetStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(4, stats.Total)
	s.Equal(1, stats.Awaiting)
	s.Equal(2, stats.Approved)
	s.Equal(1, stats.Rejected)
	s.Equal(money.MustParse("25000.00"), stats.ApprovedTotal)
}
