package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
)

var sponsorshipClock = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func newTestSponsorship(t *testing.T) *Sponsorship {
	t.Helper()
	sp, err := NewSponsorship(id.NewSponsorshipID(), id.NewInstitutionID(), "Deccan Sports Goods", money.MustParse("50000.00"), "", sponsorshipClock)
	require.NoError(t, err)
	return sp
}

func TestNewSponsorship(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		sp := newTestSponsorship(t)
		assert.Equal(t, StatusApplied, sp.Status)
		assert.Equal(t, "INR", sp.Currency)
		assert.True(t, sp.ApprovedAmount.IsZero())
		assert.Equal(t, money.MustParse("50000.00"), sp.FinalAmount())
	})

	t.Run("trims sponsor name", func(t *testing.T) {
		sp, err := NewSponsorship(id.NewSponsorshipID(), id.NewInstitutionID(), "  Apex Beverages  ", money.MustParse("100.00"), "INR", sponsorshipClock)
		require.NoError(t, err)
		assert.Equal(t, "Apex Beverages", sp.SponsorName)
	})

	t.Run("rejects invalid construction", func(t *testing.T) {
		cases := []struct {
			name          string
			institutionID id.InstitutionID
			sponsorName   string
			amount        money.Amount
		}{
			{"no institution", id.InstitutionID{}, "Apex Beverages", money.MustParse("100.00")},
			{"empty sponsor name", id.NewInstitutionID(), "   ", money.MustParse("100.00")},
			{"overlong sponsor name", id.NewInstitutionID(), strings.Repeat("x", 256), money.MustParse("100.00")},
			{"zero amount", id.NewInstitutionID(), "Apex Beverages", money.Zero},
			{"negative amount", id.NewInstitutionID(), "Apex Beverages", money.MustParse("-1.00")},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewSponsorship(id.NewSponsorshipID(), tc.institutionID, tc.sponsorName, tc.amount, "", sponsorshipClock)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
			})
		}
	})
}

func TestSponsorshipTransitionMatrix(t *testing.T) {
	all := []Status{StatusApplied, StatusUnderReview, StatusApproved, StatusRejected, StatusCancelled, StatusExpired}
	allowed := map[Status][]Status{
		StatusApplied:     {StatusUnderReview, StatusApproved, StatusRejected, StatusCancelled},
		StatusUnderReview: {StatusApproved, StatusRejected, StatusCancelled},
		StatusApproved:    {StatusCancelled, StatusExpired},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	for _, s := range []Status{StatusRejected, StatusCancelled, StatusExpired} {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}
	for _, s := range []Status{StatusApplied, StatusUnderReview, StatusApproved} {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}

	assert.True(t, StatusApplied.AwaitingDecision())
	assert.True(t, StatusUnderReview.AwaitingDecision())
	assert.False(t, StatusApproved.AwaitingDecision())
}

func TestSponsorshipReviewWorkflow(t *testing.T) {
	validUntil := sponsorshipClock.AddDate(0, 3, 0)

	t.Run("applied to approved via review", func(t *testing.T) {
		sp := newTestSponsorship(t)
		require.NoError(t, sp.CanMarkUnderReview())
		sp.ApplyMarkUnderReview("treasurer", sponsorshipClock)
		assert.Equal(t, StatusUnderReview, sp.Status)
		assert.Equal(t, "treasurer", sp.ReviewedBy)

		require.NoError(t, sp.CanApprove(money.MustParse("40000.00")))
		sp.ApplyApprove(money.MustParse("40000.00"), "director", "reduced to fit budget", validUntil, sponsorshipClock)
		assert.Equal(t, StatusApproved, sp.Status)
		assert.Equal(t, money.MustParse("40000.00"), sp.ApprovedAmount)
		assert.Equal(t, money.MustParse("40000.00"), sp.FinalAmount())
		assert.Equal(t, "director", sp.ReviewedBy)
		assert.Equal(t, validUntil, sp.ValidUntil)
	})

	t.Run("approval straight from applied", func(t *testing.T) {
		sp := newTestSponsorship(t)
		require.NoError(t, sp.CanApprove(money.MustParse("50000.00")))
		sp.ApplyApprove(money.MustParse("50000.00"), "", "", validUntil, sponsorshipClock)
		assert.Equal(t, StatusApproved, sp.Status)
	})

	t.Run("review only from applied", func(t *testing.T) {
		sp := newTestSponsorship(t)
		sp.ApplyMarkUnderReview("treasurer", sponsorshipClock)
		err := sp.CanMarkUnderReview()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("rejection records reason", func(t *testing.T) {
		sp := newTestSponsorship(t)
		sp.ApplyMarkUnderReview("treasurer", sponsorshipClock)
		require.NoError(t, sp.CanReject())
		sp.ApplyReject("sponsor failed verification", "director", sponsorshipClock)
		assert.Equal(t, StatusRejected, sp.Status)
		assert.Equal(t, "sponsor failed verification", sp.RejectionReason)
	})

	t.Run("approve rejects non-positive amount", func(t *testing.T) {
		sp := newTestSponsorship(t)
		assert.True(t, dErrors.HasCode(sp.CanApprove(money.Zero), dErrors.CodeValidation))
		assert.True(t, dErrors.HasCode(sp.CanApprove(money.MustParse("-10.00")), dErrors.CodeValidation))
	})
}

func TestSponsorshipCancellation(t *testing.T) {
	t.Run("cancel from applied", func(t *testing.T) {
		sp := newTestSponsorship(t)
		require.NoError(t, sp.CanCancel())
		sp.ApplyCancel("sponsor withdrew", sponsorshipClock)
		assert.Equal(t, StatusCancelled, sp.Status)
		assert.Equal(t, "sponsor withdrew", sp.CancelReason)
	})

	t.Run("cancel from under review", func(t *testing.T) {
		sp := newTestSponsorship(t)
		sp.ApplyMarkUnderReview("treasurer", sponsorshipClock)
		require.NoError(t, sp.CanCancel())
	})

	t.Run("cancel approved grant", func(t *testing.T) {
		sp := newTestSponsorship(t)
		sp.ApplyApprove(money.MustParse("50000.00"), "", "", sponsorshipClock.AddDate(0, 3, 0), sponsorshipClock)
		require.NoError(t, sp.CanCancel())
		sp.ApplyCancel("funds redirected", sponsorshipClock)
		assert.Equal(t, StatusCancelled, sp.Status)
	})
}

func TestSponsorshipExpiry(t *testing.T) {
	t.Run("approved grant lapses", func(t *testing.T) {
		sp := newTestSponsorship(t)
		sp.ApplyApprove(money.MustParse("50000.00"), "", "", sponsorshipClock.AddDate(0, 3, 0), sponsorshipClock)
		require.NoError(t, sp.CanExpire())
		sp.ApplyExpire(sponsorshipClock.AddDate(0, 3, 1))
		assert.Equal(t, StatusExpired, sp.Status)
	})

	t.Run("only approved can expire", func(t *testing.T) {
		for _, status := range []Status{StatusApplied, StatusUnderReview} {
			sp := newTestSponsorship(t)
			sp.Status = status
			assert.True(t, dErrors.HasCode(sp.CanExpire(), dErrors.CodeInvalidTransition), "from %s", status)
		}
	})
}

// TestTerminalStatesRejectEverything pins the workflow's error contract: any
// transition attempt out of a settled sponsorship fails naming both states.
func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, status := range []Status{StatusRejected, StatusCancelled, StatusExpired} {
		t.Run(string(status), func(t *testing.T) {
			sp := newTestSponsorship(t)
			sp.Status = status

			for _, err := range []error{
				sp.CanMarkUnderReview(),
				sp.CanApprove(money.MustParse("10.00")),
				sp.CanReject(),
				sp.CanCancel(),
				sp.CanExpire(),
			} {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
				assert.Contains(t, err.Error(), string(status))
			}
		})
	}
}
