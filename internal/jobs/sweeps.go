package jobs

import (
	"context"
	"time"
)

// sweepBatchLimit caps how many rows one sweep run touches.
const sweepBatchLimit = 100

// PaymentSweeper fails payments stuck awaiting a provider verdict.
type PaymentSweeper interface {
	FailStaleAwaiting(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// SponsorshipExpirer expires approved sponsorships past their end date.
type SponsorshipExpirer interface {
	ExpireLapsed(ctx context.Context, limit int) (int, error)
}

// ChallengeSweeper drops expired login challenges.
type ChallengeSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// PaymentTimeoutSweep routes payments that outlived the pending timeout
// into the failure path, which cancels their registrations and frees the
// seats.
func PaymentTimeoutSweep(payments PaymentSweeper, pendingTimeout time.Duration) Job {
	return func(ctx context.Context) error {
		_, err := payments.FailStaleAwaiting(ctx, pendingTimeout, sweepBatchLimit)
		return err
	}
}

// SponsorshipExpirySweep expires sponsorships whose window has closed.
func SponsorshipExpirySweep(sponsorships SponsorshipExpirer) Job {
	return func(ctx context.Context) error {
		_, err := sponsorships.ExpireLapsed(ctx, sweepBatchLimit)
		return err
	}
}

// LoginChallengeSweep clears expired login challenges from stores without
// server-side expiry.
func LoginChallengeSweep(challenges ChallengeSweeper) Job {
	return func(ctx context.Context) error {
		_, err := challenges.SweepExpired(ctx)
		return err
	}
}
