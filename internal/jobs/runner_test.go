package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int64
	New(nil).Every(ctx, 5*time.Millisecond, "counter", func(context.Context) error {
		runs.Add(1)
		return nil
	})

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	settled := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, runs.Load(), "ticker must stop with the context")
}

func TestEveryKeepsTickingAfterError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int64
	New(nil).Every(ctx, 5*time.Millisecond, "flaky", func(context.Context) error {
		runs.Add(1)
		return errors.New("sweep failed")
	})

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, time.Millisecond)
}

func TestEveryRecoversFromPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int64
	New(nil).Every(ctx, 5*time.Millisecond, "explosive", func(context.Context) error {
		runs.Add(1)
		panic("job blew up")
	})

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, time.Millisecond)
}

type stubPaymentSweeper struct {
	olderThan time.Duration
	limit     int
}

func (s *stubPaymentSweeper) FailStaleAwaiting(_ context.Context, olderThan time.Duration, limit int) (int, error) {
	s.olderThan = olderThan
	s.limit = limit
	return 2, nil
}

type stubExpirer struct{ calls int }

func (s *stubExpirer) ExpireLapsed(_ context.Context, _ int) (int, error) {
	s.calls++
	return 1, nil
}

type stubChallengeSweeper struct{ calls int }

func (s *stubChallengeSweeper) SweepExpired(_ context.Context) (int, error) {
	s.calls++
	return 0, nil
}

func TestSweepJobsDelegate(t *testing.T) {
	ctx := context.Background()

	payments := &stubPaymentSweeper{}
	require.NoError(t, PaymentTimeoutSweep(payments, 30*time.Minute)(ctx))
	assert.Equal(t, 30*time.Minute, payments.olderThan)
	assert.Equal(t, sweepBatchLimit, payments.limit)

	sponsorships := &stubExpirer{}
	require.NoError(t, SponsorshipExpirySweep(sponsorships)(ctx))
	assert.Equal(t, 1, sponsorships.calls)

	challenges := &stubChallengeSweeper{}
	require.NoError(t, LoginChallengeSweep(challenges)(ctx))
	assert.Equal(t, 1, challenges.calls)
}
