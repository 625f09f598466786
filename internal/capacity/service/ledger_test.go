package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportsfest/internal/capacity/models"
	"sportsfest/internal/capacity/store/seat"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
)

func newTestLedger() *Ledger {
	return NewLedger(seat.NewInMemory())
}

// TestReserve_LastSeatRace drives the classic race: many goroutines fight for
// a single seat and exactly one may win.
func TestReserve_LastSeatRace(t *testing.T) {
	ledger := newTestLedger()
	categoryID := id.NewCategoryID()
	ctx := context.Background()

	const goroutines = 50
	var wg sync.WaitGroup
	var wins, fulls atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Reserve(ctx, categoryID, 1)
			switch {
			case err == nil:
				wins.Add(1)
			case dErrors.HasCode(err, dErrors.CodeCategoryFull):
				fulls.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one reservation should win the last seat")
	assert.Equal(t, int32(goroutines-1), fulls.Load(), "all others should see category_full")

	occupied, err := ledger.Occupied(ctx, categoryID)
	require.NoError(t, err)
	assert.Equal(t, 1, occupied)
}

// TestReserve_NeverOverbooks hammers a ten-seat category and verifies the
// occupied count never exceeds the ceiling.
func TestReserve_NeverOverbooks(t *testing.T) {
	ledger := newTestLedger()
	categoryID := id.NewCategoryID()
	ctx := context.Background()

	const goroutines = 100
	const max = 10
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Reserve(ctx, categoryID, max); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(max), wins.Load())

	occupied, err := ledger.Occupied(ctx, categoryID)
	require.NoError(t, err)
	assert.Equal(t, max, occupied)

	available, err := ledger.Available(ctx, categoryID)
	require.NoError(t, err)
	assert.Equal(t, 0, available)
}

func TestRelease_Idempotent(t *testing.T) {
	ledger := newTestLedger()
	categoryID := id.NewCategoryID()
	ctx := context.Background()

	token, err := ledger.Reserve(ctx, categoryID, 5)
	require.NoError(t, err)

	require.NoError(t, ledger.Release(ctx, token))
	occupied, err := ledger.Occupied(ctx, categoryID)
	require.NoError(t, err)
	assert.Equal(t, 0, occupied)

	// Second release of the same token is a no-op, not an error, and must
	// not drive the counter negative.
	require.NoError(t, ledger.Release(ctx, token))
	occupied, err = ledger.Occupied(ctx, categoryID)
	require.NoError(t, err)
	assert.Equal(t, 0, occupied)

	available, err := ledger.Available(ctx, categoryID)
	require.NoError(t, err)
	assert.Equal(t, 5, available)
}

func TestRelease_UnknownTokenIsNoop(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Release(ctx, models.NewSeatToken(id.NewCategoryID())))
	require.NoError(t, ledger.Release(ctx, models.SeatToken{}))
}

// TestReleaseFreesSeatForNextCaller verifies the compensation path: a freed
// seat is immediately claimable by another registration.
func TestReleaseFreesSeatForNextCaller(t *testing.T) {
	ledger := newTestLedger()
	categoryID := id.NewCategoryID()
	ctx := context.Background()

	token, err := ledger.Reserve(ctx, categoryID, 1)
	require.NoError(t, err)

	_, err = ledger.Reserve(ctx, categoryID, 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCategoryFull))

	require.NoError(t, ledger.Release(ctx, token))

	_, err = ledger.Reserve(ctx, categoryID, 1)
	assert.NoError(t, err, "released seat should be claimable again")
}

func TestReserve_ZeroCapacity(t *testing.T) {
	ledger := newTestLedger()
	ctx := context.Background()

	_, err := ledger.Reserve(ctx, id.NewCategoryID(), 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCategoryFull))
}

// TestConcurrentReserveAndRelease interleaves reservations with releases and
// checks the counter stays within bounds throughout.
func TestConcurrentReserveAndRelease(t *testing.T) {
	ledger := newTestLedger()
	categoryID := id.NewCategoryID()
	ctx := context.Background()

	const max = 8
	const goroutines = 40
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := ledger.Reserve(ctx, categoryID, max)
			if err != nil {
				return
			}
			_ = ledger.Release(ctx, token)
		}()
	}
	wg.Wait()

	occupied, err := ledger.Occupied(ctx, categoryID)
	require.NoError(t, err)
	assert.Equal(t, 0, occupied, "every successful reservation was released")

	available, err := ledger.Available(ctx, categoryID)
	require.NoError(t, err)
	assert.Equal(t, max, available)
}
