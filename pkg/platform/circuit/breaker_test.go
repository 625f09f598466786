package circuit

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("razorpay")
	assert.Equal(t, "razorpay", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())
}

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	b := New("razorpay", WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		fallback, change := b.RecordFailure()
		assert.False(t, fallback, "below threshold the primary path stays trusted")
		assert.False(t, change.Opened)
	}

	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())

	// Further failures keep it open but report no second flip, so the
	// caller logs the transition once.
	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.False(t, change.Opened)
}

func TestBreakerClosesAfterSuccessStreak(t *testing.T) {
	b := New("razorpay", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	trusted, change := b.RecordSuccess()
	assert.False(t, trusted, "a single probe success is not enough")
	assert.False(t, change.Closed)

	trusted, change = b.RecordSuccess()
	assert.True(t, trusted)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestSuccessClearsFailureStreak(t *testing.T) {
	b := New("razorpay", WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.False(t, b.IsOpen(), "the streak restarted after the success")

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestFailureWhileOpenRestartsSuccessStreak(t *testing.T) {
	b := New("razorpay", WithFailureThreshold(1), WithSuccessThreshold(3))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()

	// Closing takes the full streak again from the last failure.
	b.RecordSuccess()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestResetForcesClosed(t *testing.T) {
	b := New("razorpay", WithFailureThreshold(1))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())

	// The failure counter restarted too.
	_, change := b.RecordFailure()
	assert.True(t, change.Opened)
}

// TestConcurrentFailuresFlipOnce hammers RecordFailure from many goroutines;
// exactly one of them must observe the closed-to-open transition.
func TestConcurrentFailuresFlipOnce(t *testing.T) {
	const goroutines = 20
	b := New("razorpay", WithFailureThreshold(5))

	var wg sync.WaitGroup
	var flips atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				flips.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), flips.Load())
	assert.True(t, b.IsOpen())
}
