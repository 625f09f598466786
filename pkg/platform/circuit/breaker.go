// Package circuit implements a minimal circuit breaker. Consecutive
// failures open it; consecutive successes close it again. The breaker only
// tracks state: callers decide what "failure" means and which path to take
// when it reports open.
package circuit

import "sync"

// State is the breaker's position.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Change reports a transition caused by a recorded outcome, so callers can
// log the flip exactly once instead of on every call.
type Change struct {
	Opened bool
	Closed bool
}

const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 3
)

// Breaker is a named circuit breaker. Safe for concurrent use.
type Breaker struct {
	name             string
	failureThreshold int
	successThreshold int

	mu        sync.Mutex
	state     State
	failures  int
	successes int
}

type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		b.failureThreshold = n
	}
}

// WithSuccessThreshold sets how many consecutive successes close an open
// circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		b.successThreshold = n
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: DefaultFailureThreshold,
		successThreshold: DefaultSuccessThreshold,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Reset forces the breaker closed and clears both counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}

// RecordFailure counts one failed call. The returned flag tells the caller
// to take its fallback path; it is true whenever the circuit is open after
// the call, while Change.Opened marks only the closed-to-open flip.
//
// A failure while open resets the success streak, so closing always takes
// the full success threshold from the last failure.
func (b *Breaker) RecordFailure() (bool, Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.successes = 0
	if b.state == StateOpen {
		return true, Change{}
	}
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		return true, Change{Opened: true}
	}
	return false, Change{}
}

// RecordSuccess counts one successful call. The returned flag tells the
// caller the primary path is trusted again; Change.Closed marks only the
// open-to-closed flip.
func (b *Breaker) RecordSuccess() (bool, Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
			return true, Change{Closed: true}
		}
		return false, Change{}
	}
	b.failures = 0
	return true, Change{}
}
