package challenge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sportsfest/internal/otp/models"
	"sportsfest/pkg/platform/sentinel"
)

// InMemory keeps login challenges in a map, keyed by normalized address.
// Unlike redis there is no server-side expiry, so the jobs runner calls
// Sweep periodically to drop expired entries. Single-process only.
type InMemory struct {
	mu         sync.RWMutex
	challenges map[string]*models.Challenge
}

func NewInMemory() *InMemory {
	return &InMemory{challenges: make(map[string]*models.Challenge)}
}

func cloneChallenge(ch *models.Challenge) *models.Challenge {
	clone := *ch
	clone.CodeHash = append([]byte(nil), ch.CodeHash...)
	return &clone
}

// Put stores a challenge, replacing any previous one for the same address.
func (s *InMemory) Put(_ context.Context, ch *models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[ch.Email] = cloneChallenge(ch)
	return nil
}

// Find returns the stored challenge for an address, expired or not; the
// service checks expiry against the request clock.
func (s *InMemory) Find(_ context.Context, address string) (*models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.challenges[address]
	if !ok {
		return nil, fmt.Errorf("challenge for %q: %w", address, sentinel.ErrNotFound)
	}
	return cloneChallenge(ch), nil
}

// Update rewrites a stored challenge.
func (s *InMemory) Update(_ context.Context, ch *models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.challenges[ch.Email]; !ok {
		return fmt.Errorf("challenge for %q: %w", ch.Email, sentinel.ErrNotFound)
	}
	s.challenges[ch.Email] = cloneChallenge(ch)
	return nil
}

// Delete removes the challenge for an address. Deleting an absent address is
// not an error.
func (s *InMemory) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, address)
	return nil
}

// Sweep drops challenges that expired at or before asOf and reports how many
// it removed.
func (s *InMemory) Sweep(_ context.Context, asOf time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for address, ch := range s.challenges {
		if ch.Expired(asOf) {
			delete(s.challenges, address)
			removed++
		}
	}
	return removed, nil
}

// Count reports how many challenges are stored, expired ones included.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.challenges), nil
}
