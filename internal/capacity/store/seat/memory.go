package seat

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"sportsfest/internal/capacity/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/platform/sentinel"
)

type seatCount struct {
	occupied int
	max      int
}

// InMemory tracks occupied seats per category behind one mutex. The mutex is
// what serializes concurrent reservations racing for the last seat.
//
// A category becomes tracked on its first Reserve; Counts for an untouched
// category reports zero occupancy and an unknown (zero) ceiling.
type InMemory struct {
	mu     sync.Mutex
	seats  map[id.CategoryID]*seatCount
	tokens map[uuid.UUID]id.CategoryID
}

func NewInMemory() *InMemory {
	return &InMemory{
		seats:  make(map[id.CategoryID]*seatCount),
		tokens: make(map[uuid.UUID]id.CategoryID),
	}
}

// Reserve admits the token when the category's occupied count is below max.
// The check and the increment happen under one lock so no two reservations
// can both observe the last free seat.
func (s *InMemory) Reserve(_ context.Context, token models.SeatToken, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.seats[token.CategoryID]
	if !ok {
		sc = &seatCount{}
		s.seats[token.CategoryID] = sc
	}
	sc.max = max
	if sc.occupied >= max {
		return sentinel.ErrExhausted
	}
	sc.occupied++
	s.tokens[token.ID] = token.CategoryID
	return nil
}

// Release frees the seat held by token. Unknown or already-released tokens
// are a no-op and report false.
func (s *InMemory) Release(_ context.Context, token models.SeatToken) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	categoryID, ok := s.tokens[token.ID]
	if !ok {
		return false, nil
	}
	delete(s.tokens, token.ID)
	if sc, ok := s.seats[categoryID]; ok && sc.occupied > 0 {
		sc.occupied--
	}
	return true, nil
}

func (s *InMemory) Counts(_ context.Context, categoryID id.CategoryID) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.seats[categoryID]
	if !ok {
		return 0, 0, nil
	}
	return sc.occupied, sc.max, nil
}
