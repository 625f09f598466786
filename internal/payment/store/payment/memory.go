package payment

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"sportsfest/internal/payment/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded payment store for tests and single-node runs.
// Execute serializes all mutations, which is what keeps concurrent refunds
// on one payment from overshooting the ceiling.
type InMemory struct {
	mu             sync.Mutex
	payments       map[id.PaymentID]*models.Payment
	byRegistration map[id.RegistrationID]id.PaymentID
	byOrder        map[string]id.PaymentID
}

func NewInMemory() *InMemory {
	return &InMemory{
		payments:       make(map[id.PaymentID]*models.Payment),
		byRegistration: make(map[id.RegistrationID]id.PaymentID),
		byOrder:        make(map[string]id.PaymentID),
	}
}

func orderKey(provider models.Provider, orderID string) string {
	return provider.String() + ":" + orderID
}

func clonePayment(p *models.Payment) *models.Payment {
	cp := *p
	cp.ProviderPayload = bytes.Clone(p.ProviderPayload)
	return &cp
}

// Create inserts the payment. A registration may own at most one payment.
func (s *InMemory) Create(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[p.ID]; ok {
		return sentinel.ErrConflict
	}
	if !p.RegistrationID.IsNil() {
		if _, ok := s.byRegistration[p.RegistrationID]; ok {
			return sentinel.ErrAlreadyUsed
		}
	}

	s.payments[p.ID] = clonePayment(p)
	if !p.RegistrationID.IsNil() {
		s.byRegistration[p.RegistrationID] = p.ID
	}
	if p.ProviderOrderID != "" {
		s.byOrder[orderKey(p.Provider, p.ProviderOrderID)] = p.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePayment(p), nil
}

func (s *InMemory) FindByRegistration(_ context.Context, registrationID id.RegistrationID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paymentID, ok := s.byRegistration[registrationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePayment(s.payments[paymentID]), nil
}

func (s *InMemory) FindByProviderOrder(_ context.Context, provider models.Provider, orderID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paymentID, ok := s.byOrder[orderKey(provider, orderID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePayment(s.payments[paymentID]), nil
}

// ListByInstitution returns the institution's payments, newest first.
func (s *InMemory) ListByInstitution(_ context.Context, institutionID id.InstitutionID) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Payment
	for _, p := range s.payments {
		if p.InstitutionID == institutionID {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListByStatus returns payments in the given status, oldest first.
func (s *InMemory) ListByStatus(_ context.Context, status models.Status) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Payment
	for _, p := range s.payments {
		if p.Status == status {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListAwaitingBefore returns up to limit payments still awaiting a provider
// outcome that were created before cutoff, oldest first. The timeout sweep
// feeds on this.
func (s *InMemory) ListAwaitingBefore(_ context.Context, cutoff time.Time, limit int) ([]*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Payment
	for _, p := range s.payments {
		if p.Status.Awaiting() && p.CreatedAt.Before(cutoff) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Execute runs validate and mutate against the stored payment while holding
// the store lock, so no concurrent mutation can interleave between them.
func (s *InMemory) Execute(_ context.Context, paymentID id.PaymentID, validate func(*models.Payment) error, mutate func(*models.Payment)) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	if p.ProviderOrderID != "" {
		s.byOrder[orderKey(p.Provider, p.ProviderOrderID)] = p.ID
	}
	return clonePayment(p), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments), nil
}

func (s *InMemory) CountByStatus(_ context.Context, status models.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range s.payments {
		if p.Status == status {
			count++
		}
	}
	return count, nil
}

// CollectedTotal sums the money actually kept: settled amounts minus their
// cumulative refunds.
func (s *InMemory) CollectedTotal(_ context.Context) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total money.Amount
	for _, p := range s.payments {
		switch p.Status {
		case models.StatusSuccess, models.StatusPartiallyRefunded, models.StatusRefunded:
			total += p.Amount - p.RefundAmount
		}
	}
	return total, nil
}
