package sponsorship

import (
	"context"
	"sort"
	"sync"
	"time"

	"sportsfest/internal/sponsorship/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded sponsorship store for tests and single-node
// runs.
type InMemory struct {
	mu           sync.Mutex
	sponsorships map[id.SponsorshipID]*models.Sponsorship
}

func NewInMemory() *InMemory {
	return &InMemory{sponsorships: make(map[id.SponsorshipID]*models.Sponsorship)}
}

func cloneSponsorship(sp *models.Sponsorship) *models.Sponsorship {
	cp := *sp
	return &cp
}

func (s *InMemory) Create(_ context.Context, sp *models.Sponsorship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sponsorships[sp.ID]; ok {
		return sentinel.ErrConflict
	}
	s.sponsorships[sp.ID] = cloneSponsorship(sp)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, sponsorshipID id.SponsorshipID) (*models.Sponsorship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.sponsorships[sponsorshipID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneSponsorship(sp), nil
}

// ListByInstitution returns the institution's sponsorships, newest first.
func (s *InMemory) ListByInstitution(_ context.Context, institutionID id.InstitutionID) ([]*models.Sponsorship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Sponsorship
	for _, sp := range s.sponsorships {
		if sp.InstitutionID == institutionID {
			out = append(out, cloneSponsorship(sp))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListByStatus returns sponsorships in the given status, oldest first.
func (s *InMemory) ListByStatus(_ context.Context, status models.Status) ([]*models.Sponsorship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Sponsorship
	for _, sp := range s.sponsorships {
		if sp.Status == status {
			out = append(out, cloneSponsorship(sp))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListApprovedLapsed returns up to limit approved sponsorships whose validity
// window closed on or before asOf, oldest window first. The expiry sweep
// feeds on this.
func (s *InMemory) ListApprovedLapsed(_ context.Context, asOf time.Time, limit int) ([]*models.Sponsorship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Sponsorship
	for _, sp := range s.sponsorships {
		if sp.Status == models.StatusApproved && !sp.ValidUntil.IsZero() && !sp.ValidUntil.After(asOf) {
			out = append(out, cloneSponsorship(sp))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidUntil.Before(out[j].ValidUntil) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Execute runs validate and mutate against the stored sponsorship while
// holding the store lock, so no concurrent mutation can interleave between
// them.
func (s *InMemory) Execute(_ context.Context, sponsorshipID id.SponsorshipID, validate func(*models.Sponsorship) error, mutate func(*models.Sponsorship)) (*models.Sponsorship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.sponsorships[sponsorshipID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(sp); err != nil {
		return nil, err
	}
	mutate(sp)
	return cloneSponsorship(sp), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sponsorships), nil
}

func (s *InMemory) CountByStatus(_ context.Context, status models.Status) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, sp := range s.sponsorships {
		if sp.Status == status {
			count++
		}
	}
	return count, nil
}

// ApprovedTotal sums the granted amounts of currently approved sponsorships.
func (s *InMemory) ApprovedTotal(_ context.Context) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total money.Amount
	for _, sp := range s.sponsorships {
		if sp.Status == models.StatusApproved {
			total += sp.ApprovedAmount
		}
	}
	return total, nil
}
