package store

import (
	"context"
	"sort"
	"sync"

	"prosreg/internal/match"
	"prosreg/internal/offender/models"
	"prosreg/pkg/domain"
	"prosreg/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of Store. It enforces
// the same uniqueness invariants as the Postgres partial indexes.
type InMemory struct {
	mu        sync.RWMutex
	offenders map[domain.OffenderID]*models.Offender
}

func NewInMemory() *InMemory {
	return &InMemory{offenders: make(map[domain.OffenderID]*models.Offender)}
}

func (s *InMemory) Create(_ context.Context, offender *models.Offender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInvariants(offender); err != nil {
		return err
	}
	s.offenders[offender.ID] = offender.Clone()
	return nil
}

// checkInvariants mirrors the partial unique indexes: registration number
// globally, normalized name among unregistered offenders. Caller holds the
// lock.
func (s *InMemory) checkInvariants(offender *models.Offender) error {
	for _, existing := range s.offenders {
		if existing.ID == offender.ID {
			continue
		}
		if offender.RegistrationNumber != "" {
			if existing.RegistrationNumber == offender.RegistrationNumber {
				return sentinel.ErrConflict
			}
			continue
		}
		if existing.RegistrationNumber == "" && existing.NormalizedName == offender.NormalizedName {
			return sentinel.ErrConflict
		}
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.OffenderID) (*models.Offender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offender, ok := s.offenders[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return offender.Clone(), nil
}

func (s *InMemory) FindByNormalizedName(_ context.Context, normalizedName, postcode string) (*models.Offender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	postcode = match.NormalizePostcode(postcode)
	for _, offender := range s.offenders {
		if offender.NormalizedName == normalizedName && offender.Postcode == postcode {
			return offender.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) SearchSimilar(_ context.Context, normalizedName string, limit int) ([]*models.Offender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		offender *models.Offender
		score    float64
	}
	var candidates []scored
	for _, offender := range s.offenders {
		score := match.Score(normalizedName, offender.NormalizedName, "", "")
		if score > 0 {
			candidates = append(candidates, scored{offender: offender, score: score})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	results := make([]*models.Offender, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.offender.Clone())
	}
	return results, nil
}

func (s *InMemory) Update(_ context.Context, offender *models.Offender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.offenders[offender.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkInvariants(offender); err != nil {
		return err
	}
	s.offenders[offender.ID] = offender.Clone()
	return nil
}

func (s *InMemory) Delete(_ context.Context, id domain.OffenderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.offenders[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.offenders, id)
	return nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Offender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*models.Offender, 0, len(s.offenders))
	for _, offender := range s.offenders {
		results = append(results, offender.Clone())
	}
	return results, nil
}
