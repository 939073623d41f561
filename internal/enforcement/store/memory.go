package store

import (
	"context"
	"sync"

	"prosreg/internal/enforcement/models"
	"prosreg/pkg/domain"
	"prosreg/pkg/platform/sentinel"
)

// InMemory is a map-backed Store used in tests and local runs.
type InMemory struct {
	mu      sync.RWMutex
	cases   map[domain.CaseID]*models.Case
	notices map[domain.NoticeID]*models.Notice
}

func NewInMemory() *InMemory {
	return &InMemory{
		cases:   make(map[domain.CaseID]*models.Case),
		notices: make(map[domain.NoticeID]*models.Notice),
	}
}

func (s *InMemory) CreateCase(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cases[c.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *c
	s.cases[c.ID] = &clone
	return nil
}

func (s *InMemory) CreateNotice(_ context.Context, n *models.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notices[n.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *n
	s.notices[n.ID] = &clone
	return nil
}

func (s *InMemory) ListCases(_ context.Context) ([]*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Case, 0, len(s.cases))
	for _, c := range s.cases {
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

func (s *InMemory) ListNotices(_ context.Context) ([]*models.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Notice, 0, len(s.notices))
	for _, n := range s.notices {
		clone := *n
		out = append(out, &clone)
	}
	return out, nil
}

func (s *InMemory) RepointOffender(_ context.Context, from []domain.OffenderID, to domain.OffenderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromSet := make(map[domain.OffenderID]bool, len(from))
	for _, id := range from {
		fromSet[id] = true
	}
	for _, c := range s.cases {
		if fromSet[c.OffenderID] {
			c.OffenderID = to
		}
	}
	for _, n := range s.notices {
		if fromSet[n.OffenderID] {
			n.OffenderID = to
		}
	}
	return nil
}

func (s *InMemory) TotalsForOffender(_ context.Context, id domain.OffenderID) (models.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals models.Totals
	agencies := make(map[domain.AgencyID]bool)
	for _, c := range s.cases {
		if c.OffenderID != id {
			continue
		}
		totals.Cases++
		totals.Fines += c.Fine
		agencies[c.AgencyID] = true
	}
	for _, n := range s.notices {
		if n.OffenderID != id {
			continue
		}
		totals.Notices++
		agencies[n.AgencyID] = true
	}
	for agency := range agencies {
		totals.AgencyIDs = append(totals.AgencyIDs, agency)
	}
	return totals, nil
}
