package store

import (
	"context"
	"strings"
	"sync"

	"prosreg/internal/legislation/models"
	"prosreg/pkg/domain"
	"prosreg/pkg/platform/sentinel"
)

// InMemory is a map-backed Store used in tests and local runs. It mirrors
// the postgres unique index on (lower(title), year, number).
type InMemory struct {
	mu   sync.RWMutex
	rows map[domain.LegislationID]*models.Legislation
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[domain.LegislationID]*models.Legislation)}
}

func (s *InMemory) Create(_ context.Context, legislation *models.Legislation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rows {
		if tripleEqual(existing, legislation.Title, legislation.Year, legislation.Number) {
			return sentinel.ErrConflict
		}
	}
	clone := *legislation
	s.rows[legislation.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.LegislationID) (*models.Legislation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *InMemory) FindExact(_ context.Context, title string, year, number *int) (*models.Legislation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.rows {
		if tripleEqual(row, title, year, number) {
			clone := *row
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListCandidates(_ context.Context, year *int) ([]*models.Legislation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Legislation, 0, len(s.rows))
	for _, row := range s.rows {
		if year != nil && row.Year != nil && *row.Year != *year {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	return out, nil
}

func tripleEqual(row *models.Legislation, title string, year, number *int) bool {
	return strings.EqualFold(row.Title, strings.TrimSpace(title)) &&
		intPtrEqual(row.Year, year) &&
		intPtrEqual(row.Number, number)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
