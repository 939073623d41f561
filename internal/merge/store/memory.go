package store

import (
	"context"
	"sync"
	"time"

	"prosreg/internal/merge/models"
	"prosreg/pkg/domain"
	"prosreg/pkg/platform/sentinel"
)

// InMemoryReviews is a map-backed ReviewStore used in tests and local runs.
type InMemoryReviews struct {
	mu      sync.RWMutex
	reviews map[domain.ReviewID]*models.MatchReview
}

func NewInMemoryReviews() *InMemoryReviews {
	return &InMemoryReviews{reviews: make(map[domain.ReviewID]*models.MatchReview)}
}

func (s *InMemoryReviews) Create(_ context.Context, review *models.MatchReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reviews[review.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *review
	s.reviews[review.ID] = &clone
	return nil
}

func (s *InMemoryReviews) FindByID(_ context.Context, id domain.ReviewID) (*models.MatchReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	review, ok := s.reviews[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *review
	return &clone, nil
}

func (s *InMemoryReviews) List(_ context.Context, status models.ReviewStatus) ([]*models.MatchReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.MatchReview, 0, len(s.reviews))
	for _, review := range s.reviews {
		if status != "" && review.Status != status {
			continue
		}
		clone := *review
		out = append(out, &clone)
	}
	return out, nil
}

func (s *InMemoryReviews) Decide(_ context.Context, id domain.ReviewID, status models.ReviewStatus, notes string, decidedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	review, ok := s.reviews[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	review.Status = status
	review.Notes = notes
	review.DecidedAt = &decidedAt
	return nil
}
