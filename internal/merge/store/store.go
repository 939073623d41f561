// Package store persists match reviews.
package store

import (
	"context"
	"time"

	"prosreg/internal/merge/models"
	"prosreg/pkg/domain"
)

// ReviewStore persists match reviews awaiting admin decisions.
// Implementations return pkg/platform/sentinel errors.
type ReviewStore interface {
	Create(ctx context.Context, review *models.MatchReview) error
	FindByID(ctx context.Context, id domain.ReviewID) (*models.MatchReview, error)

	// List returns reviews with the given status; an empty status returns
	// everything.
	List(ctx context.Context, status models.ReviewStatus) ([]*models.MatchReview, error)

	// Decide moves a review into a new state, recording the decision time.
	Decide(ctx context.Context, id domain.ReviewID, status models.ReviewStatus, notes string, decidedAt time.Time) error
}
