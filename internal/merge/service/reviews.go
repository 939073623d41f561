package service

import (
	"context"
	"errors"

	"prosreg/internal/merge/models"
	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
	"prosreg/pkg/platform/sentinel"
	"prosreg/pkg/requestcontext"
)

// CreateReview records a suspected duplicate pairing for async admin review.
// The same input validation as a merge applies, so an approved review can be
// executed without re-validation surprises.
func (c *Coordinator) CreateReview(ctx context.Context, masterID domain.OffenderID, duplicateIDs []domain.OffenderID, score float64) (*models.MatchReview, error) {
	if err := validateMergeInput(masterID, duplicateIDs); err != nil {
		return nil, err
	}

	review := &models.MatchReview{
		ID:           domain.NewReviewID(),
		MasterID:     masterID,
		DuplicateIDs: duplicateIDs,
		Score:        score,
		Status:       models.ReviewPending,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := c.reviews.Create(ctx, review); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating match review")
	}
	return review, nil
}

// ListReviews returns reviews filtered by status; empty status lists all.
func (c *Coordinator) ListReviews(ctx context.Context, status models.ReviewStatus) ([]*models.MatchReview, error) {
	if status != "" && !models.ValidStatus(status) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown review status %q", status)
	}
	reviews, err := c.reviews.List(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing match reviews")
	}
	return reviews, nil
}

// DecideReview records an admin decision. Approving a review does not merge
// by itself; callers follow up with ExecuteMerge so a failed merge leaves an
// auditable approved-but-unmerged review.
func (c *Coordinator) DecideReview(ctx context.Context, id domain.ReviewID, status models.ReviewStatus, notes string) (*models.MatchReview, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "review id is required")
	}
	if !models.ValidStatus(status) || status == models.ReviewPending {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid review decision %q", status)
	}

	err := c.reviews.Decide(ctx, id, status, notes, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "match review %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "deciding match review")
	}
	return c.reviews.FindByID(ctx, id)
}
