// Package store persists offenders. Implementations return
// pkg/platform/sentinel errors; services translate them into domain errors.
package store

import (
	"context"

	"prosreg/internal/offender/models"
	"prosreg/pkg/domain"
)

// Store is the offender persistence contract.
//
// Create enforces both uniqueness invariants and returns
// sentinel.ErrConflict when a concurrent writer won the race; the resolver
// recovers with a single re-lookup rather than locking.
type Store interface {
	// Create inserts a new offender. Returns sentinel.ErrConflict if the
	// registration-number or normalized-name invariant rejects the row.
	Create(ctx context.Context, offender *models.Offender) error

	// FindByID returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, id domain.OffenderID) (*models.Offender, error)

	// FindByNormalizedName performs the exact (normalized_name, postcode)
	// lookup. Both sides having no postcode counts as a postcode match.
	FindByNormalizedName(ctx context.Context, normalizedName, postcode string) (*models.Offender, error)

	// SearchSimilar returns up to limit offenders whose normalized names are
	// nearest to the query, most similar first. The caller re-scores the
	// candidates; this is only a recall device.
	SearchSimilar(ctx context.Context, normalizedName string, limit int) ([]*models.Offender, error)

	// Update overwrites every persisted field of the offender.
	Update(ctx context.Context, offender *models.Offender) error

	// Delete removes a merged-away duplicate. sentinel.ErrNotFound if absent.
	Delete(ctx context.Context, id domain.OffenderID) error

	// ListAll returns every offender, for the advisory duplicate scan.
	ListAll(ctx context.Context) ([]*models.Offender, error)
}
