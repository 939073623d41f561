// Package store persists enforcement cases and notices.
package store

import (
	"context"

	"prosreg/internal/enforcement/models"
	"prosreg/pkg/domain"
)

// Store is the enforcement persistence contract. Implementations return
// pkg/platform/sentinel errors and honour a transaction placed in the
// context by the merge coordinator.
type Store interface {
	CreateCase(ctx context.Context, c *models.Case) error
	CreateNotice(ctx context.Context, n *models.Notice) error

	// ListCases and ListNotices feed the duplicate detector's full scans.
	ListCases(ctx context.Context) ([]*models.Case, error)
	ListNotices(ctx context.Context) ([]*models.Notice, error)

	// RepointOffender bulk-updates every case and notice belonging to any
	// of the from offenders so they belong to the to offender.
	RepointOffender(ctx context.Context, from []domain.OffenderID, to domain.OffenderID) error

	// TotalsForOffender recomputes aggregates from persisted rows.
	TotalsForOffender(ctx context.Context, id domain.OffenderID) (models.Totals, error)
}
