// Package store persists legislation references.
package store

import (
	"context"

	"prosreg/internal/legislation/models"
	"prosreg/pkg/domain"
)

// Store is the legislation persistence contract. Implementations return
// pkg/platform/sentinel errors.
type Store interface {
	// Create inserts a new legislation record. sentinel.ErrConflict if the
	// (title, year, number) triple already exists.
	Create(ctx context.Context, legislation *models.Legislation) error

	// FindByID returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, id domain.LegislationID) (*models.Legislation, error)

	// FindExact looks up the unique (title, year, number) triple; title is
	// compared case-insensitively. sentinel.ErrNotFound when absent.
	FindExact(ctx context.Context, title string, year, number *int) (*models.Legislation, error)

	// ListCandidates returns legislation whose year matches or is unset.
	// A nil year returns everything, the broadest fuzzy recall.
	ListCandidates(ctx context.Context, year *int) ([]*models.Legislation, error)
}
