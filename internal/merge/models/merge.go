// Package models defines merge previews, results and match reviews.
package models

import (
	"time"

	enforcementmodels "prosreg/internal/enforcement/models"
	"prosreg/pkg/domain"
)

// FindingSeverity classifies a preview finding.
type FindingSeverity string

const (
	// SeverityBlocking findings make ExecuteMerge abort with a validation error.
	SeverityBlocking FindingSeverity = "blocking"

	// SeverityWarning findings are informational; the merge proceeds.
	SeverityWarning FindingSeverity = "warning"
)

// Finding is a validation observation produced while preparing a merge.
type Finding struct {
	Severity FindingSeverity `json:"severity"`
	Message  string          `json:"message"`
}

// Canonical is the overlay applied to the master during a merge. When the
// registry confirms the master it is the registry's record; otherwise the
// master's own values.
type Canonical struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Town     string `json:"town"`
	County   string `json:"county"`
	Postcode string `json:"postcode"`

	// FromRegistry reports whether the overlay came from a confirmed
	// registry record.
	FromRegistry bool `json:"from_registry"`
}

// Preview is a dry-run merge projection. No transaction is opened and no
// rows change.
type Preview struct {
	MasterID        domain.OffenderID        `json:"master_id"`
	DuplicateIDs    []domain.OffenderID      `json:"duplicate_ids"`
	Canonical       Canonical                `json:"canonical"`
	ProjectedTotals enforcementmodels.Totals `json:"projected_totals"`
	WouldDelete     []domain.OffenderID      `json:"would_delete"`
	Findings        []Finding                `json:"findings,omitempty"`
}

// Blocked reports whether any finding blocks execution.
func (p *Preview) Blocked() bool {
	for _, f := range p.Findings {
		if f.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}

// Result describes a committed merge.
type Result struct {
	MasterID domain.OffenderID        `json:"master_id"`
	Deleted  []domain.OffenderID      `json:"deleted"`
	Totals   enforcementmodels.Totals `json:"totals"`
}

// ReviewStatus is the admin decision state of a match review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewSkipped  ReviewStatus = "skipped"
	ReviewDeferred ReviewStatus = "deferred"
)

// ValidStatus reports whether s is a known decision state.
func ValidStatus(s ReviewStatus) bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewSkipped, ReviewDeferred:
		return true
	}
	return false
}

// MatchReview records a suspected duplicate pairing awaiting an admin
// decision. Reviews are created from detector output and decided
// asynchronously; an approved review is the normal input to ExecuteMerge.
type MatchReview struct {
	ID           domain.ReviewID     `json:"id"`
	MasterID     domain.OffenderID   `json:"master_id"`
	DuplicateIDs []domain.OffenderID `json:"duplicate_ids"`
	Score        float64             `json:"score"`
	Status       ReviewStatus        `json:"status"`
	Notes        string              `json:"notes,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}
