// Package models defines the enforcement records that hang off offenders.
//
// Cases and notices are written by the scraping pipeline; this engine reads
// them for duplicate detection and repoints them during merges.
package models

import (
	"time"

	"prosreg/pkg/domain"
)

// Case is a prosecution case scraped from an agency register.
//
// (AgencyID, ReferenceCode) is the natural key within a single agency;
// reference codes are meaningless across agencies.
type Case struct {
	ID            domain.CaseID     `json:"id"`
	AgencyID      domain.AgencyID   `json:"agency_id"`
	OffenderID    domain.OffenderID `json:"offender_id"`
	ReferenceCode string            `json:"reference_code"`
	OffenceDate   *time.Time        `json:"offence_date,omitempty"`
	Fine          int64             `json:"fine"` // pence

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notice is an enforcement notice (improvement, prohibition, etc.) scraped
// from an agency register. Same natural key rules as Case.
type Notice struct {
	ID            domain.NoticeID   `json:"id"`
	AgencyID      domain.AgencyID   `json:"agency_id"`
	OffenderID    domain.OffenderID `json:"offender_id"`
	ReferenceCode string            `json:"reference_code"`
	NoticeType    string            `json:"notice_type,omitempty"`
	IssuedAt      *time.Time        `json:"issued_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Totals are an offender's aggregates recomputed from persisted rows. The
// merge coordinator and the stats refresher never trust stored counters.
type Totals struct {
	Cases     int               `json:"cases"`
	Notices   int               `json:"notices"`
	Fines     int64             `json:"fines"` // pence
	AgencyIDs []domain.AgencyID `json:"agency_ids"`
}
