// Package models defines the legislation reference entity.
package models

import (
	"strings"
	"time"

	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
)

// Type classifies a legislation reference.
type Type string

const (
	TypeAct        Type = "act"
	TypeRegulation Type = "regulation"
	TypeOrder      Type = "order"
	TypeGuidance   Type = "guidance"
)

// ParseType maps free-text source values onto the known types, defaulting
// to act for unknown or empty input.
func ParseType(raw string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeRegulation:
		return TypeRegulation
	case TypeOrder:
		return TypeOrder
	case TypeGuidance:
		return TypeGuidance
	default:
		return TypeAct
	}
}

// Legislation is a normalized reference to an act, regulation, order or
// guidance document.
//
// Invariant: the (Title, Year, Number) triple is unique; title comparison is
// case-insensitive.
type Legislation struct {
	ID     domain.LegislationID `json:"id"`
	Title  string               `json:"title"`
	Year   *int                 `json:"year,omitempty"`
	Number *int                 `json:"number,omitempty"`
	Type   Type                 `json:"type"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref is the typed boundary struct for a scraped legislation reference.
// Everything but the title is optional.
type Ref struct {
	Title  string `json:"title"`
	Year   *int   `json:"year,omitempty"`
	Number *int   `json:"number,omitempty"`
	Type   string `json:"type,omitempty"`
}

// Validate enforces the resolver precondition: a non-empty trimmed title.
func (r Ref) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "legislation title is required")
	}
	return nil
}

// New builds a Legislation record from a validated boundary ref.
func New(id domain.LegislationID, ref Ref, now time.Time) *Legislation {
	return &Legislation{
		ID:        id,
		Title:     strings.TrimSpace(ref.Title),
		Year:      ref.Year,
		Number:    ref.Number,
		Type:      ParseType(ref.Type),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
