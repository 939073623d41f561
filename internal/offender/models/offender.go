// Package models defines the offender aggregate and its boundary input type.
package models

import (
	"strings"
	"time"

	"prosreg/internal/match"
	"prosreg/pkg/domain"
	dErrors "prosreg/pkg/domain-errors"
)

// Offender is a legal or natural person subject to enforcement action,
// represented exactly once regardless of how many sources describe it.
//
// Invariants:
//   - RegistrationNumber, when non-empty, is unique across all offenders
//     (authoritative legal-entity key)
//   - NormalizedName is unique among offenders without a registration number
//   - NormalizedName is always derived from Name via match.NormalizeName
//
// Created on first sighting by the resolver; mutated by aggregate refresh or
// by merge (full overwrite); destroyed only when merged away as a duplicate.
type Offender struct {
	ID             domain.OffenderID `json:"id"`
	Name           string            `json:"name"`
	NormalizedName string            `json:"normalized_name"`
	Postcode       string            `json:"postcode,omitempty"`

	// RegistrationNumber is the external company registry number, empty for
	// unregistered traders and individuals.
	RegistrationNumber string `json:"registration_number,omitempty"`

	Address        string `json:"address,omitempty"`
	Town           string `json:"town,omitempty"`
	County         string `json:"county,omitempty"`
	Country        string `json:"country,omitempty"`
	LocalAuthority string `json:"local_authority,omitempty"`
	MainActivity   string `json:"main_activity,omitempty"`
	BusinessType   string `json:"business_type,omitempty"`
	Industry       string `json:"industry,omitempty"`

	// AgencyIDs is the denormalized set of agencies that have taken action
	// against this offender. Kept current by the aggregate refresh task.
	AgencyIDs []domain.AgencyID `json:"agency_ids,omitempty"`

	// IndustrySectors is a denormalized set merged across sources.
	IndustrySectors []string `json:"industry_sectors,omitempty"`

	TotalCases   int   `json:"total_cases"`
	TotalNotices int   `json:"total_notices"`
	TotalFines   int64 `json:"total_fines"` // pence

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attributes is the typed boundary struct for raw scraped offender data.
// Every field except Name is optional; scrapers may omit any of them and
// unknown source fields are dropped before this point.
type Attributes struct {
	Name               string   `json:"name"`
	Postcode           string   `json:"postcode,omitempty"`
	RegistrationNumber string   `json:"registration_number,omitempty"`
	Address            string   `json:"address,omitempty"`
	Town               string   `json:"town,omitempty"`
	County             string   `json:"county,omitempty"`
	Country            string   `json:"country,omitempty"`
	LocalAuthority     string   `json:"local_authority,omitempty"`
	MainActivity       string   `json:"main_activity,omitempty"`
	BusinessType       string   `json:"business_type,omitempty"`
	Industry           string   `json:"industry,omitempty"`
	IndustrySectors    []string `json:"industry_sectors,omitempty"`
}

// Validate enforces the resolver precondition: a non-empty trimmed name.
func (a Attributes) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "offender name is required")
	}
	return nil
}

// New builds an Offender from boundary attributes, deriving the normalized
// name. Callers must have validated the attributes first.
func New(id domain.OffenderID, attrs Attributes, now time.Time) *Offender {
	name := strings.TrimSpace(attrs.Name)
	return &Offender{
		ID:                 id,
		Name:               name,
		NormalizedName:     match.NormalizeName(name),
		Postcode:           match.NormalizePostcode(attrs.Postcode),
		RegistrationNumber: strings.TrimSpace(attrs.RegistrationNumber),
		Address:            strings.TrimSpace(attrs.Address),
		Town:               strings.TrimSpace(attrs.Town),
		County:             strings.TrimSpace(attrs.County),
		Country:            strings.TrimSpace(attrs.Country),
		LocalAuthority:     strings.TrimSpace(attrs.LocalAuthority),
		MainActivity:       strings.TrimSpace(attrs.MainActivity),
		BusinessType:       strings.TrimSpace(attrs.BusinessType),
		Industry:           strings.TrimSpace(attrs.Industry),
		IndustrySectors:    attrs.IndustrySectors,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Clone returns a deep copy so in-memory stores never leak shared slices.
func (o *Offender) Clone() *Offender {
	clone := *o
	clone.AgencyIDs = append([]domain.AgencyID(nil), o.AgencyIDs...)
	clone.IndustrySectors = append([]string(nil), o.IndustrySectors...)
	return &clone
}
