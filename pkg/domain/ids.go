// Package domain defines typed identifiers shared across modules.
//
// Each entity gets its own UUID-backed type so the compiler rejects
// cross-entity ID mix-ups (an OffenderID can never be passed where a
// LegislationID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "prosreg/pkg/domain-errors"
)

type (
	// OffenderID identifies a resolved offender entity.
	OffenderID uuid.UUID

	// LegislationID identifies a resolved legislation reference.
	LegislationID uuid.UUID

	// AgencyID identifies a regulatory agency.
	AgencyID uuid.UUID

	// CaseID identifies a prosecution case row.
	CaseID uuid.UUID

	// NoticeID identifies an enforcement notice row.
	NoticeID uuid.UUID

	// ReviewID identifies a match review artifact.
	ReviewID uuid.UUID
)

func (id OffenderID) String() string    { return uuid.UUID(id).String() }
func (id LegislationID) String() string { return uuid.UUID(id).String() }
func (id AgencyID) String() string      { return uuid.UUID(id).String() }
func (id CaseID) String() string        { return uuid.UUID(id).String() }
func (id NoticeID) String() string      { return uuid.UUID(id).String() }
func (id ReviewID) String() string      { return uuid.UUID(id).String() }

func (id OffenderID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id LegislationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AgencyID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ReviewID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// MarshalText/UnmarshalText keep JSON and JSONB representations as the
// canonical UUID string. Named array types do not inherit uuid.UUID's
// methods, so each ID type declares its own.

func (id OffenderID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *OffenderID) UnmarshalText(text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = OffenderID(parsed)
	return nil
}

func (id LegislationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *LegislationID) UnmarshalText(text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = LegislationID(parsed)
	return nil
}

func (id AgencyID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *AgencyID) UnmarshalText(text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = AgencyID(parsed)
	return nil
}

func (id CaseID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *CaseID) UnmarshalText(text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = CaseID(parsed)
	return nil
}

func (id NoticeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *NoticeID) UnmarshalText(text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = NoticeID(parsed)
	return nil
}

func (id ReviewID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *ReviewID) UnmarshalText(text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = ReviewID(parsed)
	return nil
}

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseOffenderID parses and validates an offender ID from its string form.
func ParseOffenderID(raw string) (OffenderID, error) {
	parsed, err := parseUUID(raw, "offender")
	if err != nil {
		return OffenderID{}, err
	}
	return OffenderID(parsed), nil
}

// ParseLegislationID parses and validates a legislation ID from its string form.
func ParseLegislationID(raw string) (LegislationID, error) {
	parsed, err := parseUUID(raw, "legislation")
	if err != nil {
		return LegislationID{}, err
	}
	return LegislationID(parsed), nil
}

// ParseAgencyID parses and validates an agency ID from its string form.
func ParseAgencyID(raw string) (AgencyID, error) {
	parsed, err := parseUUID(raw, "agency")
	if err != nil {
		return AgencyID{}, err
	}
	return AgencyID(parsed), nil
}

// ParseCaseID parses and validates a case ID from its string form.
func ParseCaseID(raw string) (CaseID, error) {
	parsed, err := parseUUID(raw, "case")
	if err != nil {
		return CaseID{}, err
	}
	return CaseID(parsed), nil
}

// ParseNoticeID parses and validates a notice ID from its string form.
func ParseNoticeID(raw string) (NoticeID, error) {
	parsed, err := parseUUID(raw, "notice")
	if err != nil {
		return NoticeID{}, err
	}
	return NoticeID(parsed), nil
}

// ParseReviewID parses and validates a match review ID from its string form.
func ParseReviewID(raw string) (ReviewID, error) {
	parsed, err := parseUUID(raw, "review")
	if err != nil {
		return ReviewID{}, err
	}
	return ReviewID(parsed), nil
}

// NewOffenderID returns a fresh random offender ID.
func NewOffenderID() OffenderID { return OffenderID(uuid.New()) }

// NewLegislationID returns a fresh random legislation ID.
func NewLegislationID() LegislationID { return LegislationID(uuid.New()) }

// NewAgencyID returns a fresh random agency ID.
func NewAgencyID() AgencyID { return AgencyID(uuid.New()) }

// NewCaseID returns a fresh random case ID.
func NewCaseID() CaseID { return CaseID(uuid.New()) }

// NewNoticeID returns a fresh random notice ID.
func NewNoticeID() NoticeID { return NoticeID(uuid.New()) }

// NewReviewID returns a fresh random match review ID.
func NewReviewID() ReviewID { return ReviewID(uuid.New()) }
