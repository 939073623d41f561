package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"prosreg/internal/match"
	"prosreg/internal/offender/models"
	"prosreg/pkg/domain"
	"prosreg/pkg/platform/sentinel"
	txcontext "prosreg/pkg/platform/tx"
)

// Postgres persists offenders. Uniqueness invariants are enforced by partial
// unique indexes (see migrations); a violated index surfaces as
// sentinel.ErrConflict so the resolver can take its single retry.
//
// Set-valued fields (agency IDs, industry sectors) are stored as JSONB.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction from context when the merge coordinator has
// opened one, otherwise the pooled connection.
func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const offenderColumns = `id, name, normalized_name, postcode, registration_number,
	address, town, county, country, local_authority,
	main_activity, business_type, industry,
	agency_ids, industry_sectors,
	total_cases, total_notices, total_fines,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, offender *models.Offender) error {
	agencyIDs, sectors, err := marshalSets(offender)
	if err != nil {
		return err
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO offenders (`+offenderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		offender.ID.String(), offender.Name, offender.NormalizedName, offender.Postcode,
		offender.RegistrationNumber, offender.Address, offender.Town, offender.County,
		offender.Country, offender.LocalAuthority, offender.MainActivity,
		offender.BusinessType, offender.Industry, agencyIDs, sectors,
		offender.TotalCases, offender.TotalNotices, offender.TotalFines,
		offender.CreatedAt, offender.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create offender: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.OffenderID) (*models.Offender, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+offenderColumns+` FROM offenders WHERE id = $1
	`, id.String())
	return scanOffender(row)
}

func (s *Postgres) FindByNormalizedName(ctx context.Context, normalizedName, postcode string) (*models.Offender, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+offenderColumns+` FROM offenders
		WHERE normalized_name = $1 AND postcode = $2
	`, normalizedName, match.NormalizePostcode(postcode))
	return scanOffender(row)
}

// SearchSimilar uses the pg_trgm GIN index on normalized_name as the recall
// device; precise scoring happens in the resolver.
func (s *Postgres) SearchSimilar(ctx context.Context, normalizedName string, limit int) ([]*models.Offender, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+offenderColumns+` FROM offenders
		WHERE similarity(normalized_name, $1) > 0.3
		ORDER BY similarity(normalized_name, $1) DESC
		LIMIT $2
	`, normalizedName, limit)
	if err != nil {
		return nil, fmt.Errorf("search similar offenders: %w", err)
	}
	defer rows.Close()

	var results []*models.Offender
	for rows.Next() {
		offender, err := scanOffender(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, offender)
	}
	return results, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, offender *models.Offender) error {
	agencyIDs, sectors, err := marshalSets(offender)
	if err != nil {
		return err
	}
	result, err := s.q(ctx).ExecContext(ctx, `
		UPDATE offenders SET
			name = $2, normalized_name = $3, postcode = $4, registration_number = $5,
			address = $6, town = $7, county = $8, country = $9, local_authority = $10,
			main_activity = $11, business_type = $12, industry = $13,
			agency_ids = $14, industry_sectors = $15,
			total_cases = $16, total_notices = $17, total_fines = $18,
			updated_at = $19
		WHERE id = $1
	`,
		offender.ID.String(), offender.Name, offender.NormalizedName, offender.Postcode,
		offender.RegistrationNumber, offender.Address, offender.Town, offender.County,
		offender.Country, offender.LocalAuthority, offender.MainActivity,
		offender.BusinessType, offender.Industry, agencyIDs, sectors,
		offender.TotalCases, offender.TotalNotices, offender.TotalFines,
		offender.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update offender: %w", err)
	}
	return requireAffected(result)
}

func (s *Postgres) Delete(ctx context.Context, id domain.OffenderID) error {
	result, err := s.q(ctx).ExecContext(ctx, `DELETE FROM offenders WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete offender: %w", err)
	}
	return requireAffected(result)
}

func (s *Postgres) ListAll(ctx context.Context) ([]*models.Offender, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT `+offenderColumns+` FROM offenders`)
	if err != nil {
		return nil, fmt.Errorf("list offenders: %w", err)
	}
	defer rows.Close()

	var results []*models.Offender
	for rows.Next() {
		offender, err := scanOffender(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, offender)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffender(row rowScanner) (*models.Offender, error) {
	var (
		offender  models.Offender
		rawID     string
		agencyIDs []byte
		sectors   []byte
	)
	err := row.Scan(
		&rawID, &offender.Name, &offender.NormalizedName, &offender.Postcode,
		&offender.RegistrationNumber, &offender.Address, &offender.Town, &offender.County,
		&offender.Country, &offender.LocalAuthority, &offender.MainActivity,
		&offender.BusinessType, &offender.Industry, &agencyIDs, &sectors,
		&offender.TotalCases, &offender.TotalNotices, &offender.TotalFines,
		&offender.CreatedAt, &offender.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan offender: %w", err)
	}

	id, err := domain.ParseOffenderID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan offender id: %w", err)
	}
	offender.ID = id
	if err := json.Unmarshal(agencyIDs, &offender.AgencyIDs); err != nil {
		return nil, fmt.Errorf("decode agency ids: %w", err)
	}
	if err := json.Unmarshal(sectors, &offender.IndustrySectors); err != nil {
		return nil, fmt.Errorf("decode industry sectors: %w", err)
	}
	return &offender, nil
}

func marshalSets(offender *models.Offender) (agencyIDs, sectors []byte, err error) {
	agencyIDs, err = json.Marshal(offender.AgencyIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("encode agency ids: %w", err)
	}
	sectors, err = json.Marshal(offender.IndustrySectors)
	if err != nil {
		return nil, nil, fmt.Errorf("encode industry sectors: %w", err)
	}
	return agencyIDs, sectors, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
