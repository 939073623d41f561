package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"prosreg/internal/legislation/models"
	"prosreg/pkg/domain"
	"prosreg/pkg/platform/sentinel"
	txcontext "prosreg/pkg/platform/tx"
)

// Postgres persists legislation. The (title, year, number) triple is unique
// via an expression index on (lower(title), coalesce(year, 0),
// coalesce(number, 0)); violations surface as sentinel.ErrConflict.
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

func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const legislationColumns = `id, title, year, number, type, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, legislation *models.Legislation) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO legislation (`+legislationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		legislation.ID.String(), legislation.Title, legislation.Year, legislation.Number,
		string(legislation.Type), legislation.CreatedAt, legislation.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create legislation: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.LegislationID) (*models.Legislation, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+legislationColumns+` FROM legislation WHERE id = $1
	`, id.String())
	return scanLegislation(row)
}

func (s *Postgres) FindExact(ctx context.Context, title string, year, number *int) (*models.Legislation, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+legislationColumns+` FROM legislation
		WHERE lower(title) = lower($1)
		  AND year IS NOT DISTINCT FROM $2
		  AND number IS NOT DISTINCT FROM $3
	`, strings.TrimSpace(title), year, number)
	return scanLegislation(row)
}

func (s *Postgres) ListCandidates(ctx context.Context, year *int) ([]*models.Legislation, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+legislationColumns+` FROM legislation
		WHERE $1::int IS NULL OR year IS NULL OR year = $1
	`, year)
	if err != nil {
		return nil, fmt.Errorf("list legislation candidates: %w", err)
	}
	defer rows.Close()

	var results []*models.Legislation
	for rows.Next() {
		legislation, err := scanLegislation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, legislation)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLegislation(row rowScanner) (*models.Legislation, error) {
	var (
		legislation models.Legislation
		rawID       string
		rawType     string
	)
	err := row.Scan(
		&rawID, &legislation.Title, &legislation.Year, &legislation.Number,
		&rawType, &legislation.CreatedAt, &legislation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan legislation: %w", err)
	}

	id, err := domain.ParseLegislationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan legislation id: %w", err)
	}
	legislation.ID = id
	legislation.Type = models.Type(rawType)
	return &legislation, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
