package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"prosreg/internal/enforcement/models"
	"prosreg/pkg/domain"
	"prosreg/pkg/platform/sentinel"
	txcontext "prosreg/pkg/platform/tx"
)

// Postgres persists cases and notices. Repointing and recomputation run
// inside the merge transaction when one is in the context.
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

func (s *Postgres) CreateCase(ctx context.Context, c *models.Case) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO cases (id, agency_id, offender_id, reference_code, offence_date, fine, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		c.ID.String(), c.AgencyID.String(), c.OffenderID.String(), c.ReferenceCode,
		c.OffenceDate, c.Fine, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

func (s *Postgres) CreateNotice(ctx context.Context, n *models.Notice) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO notices (id, agency_id, offender_id, reference_code, notice_type, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		n.ID.String(), n.AgencyID.String(), n.OffenderID.String(), n.ReferenceCode,
		n.NoticeType, n.IssuedAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

func (s *Postgres) ListCases(ctx context.Context) ([]*models.Case, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, agency_id, offender_id, reference_code, offence_date, fine, created_at, updated_at
		FROM cases
	`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var results []*models.Case
	for rows.Next() {
		var (
			c                           models.Case
			rawID, rawAgency, rawBearer string
		)
		err := rows.Scan(&rawID, &rawAgency, &rawBearer, &c.ReferenceCode,
			&c.OffenceDate, &c.Fine, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		if err := assignCaseIDs(&c, rawID, rawAgency, rawBearer); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

func (s *Postgres) ListNotices(ctx context.Context) ([]*models.Notice, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, agency_id, offender_id, reference_code, notice_type, issued_at, created_at, updated_at
		FROM notices
	`)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var results []*models.Notice
	for rows.Next() {
		var (
			n                           models.Notice
			rawID, rawAgency, rawBearer string
		)
		err := rows.Scan(&rawID, &rawAgency, &rawBearer, &n.ReferenceCode,
			&n.NoticeType, &n.IssuedAt, &n.CreatedAt, &n.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		if err := assignNoticeIDs(&n, rawID, rawAgency, rawBearer); err != nil {
			return nil, err
		}
		results = append(results, &n)
	}
	return results, rows.Err()
}

func (s *Postgres) RepointOffender(ctx context.Context, from []domain.OffenderID, to domain.OffenderID) error {
	if len(from) == 0 {
		return nil
	}
	placeholders := make([]string, len(from))
	args := make([]any, 0, len(from)+1)
	args = append(args, to.String())
	for i, id := range from {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id.String())
	}
	in := strings.Join(placeholders, ", ")

	for _, table := range []string{"cases", "notices"} {
		_, err := s.q(ctx).ExecContext(ctx,
			`UPDATE `+table+` SET offender_id = $1, updated_at = now() WHERE offender_id IN (`+in+`)`,
			args...,
		)
		if err != nil {
			return fmt.Errorf("repoint %s: %w", table, err)
		}
	}
	return nil
}

func (s *Postgres) TotalsForOffender(ctx context.Context, id domain.OffenderID) (models.Totals, error) {
	var totals models.Totals
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT count(*), coalesce(sum(fine), 0) FROM cases WHERE offender_id = $1
	`, id.String()).Scan(&totals.Cases, &totals.Fines)
	if err != nil {
		return models.Totals{}, fmt.Errorf("case totals: %w", err)
	}

	err = s.q(ctx).QueryRowContext(ctx, `
		SELECT count(*) FROM notices WHERE offender_id = $1
	`, id.String()).Scan(&totals.Notices)
	if err != nil {
		return models.Totals{}, fmt.Errorf("notice totals: %w", err)
	}

	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT agency_id FROM cases WHERE offender_id = $1
		UNION
		SELECT agency_id FROM notices WHERE offender_id = $1
	`, id.String())
	if err != nil {
		return models.Totals{}, fmt.Errorf("agency set: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return models.Totals{}, fmt.Errorf("scan agency id: %w", err)
		}
		agency, err := domain.ParseAgencyID(raw)
		if err != nil {
			return models.Totals{}, fmt.Errorf("parse agency id: %w", err)
		}
		totals.AgencyIDs = append(totals.AgencyIDs, agency)
	}
	return totals, rows.Err()
}

func assignCaseIDs(c *models.Case, rawID, rawAgency, rawOffender string) error {
	id, err := domain.ParseCaseID(rawID)
	if err != nil {
		return fmt.Errorf("parse case id: %w", err)
	}
	agency, err := domain.ParseAgencyID(rawAgency)
	if err != nil {
		return fmt.Errorf("parse agency id: %w", err)
	}
	offender, err := domain.ParseOffenderID(rawOffender)
	if err != nil {
		return fmt.Errorf("parse offender id: %w", err)
	}
	c.ID, c.AgencyID, c.OffenderID = id, agency, offender
	return nil
}

func assignNoticeIDs(n *models.Notice, rawID, rawAgency, rawOffender string) error {
	id, err := domain.ParseNoticeID(rawID)
	if err != nil {
		return fmt.Errorf("parse notice id: %w", err)
	}
	agency, err := domain.ParseAgencyID(rawAgency)
	if err != nil {
		return fmt.Errorf("parse agency id: %w", err)
	}
	offender, err := domain.ParseOffenderID(rawOffender)
	if err != nil {
		return fmt.Errorf("parse offender id: %w", err)
	}
	n.ID, n.AgencyID, n.OffenderID = id, agency, offender
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
