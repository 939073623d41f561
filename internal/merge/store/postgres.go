package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"prosreg/internal/merge/models"
	"prosreg/pkg/domain"
	"prosreg/pkg/platform/sentinel"
	txcontext "prosreg/pkg/platform/tx"
)

// PostgresReviews persists match reviews. Duplicate ID sets are stored as
// JSONB, matching the offender store's set handling.
type PostgresReviews struct {
	db *sql.DB
}

func NewPostgresReviews(db *sql.DB) *PostgresReviews {
	return &PostgresReviews{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresReviews) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const reviewColumns = `id, master_id, duplicate_ids, score, status, notes, created_at, decided_at`

func (s *PostgresReviews) Create(ctx context.Context, review *models.MatchReview) error {
	duplicateIDs, err := json.Marshal(review.DuplicateIDs)
	if err != nil {
		return fmt.Errorf("encode duplicate ids: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO match_reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		review.ID.String(), review.MasterID.String(), duplicateIDs, review.Score,
		string(review.Status), review.Notes, review.CreatedAt, review.DecidedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create match review: %w", err)
	}
	return nil
}

func (s *PostgresReviews) FindByID(ctx context.Context, id domain.ReviewID) (*models.MatchReview, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+reviewColumns+` FROM match_reviews WHERE id = $1
	`, id.String())
	return scanReview(row)
}

func (s *PostgresReviews) List(ctx context.Context, status models.ReviewStatus) ([]*models.MatchReview, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+reviewColumns+` FROM match_reviews
		WHERE $1 = '' OR status = $1
		ORDER BY created_at
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list match reviews: %w", err)
	}
	defer rows.Close()

	var results []*models.MatchReview
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, review)
	}
	return results, rows.Err()
}

func (s *PostgresReviews) Decide(ctx context.Context, id domain.ReviewID, status models.ReviewStatus, notes string, decidedAt time.Time) error {
	result, err := s.q(ctx).ExecContext(ctx, `
		UPDATE match_reviews SET status = $2, notes = $3, decided_at = $4 WHERE id = $1
	`, id.String(), string(status), notes, decidedAt)
	if err != nil {
		return fmt.Errorf("decide match review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*models.MatchReview, error) {
	var (
		review       models.MatchReview
		rawID        string
		rawMaster    string
		duplicateIDs []byte
		rawStatus    string
	)
	err := row.Scan(&rawID, &rawMaster, &duplicateIDs, &review.Score,
		&rawStatus, &review.Notes, &review.CreatedAt, &review.DecidedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan match review: %w", err)
	}

	id, err := domain.ParseReviewID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan review id: %w", err)
	}
	master, err := domain.ParseOffenderID(rawMaster)
	if err != nil {
		return nil, fmt.Errorf("scan master id: %w", err)
	}
	review.ID = id
	review.MasterID = master
	review.Status = models.ReviewStatus(rawStatus)
	if err := json.Unmarshal(duplicateIDs, &review.DuplicateIDs); err != nil {
		return nil, fmt.Errorf("decode duplicate ids: %w", err)
	}
	return &review, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
