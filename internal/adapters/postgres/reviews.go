package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"carbonchain/internal/domain"
)

const uniqueViolation = "23505"

const reviewColumns = `id, claim_id, reviewer_id, role, decision, confidence_score, positives, concerns, notes, created_at`

func (db *DB) CreateReview(ctx context.Context, r *domain.ReviewRecord) error {
	positives, err := json.Marshal(stringsOrEmpty(r.Positives))
	if err != nil {
		return err
	}
	concerns, err := json.Marshal(stringsOrEmpty(r.Concerns))
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.ID, r.ClaimID, r.ReviewerID, r.Role, r.Decision, r.ConfidenceScore, positives, concerns, r.Notes, r.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s review for claim %s", domain.ErrDuplicateReview, r.Role, r.ClaimID)
	}
	return err
}

func (db *DB) GetReview(ctx context.Context, claimID uuid.UUID, role domain.ReviewRole) (*domain.ReviewRecord, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+reviewColumns+` FROM reviews WHERE claim_id = $1 AND role = $2
	`, claimID, role)
	r, err := scanReview(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s review for claim %s", domain.ErrNotFound, role, claimID)
	}
	return r, err
}

func (db *DB) ListReviewsByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.ReviewRecord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+reviewColumns+` FROM reviews WHERE claim_id = $1 ORDER BY created_at
	`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReviewRecord
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReview(row pgx.Row) (*domain.ReviewRecord, error) {
	var (
		r         domain.ReviewRecord
		positives []byte
		concerns  []byte
	)
	err := row.Scan(&r.ID, &r.ClaimID, &r.ReviewerID, &r.Role, &r.Decision, &r.ConfidenceScore, &positives, &concerns, &r.Notes, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(positives, &r.Positives); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(concerns, &r.Concerns); err != nil {
		return nil, err
	}
	return &r, nil
}
