package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"carbonchain/internal/domain"
)

const evidenceColumns = `id, claim_id, type, source, title, description, data_ref, confidence_weight, hash, created_at`

func (db *DB) CreateEvidence(ctx context.Context, e *domain.Evidence) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO evidence (`+evidenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.ClaimID, e.Type, e.Source, e.Title, e.Description, e.DataRef, e.ConfidenceWeight, e.Hash, e.CreatedAt)
	return err
}

func (db *DB) GetEvidence(ctx context.Context, id uuid.UUID) (*domain.Evidence, error) {
	var e domain.Evidence
	err := db.Pool.QueryRow(ctx, `SELECT `+evidenceColumns+` FROM evidence WHERE id = $1`, id).
		Scan(&e.ID, &e.ClaimID, &e.Type, &e.Source, &e.Title, &e.Description, &e.DataRef, &e.ConfidenceWeight, &e.Hash, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: evidence %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (db *DB) ListEvidenceByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.Evidence, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+evidenceColumns+` FROM evidence WHERE claim_id = $1 ORDER BY created_at
	`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Evidence
	for rows.Next() {
		var e domain.Evidence
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.Type, &e.Source, &e.Title, &e.Description, &e.DataRef, &e.ConfidenceWeight, &e.Hash, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
