package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"carbonchain/internal/domain"
)

const creditColumns = `token_id, claim_id, amount_tonnes_co2e, remaining_tonnes_co2e, status, baseline_ndvi, minted_at, is_simulated, label`

// CreateCredit inserts the one credit a claim may ever have. The unique
// constraint on claim_id makes double-mint a structural impossibility.
func (db *DB) CreateCredit(ctx context.Context, c *domain.MintedCredit) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO minted_credits (`+creditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.TokenID, c.ClaimID, c.AmountTonnesCO2e, c.RemainingTonnesCO2e, c.Status, c.BaselineNDVI, c.MintedAt, c.IsSimulated, c.Label)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: claim %s", domain.ErrAlreadyMinted, c.ClaimID)
	}
	return err
}

func (db *DB) GetCredit(ctx context.Context, tokenID uuid.UUID) (*domain.MintedCredit, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+creditColumns+` FROM minted_credits WHERE token_id = $1`, tokenID)
	c, err := scanCredit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: credit %s", domain.ErrNotFound, tokenID)
	}
	return c, err
}

func (db *DB) GetCreditByClaim(ctx context.Context, claimID uuid.UUID) (*domain.MintedCredit, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+creditColumns+` FROM minted_credits WHERE claim_id = $1`, claimID)
	c, err := scanCredit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: credit for claim %s", domain.ErrNotFound, claimID)
	}
	return c, err
}

func (db *DB) UpdateCreditBalance(ctx context.Context, tokenID uuid.UUID, remaining float64, status domain.CreditStatus) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE minted_credits SET remaining_tonnes_co2e = $2, status = $3 WHERE token_id = $1
	`, tokenID, remaining, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: credit %s", domain.ErrNotFound, tokenID)
	}
	return nil
}

func (db *DB) ListMonitorableCredits(ctx context.Context) ([]domain.MintedCredit, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+creditColumns+` FROM minted_credits WHERE status <> $1 ORDER BY minted_at
	`, domain.CreditFullyBurned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MintedCredit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCredit(row pgx.Row) (*domain.MintedCredit, error) {
	var c domain.MintedCredit
	err := row.Scan(&c.TokenID, &c.ClaimID, &c.AmountTonnesCO2e, &c.RemainingTonnesCO2e, &c.Status, &c.BaselineNDVI, &c.MintedAt, &c.IsSimulated, &c.Label)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
