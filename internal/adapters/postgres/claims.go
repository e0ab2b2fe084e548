package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"carbonchain/internal/domain"
)

const claimColumns = `id, claim_type, title, description, location, geometry_versions,
	area_hectares, claimed_impact, action_start_date, action_end_date,
	stated_assumptions, known_limitations, submitter_name, submitter_contact,
	status, verification_id, created_at, updated_at`

func (db *DB) CreateClaim(ctx context.Context, c *domain.Claim) error {
	location, err := marshalNullable(c.Location)
	if err != nil {
		return err
	}
	geometries, err := json.Marshal(c.GeometryVersions)
	if err != nil {
		return err
	}
	impact, err := json.Marshal(c.ClaimedImpact)
	if err != nil {
		return err
	}
	assumptions, err := json.Marshal(stringsOrEmpty(c.StatedAssumptions))
	if err != nil {
		return err
	}
	limitations, err := json.Marshal(stringsOrEmpty(c.KnownLimitations))
	if err != nil {
		return err
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO claims (`+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, c.ID, c.ClaimType, c.Title, c.Description, location, geometries,
		c.AreaHectares, impact, c.ActionStartDate, c.ActionEndDate,
		assumptions, limitations, c.SubmitterName, c.SubmitterContact,
		c.Status, c.VerificationID, c.CreatedAt, c.UpdatedAt)
	return err
}

func (db *DB) GetClaim(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)
	c, err := scanClaim(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: claim %s", domain.ErrNotFound, id)
	}
	return c, err
}

func (db *DB) ListClaims(ctx context.Context) ([]domain.Claim, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+claimColumns+` FROM claims ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (db *DB) UpdateClaimStatus(ctx context.Context, id uuid.UUID, from []domain.ClaimStatus, to domain.ClaimStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE claims SET status = $3, updated_at = now()
		WHERE id = $1 AND status = ANY($2)
	`, id, statuses, to)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing claim from a lost race.
		var exists bool
		if err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM claims WHERE id = $1)`, id).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, fmt.Errorf("%w: claim %s", domain.ErrNotFound, id)
		}
		return false, nil
	}
	return true, nil
}

func (db *DB) SetClaimVerification(ctx context.Context, id, verificationID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE claims SET verification_id = $2, updated_at = now() WHERE id = $1
	`, id, verificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: claim %s", domain.ErrNotFound, id)
	}
	return nil
}

func (db *DB) AppendGeometry(ctx context.Context, id uuid.UUID, g domain.Geometry, loc *domain.GeoPoint) error {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT geometry_versions FROM claims WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: claim %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return err
	}

	var versions []domain.Geometry
	if err = json.Unmarshal(raw, &versions); err != nil {
		return err
	}
	g.Version = len(versions) + 1
	versions = append(versions, g)
	updated, err := json.Marshal(versions)
	if err != nil {
		return err
	}

	location, err := marshalNullable(loc)
	if err != nil {
		return err
	}
	if loc != nil {
		_, err = tx.Exec(ctx, `
			UPDATE claims SET geometry_versions = $2, location = $3, updated_at = now() WHERE id = $1
		`, id, updated, location)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE claims SET geometry_versions = $2, updated_at = now() WHERE id = $1
		`, id, updated)
	}
	return err
}

// NextPendingVerification claims the oldest pending claim with SKIP LOCKED so
// concurrent workers never grab the same one.
func (db *DB) NextPendingVerification(ctx context.Context) (claim *domain.Claim, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+claimColumns+` FROM claims
		WHERE status = $1
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, domain.StatusAIAnalysisPending)
	claim, err = scanClaim(row)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if _, err = tx.Exec(ctx, `
		UPDATE claims SET status = $2, updated_at = now() WHERE id = $1
	`, claim.ID, domain.StatusAIAnalysisInProgress); err != nil {
		return nil, false, err
	}
	claim.Status = domain.StatusAIAnalysisInProgress
	return claim, true, nil
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var (
		c           domain.Claim
		location    []byte
		geometries  []byte
		impact      []byte
		assumptions []byte
		limitations []byte
	)
	err := row.Scan(&c.ID, &c.ClaimType, &c.Title, &c.Description, &location, &geometries,
		&c.AreaHectares, &impact, &c.ActionStartDate, &c.ActionEndDate,
		&assumptions, &limitations, &c.SubmitterName, &c.SubmitterContact,
		&c.Status, &c.VerificationID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if location != nil {
		if err := json.Unmarshal(location, &c.Location); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal(geometries, &c.GeometryVersions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(impact, &c.ClaimedImpact); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(assumptions, &c.StatedAssumptions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(limitations, &c.KnownLimitations); err != nil {
		return nil, err
	}
	return &c, nil
}

func marshalNullable(p *domain.GeoPoint) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
