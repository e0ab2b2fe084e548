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

const verificationColumns = `id, claim_id, status, outcome, verified_impact, overall_confidence,
	summary, baseline_ndvi, monitoring_ndvi, delta_ndvi, failure_reason, verifier_id, created_at, completed_at`

// SaveVerification upserts by claim: a retried analysis replaces the failed
// record instead of accumulating a second one.
func (db *DB) SaveVerification(ctx context.Context, v *domain.VerificationResult) error {
	var impact []byte
	if v.VerifiedImpact != nil {
		b, err := json.Marshal(v.VerifiedImpact)
		if err != nil {
			return err
		}
		impact = b
	}
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO verifications (`+verificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (claim_id) DO UPDATE SET
			id = EXCLUDED.id,
			status = EXCLUDED.status,
			outcome = EXCLUDED.outcome,
			verified_impact = EXCLUDED.verified_impact,
			overall_confidence = EXCLUDED.overall_confidence,
			summary = EXCLUDED.summary,
			baseline_ndvi = EXCLUDED.baseline_ndvi,
			monitoring_ndvi = EXCLUDED.monitoring_ndvi,
			delta_ndvi = EXCLUDED.delta_ndvi,
			failure_reason = EXCLUDED.failure_reason,
			verifier_id = EXCLUDED.verifier_id,
			created_at = EXCLUDED.created_at,
			completed_at = EXCLUDED.completed_at
	`, v.ID, v.ClaimID, v.Status, v.Outcome, impact, v.OverallConfidence,
		v.Summary, v.BaselineNDVI, v.MonitoringNDVI, v.DeltaNDVI, v.FailureReason, v.VerifierID, v.CreatedAt, v.CompletedAt)
	return err
}

func (db *DB) GetVerification(ctx context.Context, id uuid.UUID) (*domain.VerificationResult, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE id = $1`, id)
	v, err := scanVerification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: verification %s", domain.ErrNotFound, id)
	}
	return v, err
}

func (db *DB) GetVerificationByClaim(ctx context.Context, claimID uuid.UUID) (*domain.VerificationResult, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE claim_id = $1`, claimID)
	v, err := scanVerification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: verification for claim %s", domain.ErrNotFound, claimID)
	}
	return v, err
}

func (db *DB) SaveConsistency(ctx context.Context, r *domain.AIConsistencyResult) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO consistency_results (claim_id, claimed_min_co2e, claimed_max_co2e,
			estimated_min_co2e, estimated_max_co2e, deviation_percent, verdict,
			confidence_score, explanation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (claim_id) DO UPDATE SET
			claimed_min_co2e = EXCLUDED.claimed_min_co2e,
			claimed_max_co2e = EXCLUDED.claimed_max_co2e,
			estimated_min_co2e = EXCLUDED.estimated_min_co2e,
			estimated_max_co2e = EXCLUDED.estimated_max_co2e,
			deviation_percent = EXCLUDED.deviation_percent,
			verdict = EXCLUDED.verdict,
			confidence_score = EXCLUDED.confidence_score,
			explanation = EXCLUDED.explanation,
			created_at = EXCLUDED.created_at
	`, r.ClaimID, r.ClaimedMinCO2e, r.ClaimedMaxCO2e, r.EstimatedMinCO2e, r.EstimatedMaxCO2e,
		r.DeviationPercent, r.Verdict, r.ConfidenceScore, r.Explanation, r.CreatedAt)
	return err
}

func (db *DB) GetConsistencyByClaim(ctx context.Context, claimID uuid.UUID) (*domain.AIConsistencyResult, error) {
	var r domain.AIConsistencyResult
	err := db.Pool.QueryRow(ctx, `
		SELECT claim_id, claimed_min_co2e, claimed_max_co2e, estimated_min_co2e,
			estimated_max_co2e, deviation_percent, verdict, confidence_score, explanation, created_at
		FROM consistency_results WHERE claim_id = $1
	`, claimID).Scan(&r.ClaimID, &r.ClaimedMinCO2e, &r.ClaimedMaxCO2e, &r.EstimatedMinCO2e,
		&r.EstimatedMaxCO2e, &r.DeviationPercent, &r.Verdict, &r.ConfidenceScore, &r.Explanation, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: consistency result for claim %s", domain.ErrNotFound, claimID)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanVerification(row pgx.Row) (*domain.VerificationResult, error) {
	var (
		v      domain.VerificationResult
		impact []byte
	)
	err := row.Scan(&v.ID, &v.ClaimID, &v.Status, &v.Outcome, &impact, &v.OverallConfidence,
		&v.Summary, &v.BaselineNDVI, &v.MonitoringNDVI, &v.DeltaNDVI, &v.FailureReason, &v.VerifierID, &v.CreatedAt, &v.CompletedAt)
	if err != nil {
		return nil, err
	}
	if impact != nil {
		if err := json.Unmarshal(impact, &v.VerifiedImpact); err != nil {
			return nil, err
		}
	}
	return &v, nil
}
