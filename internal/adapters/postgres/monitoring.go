package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"carbonchain/internal/domain"
)

const runColumns = `id, claim_id, credit_id, run_date, current_ndvi, baseline_ndvi, ndvi_delta,
	degradation_percent, burn_amount_tonnes_co2e, credit_status_before, credit_status_after, notes`

func (db *DB) AppendMonitoringRun(ctx context.Context, r *domain.MonitoringRun) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO monitoring_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.ID, r.ClaimID, r.CreditID, r.RunDate, r.CurrentNDVI, r.BaselineNDVI, r.NDVIDelta,
		r.DegradationPercent, r.BurnAmountTonnesCO2e, r.CreditStatusBefore, r.CreditStatusAfter, r.Notes)
	return err
}

func (db *DB) ListRunsByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.MonitoringRun, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+runColumns+` FROM monitoring_runs WHERE claim_id = $1 ORDER BY run_date
	`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

func (db *DB) ListRunsByCredit(ctx context.Context, creditID uuid.UUID) ([]domain.MonitoringRun, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+runColumns+` FROM monitoring_runs WHERE credit_id = $1 ORDER BY run_date
	`, creditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

func collectRuns(rows pgx.Rows) ([]domain.MonitoringRun, error) {
	var out []domain.MonitoringRun
	for rows.Next() {
		var r domain.MonitoringRun
		if err := rows.Scan(&r.ID, &r.ClaimID, &r.CreditID, &r.RunDate, &r.CurrentNDVI, &r.BaselineNDVI, &r.NDVIDelta,
			&r.DegradationPercent, &r.BurnAmountTonnesCO2e, &r.CreditStatusBefore, &r.CreditStatusAfter, &r.Notes); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
