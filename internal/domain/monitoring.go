package domain

import (
	"time"

	"github.com/google/uuid"
)

// MonitoringRun is one append-only entry in a credit's post-mint monitoring
// history. Runs are immutable once written and form the audit trail for
// every balance reduction: no other code path may rewrite credit remaining
// or status.
type MonitoringRun struct {
	ID                   uuid.UUID    `json:"id"`
	ClaimID              uuid.UUID    `json:"claim_id"`
	CreditID             uuid.UUID    `json:"credit_id"`
	RunDate              time.Time    `json:"run_date"`
	CurrentNDVI          float64      `json:"current_ndvi"`
	BaselineNDVI         float64      `json:"baseline_ndvi"`
	NDVIDelta            float64      `json:"ndvi_delta"`
	DegradationPercent   float64      `json:"degradation_percent"`
	BurnAmountTonnesCO2e float64      `json:"burn_amount_tonnes_co2e"`
	CreditStatusBefore   CreditStatus `json:"credit_status_before"`
	CreditStatusAfter    CreditStatus `json:"credit_status_after"`
	Notes                string       `json:"notes,omitempty"`
}
