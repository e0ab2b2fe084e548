package domain

import (
	"time"

	"github.com/google/uuid"
)

type CreditStatus string

const (
	CreditActive          CreditStatus = "active"
	CreditAtRisk          CreditStatus = "at_risk"
	CreditPartiallyBurned CreditStatus = "partially_burned"
	CreditFullyBurned     CreditStatus = "fully_burned"
)

// MintedCredit is a simulated carbon-credit ledger entry, created exactly
// once per claim. Amount is fixed at mint time; Remaining starts equal to
// Amount and only ever decreases in response to verified degradation.
type MintedCredit struct {
	TokenID             uuid.UUID    `json:"token_id"`
	ClaimID             uuid.UUID    `json:"claim_id"`
	AmountTonnesCO2e    float64      `json:"amount_tonnes_co2e"`
	RemainingTonnesCO2e float64      `json:"remaining_tonnes_co2e"`
	Status              CreditStatus `json:"status"`
	BaselineNDVI        *float64     `json:"baseline_ndvi,omitempty"`
	MintedAt            time.Time    `json:"minted_at"`
	IsSimulated         bool         `json:"is_simulated"`
	Label               string       `json:"label"`
}
