package domain

import (
	"time"

	"github.com/google/uuid"
)

type VerificationStatus string

const (
	VerificationPending    VerificationStatus = "pending"
	VerificationInProgress VerificationStatus = "in_progress"
	VerificationCompleted  VerificationStatus = "completed"
	VerificationFailed     VerificationStatus = "failed"
)

type VerificationOutcome string

const (
	OutcomeApproved     VerificationOutcome = "approved"
	OutcomeRejected     VerificationOutcome = "rejected"
	OutcomeNeedsReview  VerificationOutcome = "needs_review"
	OutcomeInconclusive VerificationOutcome = "inconclusive"
)

// ConfidenceTier is the MRV service's qualitative confidence in its estimate.
type ConfidenceTier string

const (
	ConfidenceHigh    ConfidenceTier = "high"
	ConfidenceMedium  ConfidenceTier = "medium"
	ConfidenceLow     ConfidenceTier = "low"
	ConfidenceVeryLow ConfidenceTier = "very_low"
)

// Score maps a tier to a scalar: the midpoint of its band
// (high 0.85-1.0, medium 0.5-0.85, low 0.2-0.5, very_low 0-0.2).
func (t ConfidenceTier) Score() float64 {
	switch t {
	case ConfidenceHigh:
		return 0.925
	case ConfidenceMedium:
		return 0.675
	case ConfidenceLow:
		return 0.35
	default:
		return 0.1
	}
}

// VerifiedCarbonImpact is the MRV-verified impact range. Values are clamped
// to >= 0; raw negative satellite estimates are preserved in evidence only.
type VerifiedCarbonImpact struct {
	MinTonnesCO2e      float64        `json:"min_tonnes_co2e"`
	MaxTonnesCO2e      float64        `json:"max_tonnes_co2e"`
	PointEstimate      float64        `json:"point_estimate_tonnes_co2e"`
	Confidence         ConfidenceTier `json:"confidence"`
	MethodologyUsed    string         `json:"methodology_used"`
	DeviationFromClaim *float64       `json:"deviation_from_claim_percent,omitempty"`
}

// VerificationResult records one MRV run for a claim. At most one live
// (non-failed) result exists per claim; a retried failure replaces the
// failed record rather than adding a second one.
type VerificationResult struct {
	ID                uuid.UUID             `json:"id"`
	ClaimID           uuid.UUID             `json:"claim_id"`
	Status            VerificationStatus    `json:"status"`
	Outcome           VerificationOutcome   `json:"outcome,omitempty"`
	VerifiedImpact    *VerifiedCarbonImpact `json:"verified_impact,omitempty"`
	OverallConfidence ConfidenceTier        `json:"overall_confidence,omitempty"`
	Summary           string                `json:"summary,omitempty"`
	BaselineNDVI      *float64              `json:"baseline_ndvi,omitempty"`
	MonitoringNDVI    *float64              `json:"monitoring_ndvi,omitempty"`
	DeltaNDVI         *float64              `json:"delta_ndvi,omitempty"`
	FailureReason     string                `json:"failure_reason,omitempty"`
	VerifierID        string                `json:"verifier_id,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	CompletedAt       *time.Time            `json:"completed_at,omitempty"`
}

// AIVerdict is the alignment judgment between claimed and estimated impact.
// It reflects consistency, never approval; approval is governance's job.
type AIVerdict string

const (
	VerdictStronglySupports  AIVerdict = "strongly_supports"
	VerdictPartiallySupports AIVerdict = "partially_supports"
	VerdictContradicts       AIVerdict = "contradicts"
)

// AIConsistencyResult compares the claimed range against the independent
// MRV estimate. The verdict is a deterministic function of deviation
// magnitude and estimation confidence.
type AIConsistencyResult struct {
	ClaimID          uuid.UUID `json:"claim_id"`
	ClaimedMinCO2e   float64   `json:"claimed_min_co2e"`
	ClaimedMaxCO2e   float64   `json:"claimed_max_co2e"`
	EstimatedMinCO2e float64   `json:"estimated_min_co2e"`
	EstimatedMaxCO2e float64   `json:"estimated_max_co2e"`
	DeviationPercent float64   `json:"deviation_percent"`
	Verdict          AIVerdict `json:"verdict"`
	ConfidenceScore  float64   `json:"confidence_score"`
	Explanation      string    `json:"explanation"`
	CreatedAt        time.Time `json:"created_at"`
}
