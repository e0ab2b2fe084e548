package mrv

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
)

// Deviation within this band (in percent of the claimed midpoint) can still
// count as strong support, given enough estimation confidence.
const strongSupportDeviationPercent = 15.0

// assessConsistency compares the claimed range against the independent
// estimate. The verdict is deterministic; when a case sits on a boundary it
// gets the weaker verdict. It is an alignment judgment only, approval stays
// with the human reviewers.
func assessConsistency(claimID uuid.UUID, claimed domain.CarbonImpactEstimate, est carbonEstimate) domain.AIConsistencyResult {
	claimedMid := claimed.Midpoint()
	estMid := est.PointEstimate

	deviation := 0.0
	if claimedMid != 0 {
		deviation = (estMid - claimedMid) / claimedMid * 100
	}

	overlap := est.MaxTonnesCO2e >= claimed.MinTonnesCO2e && claimed.MaxTonnesCO2e >= est.MinTonnesCO2e

	var (
		verdict     domain.AIVerdict
		explanation string
	)
	switch {
	case estMid <= 0:
		verdict = domain.VerdictContradicts
		explanation = fmt.Sprintf("satellite analysis estimates no positive carbon impact (%.1f tCO2e midpoint) against a claimed %.1f tCO2e", estMid, claimedMid)
	case !overlap:
		verdict = domain.VerdictContradicts
		explanation = fmt.Sprintf("estimated range [%.1f, %.1f] tCO2e does not overlap claimed range [%.1f, %.1f]", est.MinTonnesCO2e, est.MaxTonnesCO2e, claimed.MinTonnesCO2e, claimed.MaxTonnesCO2e)
	case math.Abs(deviation) <= strongSupportDeviationPercent && confidenceAtLeastMedium(est.Confidence):
		verdict = domain.VerdictStronglySupports
		explanation = fmt.Sprintf("estimate deviates %.1f%% from the claimed midpoint with %s confidence", deviation, est.Confidence)
	default:
		verdict = domain.VerdictPartiallySupports
		explanation = fmt.Sprintf("ranges overlap but the estimate deviates %.1f%% from the claimed midpoint (%s confidence)", deviation, est.Confidence)
	}

	return domain.AIConsistencyResult{
		ClaimID:          claimID,
		ClaimedMinCO2e:   claimed.MinTonnesCO2e,
		ClaimedMaxCO2e:   claimed.MaxTonnesCO2e,
		EstimatedMinCO2e: est.MinTonnesCO2e,
		EstimatedMaxCO2e: est.MaxTonnesCO2e,
		DeviationPercent: deviation,
		Verdict:          verdict,
		ConfidenceScore:  est.Confidence.Score(),
		Explanation:      explanation,
		CreatedAt:        time.Now().UTC(),
	}
}

func confidenceAtLeastMedium(t domain.ConfidenceTier) bool {
	return t == domain.ConfidenceHigh || t == domain.ConfidenceMedium
}
