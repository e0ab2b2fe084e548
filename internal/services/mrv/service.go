// Package mrv runs the automated measurement, reporting and verification
// pass: satellite index retrieval, carbon estimation and the consistency
// verdict against the claimed impact.
package mrv

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
	"carbonchain/internal/locks"
	"carbonchain/internal/ports"
	"carbonchain/internal/services/lifecycle"
)

const verifierID = "ai-mrv/v1"

type Service struct {
	store    ports.Store
	machine  *lifecycle.Machine
	provider ports.IndexProvider
	blobs    ports.BlobStore
	locks    *locks.Keyed
}

func New(store ports.Store, machine *lifecycle.Machine, provider ports.IndexProvider, blobs ports.BlobStore, keyed *locks.Keyed) *Service {
	return &Service{store: store, machine: machine, provider: provider, blobs: blobs, locks: keyed}
}

func (s *Service) GetVerification(ctx context.Context, id uuid.UUID) (*domain.VerificationResult, error) {
	return s.store.GetVerification(ctx, id)
}

// Verify runs the MRV pass for a claim. A completed verification stands: a
// repeat call returns it unchanged. A failed pass leaves the claim in
// progress and is retried by calling Verify again.
func (s *Service) Verify(ctx context.Context, claimID uuid.UUID) (*domain.VerificationResult, error) {
	unlock := s.locks.Lock("claim/" + claimID.String())

	claim, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		unlock()
		return nil, err
	}
	if existing, err := s.store.GetVerificationByClaim(ctx, claimID); err == nil && existing.Status == domain.VerificationCompleted {
		unlock()
		return existing, nil
	}
	switch claim.Status {
	case domain.StatusSubmitted, domain.StatusAIAnalysisPending, domain.StatusAIAnalysisInProgress:
	default:
		unlock()
		return nil, fmt.Errorf("%w: claim %s is %s, not awaiting analysis", domain.ErrInvalidStage, claimID, claim.Status)
	}
	if err := s.machine.BeginAnalysis(ctx, claimID); err != nil {
		unlock()
		return nil, err
	}
	geometry := claim.Geometry()
	if geometry == nil {
		unlock()
		return nil, fmt.Errorf("%w: claim %s has no geometry to analyze", domain.ErrValidation, claimID)
	}
	unlock()

	// The satellite call runs without the claim lock; it can take a while
	// and must not block reviews or reads.
	baselineStart, baselineEnd, monitoringStart, monitoringEnd := analysisWindows(claim)
	sample, providerErr := s.provider.NDVIChange(ctx, geometry.GeoJSON, baselineStart, baselineEnd, monitoringStart, monitoringEnd)

	unlock = s.locks.Lock("claim/" + claimID.String())
	defer unlock()

	if providerErr != nil {
		failed := &domain.VerificationResult{
			ID:            uuid.New(),
			ClaimID:       claimID,
			Status:        domain.VerificationFailed,
			FailureReason: providerErr.Error(),
			VerifierID:    verifierID,
			CreatedAt:     time.Now().UTC(),
		}
		if err := s.store.SaveVerification(ctx, failed); err != nil {
			return nil, err
		}
		log.Printf("mrv: claim %s analysis failed, left retryable: %v", claimID, providerErr)
		return nil, fmt.Errorf("satellite analysis for claim %s: %w", claimID, providerErr)
	}

	// A concurrent pass may have landed a decision while we were waiting on
	// the provider.
	if current, err := s.store.GetClaim(ctx, claimID); err != nil {
		return nil, err
	} else if current.Status != domain.StatusAIAnalysisInProgress {
		return s.store.GetVerificationByClaim(ctx, claimID)
	}

	est := estimateCarbon(sample.DeltaNDVI, siteArea(claim))
	impact := est.verifiedImpact()
	consistency := assessConsistency(claimID, claim.ClaimedImpact, est)
	impact.DeviationFromClaim = &consistency.DeviationPercent

	positive := impact.PointEstimate > 0
	outcome := domain.OutcomeApproved
	summary := fmt.Sprintf("NDVI %+.3f over %s window; verified %.1f tCO2e (%s confidence)",
		sample.DeltaNDVI, monitoringEnd.Sub(monitoringStart).Round(24*time.Hour), impact.PointEstimate, impact.Confidence)
	if !positive {
		outcome = domain.OutcomeRejected
		summary = fmt.Sprintf("NDVI %+.3f shows no verifiable positive carbon impact", sample.DeltaNDVI)
	}

	now := time.Now().UTC()
	result := &domain.VerificationResult{
		ID:                uuid.New(),
		ClaimID:           claimID,
		Status:            domain.VerificationCompleted,
		Outcome:           outcome,
		VerifiedImpact:    &impact,
		OverallConfidence: impact.Confidence,
		Summary:           summary,
		BaselineNDVI:      &sample.BaselineNDVI,
		MonitoringNDVI:    &sample.MonitoringNDVI,
		DeltaNDVI:         &sample.DeltaNDVI,
		VerifierID:        verifierID,
		CreatedAt:         now,
		CompletedAt:       &now,
	}
	if err := s.store.SaveVerification(ctx, result); err != nil {
		return nil, err
	}
	if err := s.store.SetClaimVerification(ctx, claimID, result.ID); err != nil {
		return nil, err
	}
	if positive {
		if err := s.store.SaveConsistency(ctx, &consistency); err != nil {
			return nil, err
		}
	}
	if err := s.recordAnalysisEvidence(ctx, claim, result, sample, consistency); err != nil {
		// Evidence is supporting material; the verification itself stands.
		log.Printf("mrv: claim %s: record analysis evidence: %v", claimID, err)
	}

	status, err := s.machine.AdvanceOnVerification(ctx, claimID, positive)
	if err != nil {
		return nil, err
	}
	log.Printf("mrv: claim %s verified: outcome=%s status=%s", claimID, outcome, status)
	return result, nil
}

// analysisWindows derives the two comparison periods: the year leading up to
// the action as baseline, and the action period (capped at a year when
// open-ended) for monitoring.
func analysisWindows(c *domain.Claim) (baselineStart, baselineEnd, monitoringStart, monitoringEnd time.Time) {
	baselineEnd = c.ActionStartDate
	baselineStart = baselineEnd.AddDate(-1, 0, 0)
	monitoringStart = c.ActionStartDate
	if c.ActionEndDate != nil {
		monitoringEnd = *c.ActionEndDate
	} else {
		monitoringEnd = monitoringStart.AddDate(1, 0, 0)
	}
	if now := time.Now().UTC(); monitoringEnd.After(now) {
		monitoringEnd = now
	}
	return baselineStart, baselineEnd, monitoringStart, monitoringEnd
}

// recordAnalysisEvidence stores the full machine-readable analysis report as
// content-addressed evidence so the public can audit the verdict.
func (s *Service) recordAnalysisEvidence(ctx context.Context, claim *domain.Claim, result *domain.VerificationResult, sample ports.IndexSample, consistency domain.AIConsistencyResult) error {
	report := map[string]any{
		"verifier_id":  verifierID,
		"methodology":  Methodology,
		"claim_id":     claim.ID,
		"ndvi":         sample,
		"verification": result,
		"consistency":  consistency,
	}
	content, err := json.Marshal(report)
	if err != nil {
		return err
	}
	ref, hash, err := s.blobs.Put(content)
	if err != nil {
		return err
	}
	return s.store.CreateEvidence(ctx, &domain.Evidence{
		ID:               uuid.New(),
		ClaimID:          claim.ID,
		Type:             domain.EvidenceSystemAI,
		Source:           verifierID,
		Title:            "Satellite MRV analysis report",
		Description:      result.Summary,
		DataRef:          ref,
		ConfidenceWeight: result.OverallConfidence.Score(),
		Hash:             hash,
		CreatedAt:        time.Now().UTC(),
	})
}
