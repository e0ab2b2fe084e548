// Package monitor performs post-issuance degradation checks. Every balance
// reduction in the system originates here and is recorded as an immutable
// monitoring run before anything else can observe it.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
	"carbonchain/internal/locks"
	"carbonchain/internal/ports"
)

// Degradation at or above this share of the baseline moves a credit
// straight to partially_burned instead of the at_risk warning state.
const severeDegradationPercent = 50.0

type Service struct {
	store    ports.Store
	provider ports.IndexProvider
	blobs    ports.BlobStore
	locks    *locks.Keyed
}

func New(store ports.Store, provider ports.IndexProvider, blobs ports.BlobStore, keyed *locks.Keyed) *Service {
	return &Service{store: store, provider: provider, blobs: blobs, locks: keyed}
}

// Run checks one credit against the present vegetation index and burns the
// proportional share of its remaining balance. A provider failure writes
// nothing: the credit keeps its balance until a trustworthy reading exists.
func (s *Service) Run(ctx context.Context, creditID uuid.UUID) (*domain.MonitoringRun, error) {
	credit, err := s.store.GetCredit(ctx, creditID)
	if err != nil {
		return nil, err
	}
	claim, err := s.store.GetClaim(ctx, credit.ClaimID)
	if err != nil {
		return nil, err
	}
	geometry := claim.Geometry()
	if geometry == nil {
		return nil, fmt.Errorf("%w: claim %s has no geometry to monitor", domain.ErrValidation, claim.ID)
	}
	if credit.BaselineNDVI == nil || *credit.BaselineNDVI <= 0 {
		return nil, fmt.Errorf("%w: credit %s has no usable baseline ndvi", domain.ErrIntegrity, creditID)
	}

	// Satellite read happens outside the credit lock.
	current, err := s.provider.CurrentNDVI(ctx, geometry.GeoJSON)
	if err != nil {
		return nil, fmt.Errorf("monitoring read for credit %s: %w", creditID, err)
	}

	unlock := s.locks.Lock("credit/" + creditID.String())
	defer unlock()

	// Re-read under the lock; a concurrent run may have burned already.
	credit, err = s.store.GetCredit(ctx, creditID)
	if err != nil {
		return nil, err
	}

	baseline := *credit.BaselineNDVI
	delta := current - baseline
	degradation := math.Max(0, -delta/baseline) * 100

	statusBefore := credit.Status
	remainingBefore := credit.RemainingTonnesCO2e

	burn := 0.0
	if statusBefore != domain.CreditFullyBurned {
		burn = remainingBefore * degradation / 100
	}
	remainingAfter := remainingBefore - burn
	if remainingAfter < 1e-9 {
		burn = remainingBefore
		remainingAfter = 0
	}
	statusAfter := statusTransition(statusBefore, credit.AmountTonnesCO2e, remainingAfter, degradation, burn > 0)

	run := &domain.MonitoringRun{
		ID:                   uuid.New(),
		ClaimID:              credit.ClaimID,
		CreditID:             creditID,
		RunDate:              time.Now().UTC(),
		CurrentNDVI:          current,
		BaselineNDVI:         baseline,
		NDVIDelta:            delta,
		DegradationPercent:   degradation,
		BurnAmountTonnesCO2e: burn,
		CreditStatusBefore:   statusBefore,
		CreditStatusAfter:    statusAfter,
		Notes:                runNotes(degradation, burn),
	}

	if burn > 0 || statusAfter != statusBefore {
		if err := s.store.UpdateCreditBalance(ctx, creditID, remainingAfter, statusAfter); err != nil {
			return nil, err
		}
	}
	if err := s.store.AppendMonitoringRun(ctx, run); err != nil {
		return nil, err
	}
	if err := s.recordRunEvidence(ctx, run); err != nil {
		log.Printf("monitor: credit %s: record run evidence: %v", creditID, err)
	}
	if burn > 0 {
		log.Printf("monitor: credit %s burned %.2f tCO2e (degradation %.1f%%), now %s", creditID, burn, degradation, statusAfter)
	}
	return run, nil
}

// RunDue monitors every credit that still carries balance. Failures are
// logged per credit and never stop the sweep.
func (s *Service) RunDue(ctx context.Context) error {
	credits, err := s.store.ListMonitorableCredits(ctx)
	if err != nil {
		return err
	}
	for _, c := range credits {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.Run(ctx, c.TokenID); err != nil {
			log.Printf("monitor: credit %s: %v", c.TokenID, err)
		}
	}
	return nil
}

// statusTransition applies the credit status rules. A full balance stays
// active, an emptied one is terminally fully_burned; in between, the first
// moderate reduction is a warning (at_risk) and anything further, or any
// severe degradation, is partially_burned.
func statusTransition(before domain.CreditStatus, amount, remaining, degradation float64, burned bool) domain.CreditStatus {
	if before == domain.CreditFullyBurned {
		return domain.CreditFullyBurned
	}
	if remaining <= 0 {
		return domain.CreditFullyBurned
	}
	if !burned {
		return before
	}
	if remaining >= amount {
		return domain.CreditActive
	}
	if before == domain.CreditActive && degradation < severeDegradationPercent {
		return domain.CreditAtRisk
	}
	return domain.CreditPartiallyBurned
}

func runNotes(degradation, burn float64) string {
	if burn <= 0 {
		return "vegetation stable or improving; no burn applied"
	}
	return fmt.Sprintf("degradation %.1f%% of baseline; burned %.2f tCO2e", degradation, burn)
}

func (s *Service) recordRunEvidence(ctx context.Context, run *domain.MonitoringRun) error {
	content, err := json.Marshal(run)
	if err != nil {
		return err
	}
	ref, hash, err := s.blobs.Put(content)
	if err != nil {
		return err
	}
	return s.store.CreateEvidence(ctx, &domain.Evidence{
		ID:               uuid.New(),
		ClaimID:          run.ClaimID,
		Type:             domain.EvidenceSystemAI,
		Source:           "post-issuance-monitor",
		Title:            "Monitoring run " + run.RunDate.Format("2006-01-02"),
		Description:      run.Notes,
		DataRef:          ref,
		ConfidenceWeight: 0.8,
		Hash:             hash,
		CreatedAt:        time.Now().UTC(),
	})
}
