// Package lifecycle owns every claim status transition. No other component
// writes Claim.Status; services call into the machine after their own
// bookkeeping succeeds.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
	"carbonchain/internal/ports"
)

// transitions is the full forward-only graph. Anything not listed here is
// unreachable, which is what the forward-only tests lean on.
var transitions = map[domain.ClaimStatus][]domain.ClaimStatus{
	domain.StatusSubmitted:            {domain.StatusAIAnalysisPending},
	domain.StatusAIAnalysisPending:    {domain.StatusAIAnalysisInProgress},
	domain.StatusAIAnalysisInProgress: {domain.StatusAIAnalyzed, domain.StatusAIRejected},
	domain.StatusAIAnalyzed:           {domain.StatusAuthorityReviewed, domain.StatusRejected},
	domain.StatusAuthorityReviewed:    {domain.StatusCommunityReviewed, domain.StatusRejected},
	domain.StatusCommunityReviewed:    {domain.StatusApproved},
	domain.StatusApproved:             {domain.StatusMinted},
}

// CanTransition reports whether from→to is an edge of the lifecycle graph.
func CanTransition(from, to domain.ClaimStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Machine performs transitions through compare-and-set updates against the
// claim store, so a lost race surfaces as a precondition failure instead of
// a silent overwrite. Compound operations that need to hold a claim lock
// across several steps (review + transition, mint + transition) take the
// lock in their own service and call the machine inside it.
type Machine struct {
	claims ports.ClaimRepository
}

func New(claims ports.ClaimRepository) *Machine {
	return &Machine{claims: claims}
}

// ScheduleAnalysis moves a freshly submitted claim into the verification
// queue.
func (m *Machine) ScheduleAnalysis(ctx context.Context, claimID uuid.UUID) error {
	ok, err := m.claims.UpdateClaimStatus(ctx, claimID,
		[]domain.ClaimStatus{domain.StatusSubmitted}, domain.StatusAIAnalysisPending)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: claim %s is not awaiting analysis", domain.ErrInvalidTransition, claimID)
	}
	return nil
}

// BeginAnalysis marks the claim as under MRV analysis. It is idempotent for
// a claim already in progress so that a retry after an external failure can
// re-enter the adapter.
func (m *Machine) BeginAnalysis(ctx context.Context, claimID uuid.UUID) error {
	c, err := m.claims.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status == domain.StatusAIAnalysisInProgress {
		return nil
	}
	ok, err := m.claims.UpdateClaimStatus(ctx, claimID,
		[]domain.ClaimStatus{domain.StatusSubmitted, domain.StatusAIAnalysisPending},
		domain.StatusAIAnalysisInProgress)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: claim %s is not awaiting analysis (status %s)", domain.ErrInvalidTransition, claimID, c.Status)
	}
	return nil
}

// AdvanceOnVerification applies the MRV verdict: a positive carbon impact
// moves the claim to ai_analyzed, anything else to the terminal ai_rejected.
// A second call after the decision has landed is a no-op returning the
// recorded status, so retrying callers never see an error.
func (m *Machine) AdvanceOnVerification(ctx context.Context, claimID uuid.UUID, positiveImpact bool) (domain.ClaimStatus, error) {
	c, err := m.claims.GetClaim(ctx, claimID)
	if err != nil {
		return "", err
	}
	if c.Status != domain.StatusAIAnalysisInProgress {
		// Decision already applied (or claim has moved further along).
		return c.Status, nil
	}

	target := domain.StatusAIAnalyzed
	if !positiveImpact {
		target = domain.StatusAIRejected
	}
	ok, err := m.claims.UpdateClaimStatus(ctx, claimID,
		[]domain.ClaimStatus{domain.StatusAIAnalysisInProgress}, target)
	if err != nil {
		return "", err
	}
	if !ok {
		// Concurrent verdict won the race; report what it decided.
		c, err = m.claims.GetClaim(ctx, claimID)
		if err != nil {
			return "", err
		}
		return c.Status, nil
	}
	return target, nil
}

// RecordReviewTransition applies the status change implied by a persisted
// governance decision. The governance coordinator holds the claim lock
// around review persistence and this call.
func (m *Machine) RecordReviewTransition(ctx context.Context, claimID uuid.UUID, role domain.ReviewRole, decision domain.ReviewDecision) error {
	var from, to domain.ClaimStatus
	switch role {
	case domain.RoleAuthority:
		from = domain.StatusAIAnalyzed
		to = domain.StatusAuthorityReviewed
	case domain.RoleCommunity:
		from = domain.StatusAuthorityReviewed
		to = domain.StatusCommunityReviewed
	default:
		return fmt.Errorf("%w: unknown review role %q", domain.ErrValidation, role)
	}
	if decision == domain.DecisionReject {
		to = domain.StatusRejected
	}

	ok, err := m.claims.UpdateClaimStatus(ctx, claimID, []domain.ClaimStatus{from}, to)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: claim %s is not in %s", domain.ErrInvalidTransition, claimID, from)
	}
	return nil
}

// MarkApproved records that all governance stages passed. Called by the
// credit ledger immediately before minting; tolerant of a previous attempt
// that got as far as approved.
func (m *Machine) MarkApproved(ctx context.Context, claimID uuid.UUID) error {
	c, err := m.claims.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status == domain.StatusApproved || c.Status == domain.StatusMinted {
		return nil
	}
	ok, err := m.claims.UpdateClaimStatus(ctx, claimID,
		[]domain.ClaimStatus{domain.StatusCommunityReviewed}, domain.StatusApproved)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: claim %s is not community_reviewed", domain.ErrInvalidTransition, claimID)
	}
	return nil
}

// MarkMinted finalizes the lifecycle after a successful mint. Idempotent: a
// claim already minted returns success without side effects, so retrying
// mint callers never surface a spurious error.
func (m *Machine) MarkMinted(ctx context.Context, claimID uuid.UUID) error {
	c, err := m.claims.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status == domain.StatusMinted {
		return nil
	}
	ok, err := m.claims.UpdateClaimStatus(ctx, claimID,
		[]domain.ClaimStatus{domain.StatusApproved}, domain.StatusMinted)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: claim %s is not approved", domain.ErrInvalidTransition, claimID)
	}
	return nil
}
