// Package governance records authority and community review decisions. One
// decision per (claim, role), final once written; the stage order (authority
// before community) is enforced here and the resulting status transition is
// delegated to the lifecycle machine.
package governance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
	"carbonchain/internal/locks"
	"carbonchain/internal/ports"
	"carbonchain/internal/services/lifecycle"
)

type Service struct {
	store   ports.Store
	machine *lifecycle.Machine
	locks   *locks.Keyed
}

func New(store ports.Store, machine *lifecycle.Machine, keyed *locks.Keyed) *Service {
	return &Service{store: store, machine: machine, locks: keyed}
}

// SubmitReview validates the stage precondition, persists the decision and
// applies the implied status transition, all under the claim lock so two
// reviewers can't interleave.
func (s *Service) SubmitReview(ctx context.Context, role domain.ReviewRole, sub domain.ReviewSubmission) (*domain.ReviewRecord, error) {
	if err := validateSubmission(role, sub); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("claim/" + sub.ClaimID.String())
	defer unlock()

	claim, err := s.store.GetClaim(ctx, sub.ClaimID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetReview(ctx, sub.ClaimID, role)
	if err == nil {
		return nil, fmt.Errorf("%w: %s review already recorded by %s", domain.ErrDuplicateReview, role, existing.ReviewerID)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err := checkStage(claim, role); err != nil {
		return nil, err
	}

	record := &domain.ReviewRecord{
		ID:              uuid.New(),
		ClaimID:         sub.ClaimID,
		ReviewerID:      strings.TrimSpace(sub.ReviewerID),
		Role:            role,
		Decision:        sub.Decision,
		ConfidenceScore: sub.ConfidenceScore,
		Positives:       sub.Positives,
		Concerns:        sub.Concerns,
		Notes:           strings.TrimSpace(sub.Notes),
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.CreateReview(ctx, record); err != nil {
		return nil, err
	}
	if err := s.machine.RecordReviewTransition(ctx, sub.ClaimID, role, sub.Decision); err != nil {
		return nil, err
	}
	log.Printf("governance: claim %s: %s review by %s: %s", sub.ClaimID, role, record.ReviewerID, sub.Decision)
	return record, nil
}

func (s *Service) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.ReviewRecord, error) {
	if _, err := s.store.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	return s.store.ListReviewsByClaim(ctx, claimID)
}

// checkStage enforces the review order: authority reviews an AI-analyzed
// claim, community reviews after the authority passed it.
func checkStage(claim *domain.Claim, role domain.ReviewRole) error {
	var want domain.ClaimStatus
	switch role {
	case domain.RoleAuthority:
		want = domain.StatusAIAnalyzed
	case domain.RoleCommunity:
		want = domain.StatusAuthorityReviewed
	default:
		return fmt.Errorf("%w: unknown review role %q", domain.ErrValidation, role)
	}
	if claim.Status != want {
		return fmt.Errorf("%w: claim %s is %s, %s review requires %s", domain.ErrInvalidStage, claim.ID, claim.Status, role, want)
	}
	return nil
}

func validateSubmission(role domain.ReviewRole, sub domain.ReviewSubmission) error {
	if role != domain.RoleAuthority && role != domain.RoleCommunity {
		return fmt.Errorf("%w: unknown review role %q", domain.ErrValidation, role)
	}
	if strings.TrimSpace(sub.ReviewerID) == "" {
		return fmt.Errorf("%w: reviewer_id is required", domain.ErrValidation)
	}
	if sub.Decision != domain.DecisionApprove && sub.Decision != domain.DecisionReject {
		return fmt.Errorf("%w: decision must be approve or reject, got %q", domain.ErrValidation, sub.Decision)
	}
	if strings.TrimSpace(sub.Notes) == "" {
		return fmt.Errorf("%w: review notes are required", domain.ErrValidation)
	}
	if sub.ConfidenceScore != nil && (*sub.ConfidenceScore < 0 || *sub.ConfidenceScore > 1) {
		return fmt.Errorf("%w: confidence_score must be in [0, 1]", domain.ErrValidation)
	}
	return nil
}
