// Package ledger mints simulated carbon credits. Exactly one credit per
// claim, its amount capped by the verified impact and fixed forever at mint
// time.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
	"carbonchain/internal/locks"
	"carbonchain/internal/ports"
	"carbonchain/internal/services/lifecycle"
)

const creditLabel = "SIMULATED carbon credit, not tradable"

type Service struct {
	store   ports.Store
	machine *lifecycle.Machine
	locks   *locks.Keyed
}

func New(store ports.Store, machine *lifecycle.Machine, keyed *locks.Keyed) *Service {
	return &Service{store: store, machine: machine, locks: keyed}
}

// CanMint reports eligibility and, when ineligible, the first failing
// condition in plain words.
func (s *Service) CanMint(ctx context.Context, claimID uuid.UUID) (bool, string, error) {
	claim, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return false, "", err
	}
	return s.eligibility(ctx, claim)
}

func (s *Service) eligibility(ctx context.Context, claim *domain.Claim) (bool, string, error) {
	if _, err := s.store.GetCreditByClaim(ctx, claim.ID); err == nil {
		return false, "credit already minted for this claim", nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return false, "", err
	}
	if claim.Status == domain.StatusMinted {
		return false, "credit already minted for this claim", nil
	}
	if claim.Status != domain.StatusCommunityReviewed && claim.Status != domain.StatusApproved {
		return false, fmt.Sprintf("claim is %s, minting requires community_reviewed", claim.Status), nil
	}

	verification, err := s.store.GetVerificationByClaim(ctx, claim.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, "no completed verification on record", nil
		}
		return false, "", err
	}
	if verification.Status != domain.VerificationCompleted || verification.Outcome != domain.OutcomeApproved {
		return false, "verification did not approve the claim", nil
	}
	if verification.VerifiedImpact == nil || verification.VerifiedImpact.MaxTonnesCO2e <= 0 {
		return false, "verified impact is not positive", nil
	}

	for _, role := range []domain.ReviewRole{domain.RoleAuthority, domain.RoleCommunity} {
		review, err := s.store.GetReview(ctx, claim.ID, role)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return false, fmt.Sprintf("no %s review on record", role), nil
			}
			return false, "", err
		}
		if review.Decision != domain.DecisionApprove {
			return false, fmt.Sprintf("%s review did not approve", role), nil
		}
	}
	return true, "", nil
}

// Mint creates the claim's single credit. A retry against an already minted
// claim returns the existing credit together with ErrAlreadyMinted so the
// caller can present the canonical state.
func (s *Service) Mint(ctx context.Context, claimID uuid.UUID, amount float64) (*domain.MintedCredit, error) {
	unlock := s.locks.Lock("claim/" + claimID.String())
	defer unlock()

	claim, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.store.GetCreditByClaim(ctx, claimID); err == nil {
		// A prior attempt may have written the credit and then died before
		// the status transitions landed. Finish them so the claim cannot
		// stay community_reviewed with a live credit attached.
		if err := s.finishTransitions(ctx, claimID); err != nil {
			return nil, err
		}
		return existing, fmt.Errorf("%w: claim %s", domain.ErrAlreadyMinted, claimID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	eligible, reason, err := s.eligibility(ctx, claim)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotEligible, reason)
	}

	verification, err := s.store.GetVerificationByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: mint amount must be positive, got %v", domain.ErrValidation, amount)
	}
	if max := verification.VerifiedImpact.MaxTonnesCO2e; amount > max {
		return nil, fmt.Errorf("%w: requested %.2f tCO2e exceeds verified maximum %.2f", domain.ErrAmountExceedsVerifiedImpact, amount, max)
	}

	credit := &domain.MintedCredit{
		TokenID:             uuid.New(),
		ClaimID:             claimID,
		AmountTonnesCO2e:    amount,
		RemainingTonnesCO2e: amount,
		Status:              domain.CreditActive,
		BaselineNDVI:        verification.MonitoringNDVI,
		MintedAt:            time.Now().UTC(),
		IsSimulated:         true,
		Label:               creditLabel,
	}
	if err := s.store.CreateCredit(ctx, credit); err != nil {
		if errors.Is(err, domain.ErrAlreadyMinted) {
			if existing, getErr := s.store.GetCreditByClaim(ctx, claimID); getErr == nil {
				return existing, err
			}
		}
		return nil, err
	}

	if err := s.finishTransitions(ctx, claimID); err != nil {
		return nil, err
	}
	log.Printf("ledger: claim %s minted credit %s for %.2f tCO2e", claimID, credit.TokenID, amount)
	return credit, nil
}

func (s *Service) finishTransitions(ctx context.Context, claimID uuid.UUID) error {
	if err := s.machine.MarkApproved(ctx, claimID); err != nil {
		return err
	}
	return s.machine.MarkMinted(ctx, claimID)
}

func (s *Service) Credit(ctx context.Context, tokenID uuid.UUID) (*domain.MintedCredit, error) {
	return s.store.GetCredit(ctx, tokenID)
}
