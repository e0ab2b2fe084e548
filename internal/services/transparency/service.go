// Package transparency assembles the public read views: the full claim
// aggregate and the derived audit timeline. Everything here is computed
// from stored records; nothing is written.
package transparency

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
	"carbonchain/internal/ports"
)

// Eligibility answers mint questions for the public view without taking a
// dependency on the whole ledger.
type Eligibility interface {
	CanMint(ctx context.Context, claimID uuid.UUID) (bool, string, error)
}

type Service struct {
	store  ports.Store
	ledger Eligibility
}

func New(store ports.Store, ledger Eligibility) *Service {
	return &Service{store: store, ledger: ledger}
}

// PublicClaim aggregates everything the public page shows for one claim.
func (s *Service) PublicClaim(ctx context.Context, claimID uuid.UUID) (*domain.PublicClaimView, error) {
	claim, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	view := &domain.PublicClaimView{
		Claim:             claim,
		Status:            claim.Status,
		Evidence:          []domain.EvidenceSummary{},
		MonitoringHistory: []domain.MonitoringRun{},
	}

	if v, err := s.store.GetVerificationByClaim(ctx, claimID); err == nil {
		view.Verification = v
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if c, err := s.store.GetConsistencyByClaim(ctx, claimID); err == nil {
		view.AIVerdict = c
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	reviews, err := s.store.ListReviewsByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		switch reviews[i].Role {
		case domain.RoleAuthority:
			view.AuthorityReview = &reviews[i]
		case domain.RoleCommunity:
			view.CommunityReview = &reviews[i]
		}
	}

	if credit, err := s.store.GetCreditByClaim(ctx, claimID); err == nil {
		view.MintedCredit = credit
		runs, err := s.store.ListRunsByCredit(ctx, credit.TokenID)
		if err != nil {
			return nil, err
		}
		view.MonitoringHistory = runs
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	evidence, err := s.store.ListEvidenceByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	for _, e := range evidence {
		view.Evidence = append(view.Evidence, e.Summary())
	}

	canMint, reason, err := s.ledger.CanMint(ctx, claimID)
	if err != nil {
		return nil, err
	}
	view.CanMint = canMint
	view.MintEligibilityReason = reason
	if canMint {
		view.MintEligibilityReason = "all verification and review stages passed"
	}
	return view, nil
}

// Report builds the audit view: the aggregate plus a chronological timeline
// of everything that happened to the claim.
func (s *Service) Report(ctx context.Context, claimID uuid.UUID) (*domain.TransparencyReport, error) {
	view, err := s.PublicClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return &domain.TransparencyReport{
		ClaimID:  claimID.String(),
		Timeline: buildTimeline(view),
		View:     *view,
	}, nil
}

func buildTimeline(view *domain.PublicClaimView) []domain.TimelineEvent {
	var events []domain.TimelineEvent

	events = append(events, domain.TimelineEvent{
		Timestamp:   view.Claim.CreatedAt,
		EventType:   "claim_submitted",
		Title:       "Claim submitted",
		Description: fmt.Sprintf("%q registered by %s", view.Claim.Title, view.Claim.SubmitterName),
		Source:      "claimant",
	})
	for _, g := range view.Claim.GeometryVersions {
		if g.Version == 1 {
			continue
		}
		events = append(events, domain.TimelineEvent{
			Timestamp:   g.CreatedAt,
			EventType:   "geometry_corrected",
			Title:       fmt.Sprintf("Site geometry corrected (version %d)", g.Version),
			Description: fmt.Sprintf("geometry replaced by %s", g.Source),
			Source:      string(g.Source),
		})
	}
	for _, e := range view.Evidence {
		events = append(events, domain.TimelineEvent{
			Timestamp:   e.CreatedAt,
			EventType:   "evidence_added",
			Title:       "Evidence added: " + e.Title,
			Description: fmt.Sprintf("%s evidence from %s", e.Type, e.Source),
			Source:      e.Source,
		})
	}
	if v := view.Verification; v != nil && v.CompletedAt != nil {
		events = append(events, domain.TimelineEvent{
			Timestamp:   *v.CompletedAt,
			EventType:   "verification_completed",
			Title:       "Satellite verification " + string(v.Outcome),
			Description: v.Summary,
			Source:      v.VerifierID,
		})
	}
	if c := view.AIVerdict; c != nil {
		events = append(events, domain.TimelineEvent{
			Timestamp:   c.CreatedAt,
			EventType:   "consistency_assessed",
			Title:       "AI consistency verdict: " + string(c.Verdict),
			Description: c.Explanation,
			Source:      "ai-mrv",
		})
	}
	for _, r := range []*domain.ReviewRecord{view.AuthorityReview, view.CommunityReview} {
		if r == nil {
			continue
		}
		events = append(events, domain.TimelineEvent{
			Timestamp:   r.CreatedAt,
			EventType:   string(r.Role) + "_review",
			Title:       fmt.Sprintf("%s review: %s", r.Role, r.Decision),
			Description: r.Notes,
			Source:      r.ReviewerID,
		})
	}
	if credit := view.MintedCredit; credit != nil {
		events = append(events, domain.TimelineEvent{
			Timestamp:   credit.MintedAt,
			EventType:   "credit_minted",
			Title:       fmt.Sprintf("Credit minted: %.2f tCO2e", credit.AmountTonnesCO2e),
			Description: credit.Label,
			Source:      "ledger",
		})
	}
	for _, run := range view.MonitoringHistory {
		events = append(events, domain.TimelineEvent{
			Timestamp:   run.RunDate,
			EventType:   "monitoring_run",
			Title:       fmt.Sprintf("Monitoring run: %s", run.CreditStatusAfter),
			Description: run.Notes,
			Source:      "post-issuance-monitor",
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}
