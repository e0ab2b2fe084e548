package transparency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonchain/internal/adapters/memory"
	"carbonchain/internal/domain"
	"carbonchain/internal/locks"
	"carbonchain/internal/services/ledger"
	"carbonchain/internal/services/lifecycle"
)

func newService() (*Service, *memory.Store) {
	store := memory.NewStore()
	led := ledger.New(store, lifecycle.New(store), locks.NewKeyed())
	return New(store, led), store
}

// seedFullLifecycle builds a claim that went all the way to a monitored
// credit.
func seedFullLifecycle(t *testing.T, store *memory.Store) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	claim := &domain.Claim{
		ID: uuid.New(), ClaimType: domain.ClaimMangroveRestoration,
		Title: "full lifecycle", SubmitterName: "Yayasan Pesisir",
		Status: domain.StatusMinted,
		ClaimedImpact: domain.CarbonImpactEstimate{
			MinTonnesCO2e: 50, MaxTonnesCO2e: 100, TimeHorizonYears: 10,
		},
		CreatedAt: base, UpdatedAt: base,
	}
	require.NoError(t, store.CreateClaim(ctx, claim))

	completed := base.Add(2 * time.Hour)
	verification := &domain.VerificationResult{
		ID: uuid.New(), ClaimID: claim.ID,
		Status: domain.VerificationCompleted, Outcome: domain.OutcomeApproved,
		VerifiedImpact: &domain.VerifiedCarbonImpact{
			MinTonnesCO2e: 40, MaxTonnesCO2e: 90, PointEstimate: 65, Confidence: domain.ConfidenceMedium,
		},
		Summary: "verified", VerifierID: "ai-mrv/v1",
		CreatedAt: base.Add(time.Hour), CompletedAt: &completed,
	}
	require.NoError(t, store.SaveVerification(ctx, verification))
	require.NoError(t, store.SetClaimVerification(ctx, claim.ID, verification.ID))

	require.NoError(t, store.SaveConsistency(ctx, &domain.AIConsistencyResult{
		ClaimID: claim.ID, Verdict: domain.VerdictPartiallySupports,
		ConfidenceScore: 0.675, Explanation: "ranges overlap", CreatedAt: completed,
	}))

	for i, role := range []domain.ReviewRole{domain.RoleAuthority, domain.RoleCommunity} {
		require.NoError(t, store.CreateReview(ctx, &domain.ReviewRecord{
			ID: uuid.New(), ClaimID: claim.ID, ReviewerID: "rev", Role: role,
			Decision: domain.DecisionApprove, Notes: "fine",
			CreatedAt: completed.Add(time.Duration(i+1) * time.Hour),
		}))
	}

	baseline := 0.52
	credit := &domain.MintedCredit{
		TokenID: uuid.New(), ClaimID: claim.ID,
		AmountTonnesCO2e: 80, RemainingTonnesCO2e: 60,
		Status: domain.CreditAtRisk, BaselineNDVI: &baseline,
		MintedAt: completed.Add(5 * time.Hour), IsSimulated: true,
	}
	require.NoError(t, store.CreateCredit(ctx, credit))

	require.NoError(t, store.AppendMonitoringRun(ctx, &domain.MonitoringRun{
		ID: uuid.New(), ClaimID: claim.ID, CreditID: credit.TokenID,
		RunDate: completed.Add(30 * 24 * time.Hour), CurrentNDVI: 0.39, BaselineNDVI: 0.52,
		NDVIDelta: -0.13, DegradationPercent: 25, BurnAmountTonnesCO2e: 20,
		CreditStatusBefore: domain.CreditActive, CreditStatusAfter: domain.CreditAtRisk,
		Notes: "burned 20",
	}))
	return claim.ID
}

func TestPublicClaimAggregatesEverything(t *testing.T) {
	svc, store := newService()
	claimID := seedFullLifecycle(t, store)

	view, err := svc.PublicClaim(context.Background(), claimID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusMinted, view.Status)
	require.NotNil(t, view.Verification)
	require.NotNil(t, view.AIVerdict)
	require.NotNil(t, view.AuthorityReview)
	require.NotNil(t, view.CommunityReview)
	require.NotNil(t, view.MintedCredit)
	assert.Len(t, view.MonitoringHistory, 1)
	assert.False(t, view.CanMint)
	assert.Contains(t, view.MintEligibilityReason, "already minted")
}

func TestPublicClaimForFreshClaim(t *testing.T) {
	svc, store := newService()
	c := &domain.Claim{
		ID: uuid.New(), ClaimType: domain.ClaimReforestation, Title: "fresh",
		Status: domain.StatusAIAnalysisPending,
		ClaimedImpact: domain.CarbonImpactEstimate{
			MinTonnesCO2e: 10, MaxTonnesCO2e: 20, TimeHorizonYears: 10,
		},
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateClaim(context.Background(), c))

	view, err := svc.PublicClaim(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Verification)
	assert.Nil(t, view.MintedCredit)
	assert.NotNil(t, view.Evidence)
	assert.False(t, view.CanMint)
	assert.NotEmpty(t, view.MintEligibilityReason)
}

func TestPublicClaimNotFound(t *testing.T) {
	svc, _ := newService()
	_, err := svc.PublicClaim(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReportTimelineIsChronological(t *testing.T) {
	svc, store := newService()
	claimID := seedFullLifecycle(t, store)

	report, err := svc.Report(context.Background(), claimID)
	require.NoError(t, err)
	require.NotEmpty(t, report.Timeline)

	assert.Equal(t, "claim_submitted", report.Timeline[0].EventType)
	for i := 1; i < len(report.Timeline); i++ {
		assert.False(t, report.Timeline[i].Timestamp.Before(report.Timeline[i-1].Timestamp),
			"timeline out of order at %d", i)
	}

	types := map[string]bool{}
	for _, e := range report.Timeline {
		types[e.EventType] = true
	}
	for _, want := range []string{"claim_submitted", "verification_completed", "authority_review", "community_review", "credit_minted", "monitoring_run"} {
		assert.True(t, types[want], "missing %s event", want)
	}
}
