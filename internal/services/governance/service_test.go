package governance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonchain/internal/adapters/memory"
	"carbonchain/internal/domain"
	"carbonchain/internal/locks"
	"carbonchain/internal/ports"
	"carbonchain/internal/services/lifecycle"
)

func newService() (*Service, *memory.Store) {
	store := memory.NewStore()
	return New(store, lifecycle.New(store), locks.NewKeyed()), store
}

func seedClaim(t *testing.T, store *memory.Store, status domain.ClaimStatus) uuid.UUID {
	t.Helper()
	c := &domain.Claim{
		ID:        uuid.New(),
		ClaimType: domain.ClaimReforestation,
		Title:     "review target",
		Status:    status,
		ClaimedImpact: domain.CarbonImpactEstimate{
			MinTonnesCO2e: 10, MaxTonnesCO2e: 20, TimeHorizonYears: 10,
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateClaim(context.Background(), c))
	return c.ID
}

func submission(claimID uuid.UUID, decision domain.ReviewDecision) domain.ReviewSubmission {
	return domain.ReviewSubmission{
		ClaimID:    claimID,
		ReviewerID: "reviewer-1",
		Decision:   decision,
		Notes:      "checked the satellite report and the uploaded permits",
	}
}

func TestAuthorityApproveAdvancesClaim(t *testing.T) {
	svc, store := newService()
	claimID := seedClaim(t, store, domain.StatusAIAnalyzed)

	record, err := svc.SubmitReview(context.Background(), domain.RoleAuthority, submission(claimID, domain.DecisionApprove))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAuthority, record.Role)

	claim, err := store.GetClaim(context.Background(), claimID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorityReviewed, claim.Status)
}

func TestCommunityRejectIsTerminal(t *testing.T) {
	svc, store := newService()
	claimID := seedClaim(t, store, domain.StatusAuthorityReviewed)

	_, err := svc.SubmitReview(context.Background(), domain.RoleCommunity, submission(claimID, domain.DecisionReject))
	require.NoError(t, err)

	claim, err := store.GetClaim(context.Background(), claimID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, claim.Status)
	assert.True(t, claim.Status.Terminal())
}

func TestCommunityBeforeAuthorityFails(t *testing.T) {
	svc, store := newService()
	claimID := seedClaim(t, store, domain.StatusAIAnalyzed)

	_, err := svc.SubmitReview(context.Background(), domain.RoleCommunity, submission(claimID, domain.DecisionApprove))
	assert.ErrorIs(t, err, domain.ErrInvalidStage)
}

func TestReviewBeforeAnalysisFails(t *testing.T) {
	svc, store := newService()
	claimID := seedClaim(t, store, domain.StatusAIAnalysisPending)

	_, err := svc.SubmitReview(context.Background(), domain.RoleAuthority, submission(claimID, domain.DecisionApprove))
	assert.ErrorIs(t, err, domain.ErrInvalidStage)
}

func TestDuplicateReviewRejected(t *testing.T) {
	svc, store := newService()
	claimID := seedClaim(t, store, domain.StatusAIAnalyzed)

	_, err := svc.SubmitReview(context.Background(), domain.RoleAuthority, submission(claimID, domain.DecisionApprove))
	require.NoError(t, err)

	// Same role again, different reviewer: the first decision is final.
	sub := submission(claimID, domain.DecisionReject)
	sub.ReviewerID = "reviewer-2"
	_, err = svc.SubmitReview(context.Background(), domain.RoleAuthority, sub)
	assert.ErrorIs(t, err, domain.ErrDuplicateReview)
}

// failingReviewStore simulates a store outage on the duplicate pre-check.
type failingReviewStore struct {
	ports.Store
	err error
}

func (s *failingReviewStore) GetReview(context.Context, uuid.UUID, domain.ReviewRole) (*domain.ReviewRecord, error) {
	return nil, s.err
}

func TestStoreFailureOnDuplicateCheckPropagates(t *testing.T) {
	store := memory.NewStore()
	claimID := seedClaim(t, store, domain.StatusAIAnalyzed)

	storeErr := errors.New("connection reset")
	failing := &failingReviewStore{Store: store, err: storeErr}
	svc := New(failing, lifecycle.New(store), locks.NewKeyed())

	_, err := svc.SubmitReview(context.Background(), domain.RoleAuthority, submission(claimID, domain.DecisionApprove))
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, domain.ErrDuplicateReview)

	reviews, err := store.ListReviewsByClaim(context.Background(), claimID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestValidation(t *testing.T) {
	svc, store := newService()
	claimID := seedClaim(t, store, domain.StatusAIAnalyzed)
	ctx := context.Background()

	sub := submission(claimID, domain.DecisionApprove)
	sub.ReviewerID = " "
	_, err := svc.SubmitReview(ctx, domain.RoleAuthority, sub)
	assert.ErrorIs(t, err, domain.ErrValidation)

	sub = submission(claimID, "maybe")
	_, err = svc.SubmitReview(ctx, domain.RoleAuthority, sub)
	assert.ErrorIs(t, err, domain.ErrValidation)

	sub = submission(claimID, domain.DecisionApprove)
	sub.Notes = ""
	_, err = svc.SubmitReview(ctx, domain.RoleAuthority, sub)
	assert.ErrorIs(t, err, domain.ErrValidation)

	bad := 1.5
	sub = submission(claimID, domain.DecisionApprove)
	sub.ConfidenceScore = &bad
	_, err = svc.SubmitReview(ctx, domain.RoleAuthority, sub)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestConcurrentReviewsOnlyOneWins(t *testing.T) {
	svc, store := newService()
	claimID := seedClaim(t, store, domain.StatusAIAnalyzed)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitReview(context.Background(), domain.RoleAuthority, submission(claimID, domain.DecisionApprove))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	reviews, err := store.ListReviewsByClaim(context.Background(), claimID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}
