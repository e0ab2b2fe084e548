package monitor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonchain/internal/adapters/blob"
	"carbonchain/internal/adapters/memory"
	"carbonchain/internal/domain"
	"carbonchain/internal/locks"
	"carbonchain/internal/ports"
)

type stubProvider struct {
	ndvi float64
	err  error
}

func (p *stubProvider) NDVIChange(_ context.Context, _ json.RawMessage, _, _, _, _ time.Time) (ports.IndexSample, error) {
	return ports.IndexSample{}, p.err
}

func (p *stubProvider) CurrentNDVI(_ context.Context, _ json.RawMessage) (float64, error) {
	return p.ndvi, p.err
}

func newService(t *testing.T, provider ports.IndexProvider) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	return New(store, provider, blobs, locks.NewKeyed()), store
}

// seedCredit creates a minted claim with a 100 tCO2e credit and the given
// baseline NDVI.
func seedCredit(t *testing.T, store *memory.Store, baseline float64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	geo := json.RawMessage(`{"type":"Polygon","coordinates":[[[110.5,-6.9],[110.6,-6.9],[110.6,-6.8],[110.5,-6.8],[110.5,-6.9]]]}`)

	claim := &domain.Claim{
		ID: uuid.New(), ClaimType: domain.ClaimMangroveRestoration, Title: "monitored",
		Status: domain.StatusMinted,
		GeometryVersions: []domain.Geometry{
			{Version: 1, Type: domain.GeometryPolygon, GeoJSON: geo, CreatedAt: now},
		},
		ClaimedImpact: domain.CarbonImpactEstimate{
			MinTonnesCO2e: 50, MaxTonnesCO2e: 150, TimeHorizonYears: 10,
		},
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.CreateClaim(ctx, claim))

	credit := &domain.MintedCredit{
		TokenID: uuid.New(), ClaimID: claim.ID,
		AmountTonnesCO2e: 100, RemainingTonnesCO2e: 100,
		Status: domain.CreditActive, BaselineNDVI: &baseline,
		MintedAt: now, IsSimulated: true,
	}
	require.NoError(t, store.CreateCredit(ctx, credit))
	return credit.TokenID
}

func TestRunBurnsProportionally(t *testing.T) {
	// Baseline 0.60 dropping to 0.45 is 25% degradation.
	provider := &stubProvider{ndvi: 0.45}
	svc, store := newService(t, provider)
	creditID := seedCredit(t, store, 0.60)

	run, err := svc.Run(context.Background(), creditID)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, run.DegradationPercent, 1e-6)
	assert.InDelta(t, 25.0, run.BurnAmountTonnesCO2e, 1e-6)
	assert.Equal(t, domain.CreditActive, run.CreditStatusBefore)
	assert.Equal(t, domain.CreditAtRisk, run.CreditStatusAfter)

	credit, err := store.GetCredit(context.Background(), creditID)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, credit.RemainingTonnesCO2e, 1e-6)
	assert.Equal(t, domain.CreditAtRisk, credit.Status)
}

func TestSecondReductionIsPartiallyBurned(t *testing.T) {
	provider := &stubProvider{ndvi: 0.45}
	svc, store := newService(t, provider)
	creditID := seedCredit(t, store, 0.60)

	_, err := svc.Run(context.Background(), creditID)
	require.NoError(t, err)
	run, err := svc.Run(context.Background(), creditID)
	require.NoError(t, err)

	assert.Equal(t, domain.CreditAtRisk, run.CreditStatusBefore)
	assert.Equal(t, domain.CreditPartiallyBurned, run.CreditStatusAfter)

	// 75 remaining minus another 25%.
	credit, err := store.GetCredit(context.Background(), creditID)
	require.NoError(t, err)
	assert.InDelta(t, 56.25, credit.RemainingTonnesCO2e, 1e-6)
}

func TestSevereDegradationSkipsAtRisk(t *testing.T) {
	// Baseline 0.60 down to 0.24 is 60% degradation.
	provider := &stubProvider{ndvi: 0.24}
	svc, store := newService(t, provider)
	creditID := seedCredit(t, store, 0.60)

	run, err := svc.Run(context.Background(), creditID)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, run.DegradationPercent, 1e-6)
	assert.Equal(t, domain.CreditPartiallyBurned, run.CreditStatusAfter)
}

func TestTotalLossFullyBurnsTerminally(t *testing.T) {
	provider := &stubProvider{ndvi: 0.0}
	svc, store := newService(t, provider)
	creditID := seedCredit(t, store, 0.60)

	run, err := svc.Run(context.Background(), creditID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, run.BurnAmountTonnesCO2e, 1e-6)
	assert.Equal(t, domain.CreditFullyBurned, run.CreditStatusAfter)

	// Recovery later never resurrects the balance.
	provider.ndvi = 0.80
	again, err := svc.Run(context.Background(), creditID)
	require.NoError(t, err)
	assert.Zero(t, again.BurnAmountTonnesCO2e)
	assert.Equal(t, domain.CreditFullyBurned, again.CreditStatusAfter)

	credit, err := store.GetCredit(context.Background(), creditID)
	require.NoError(t, err)
	assert.Zero(t, credit.RemainingTonnesCO2e)
}

func TestGrowthBurnsNothing(t *testing.T) {
	provider := &stubProvider{ndvi: 0.72}
	svc, store := newService(t, provider)
	creditID := seedCredit(t, store, 0.60)

	run, err := svc.Run(context.Background(), creditID)
	require.NoError(t, err)
	assert.Zero(t, run.DegradationPercent)
	assert.Zero(t, run.BurnAmountTonnesCO2e)
	assert.Equal(t, domain.CreditActive, run.CreditStatusAfter)

	credit, err := store.GetCredit(context.Background(), creditID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, credit.RemainingTonnesCO2e, 1e-9)
}

func TestProviderFailureWritesNothing(t *testing.T) {
	provider := &stubProvider{err: domain.ErrExternalService}
	svc, store := newService(t, provider)
	creditID := seedCredit(t, store, 0.60)

	_, err := svc.Run(context.Background(), creditID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalService)

	runs, err := store.ListRunsByCredit(context.Background(), creditID)
	require.NoError(t, err)
	assert.Empty(t, runs)

	credit, err := store.GetCredit(context.Background(), creditID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, credit.RemainingTonnesCO2e, 1e-9)
	assert.Equal(t, domain.CreditActive, credit.Status)
}

func TestRunDueSkipsFullyBurned(t *testing.T) {
	provider := &stubProvider{ndvi: 0.45}
	svc, store := newService(t, provider)
	aliveID := seedCredit(t, store, 0.60)
	deadID := seedCredit(t, store, 0.60)
	require.NoError(t, store.UpdateCreditBalance(context.Background(), deadID, 0, domain.CreditFullyBurned))

	require.NoError(t, svc.RunDue(context.Background()))

	aliveRuns, err := store.ListRunsByCredit(context.Background(), aliveID)
	require.NoError(t, err)
	assert.Len(t, aliveRuns, 1)

	deadRuns, err := store.ListRunsByCredit(context.Background(), deadID)
	require.NoError(t, err)
	assert.Empty(t, deadRuns)
}

func TestMonitoringHistoryAccumulates(t *testing.T) {
	provider := &stubProvider{ndvi: 0.57}
	svc, store := newService(t, provider)
	creditID := seedCredit(t, store, 0.60)

	for i := 0; i < 3; i++ {
		_, err := svc.Run(context.Background(), creditID)
		require.NoError(t, err)
	}
	runs, err := store.ListRunsByCredit(context.Background(), creditID)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	// Each run recorded the balance trajectory monotonically.
	assert.Greater(t, runs[0].BurnAmountTonnesCO2e, runs[1].BurnAmountTonnesCO2e)
}
