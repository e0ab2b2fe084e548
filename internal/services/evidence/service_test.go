package evidence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonchain/internal/adapters/blob"
	"carbonchain/internal/adapters/memory"
	"carbonchain/internal/domain"
	"carbonchain/internal/ports"
)

func newService(t *testing.T) (*Service, *memory.Store, uuid.UUID) {
	t.Helper()
	store := memory.NewStore()
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)

	claim := &domain.Claim{
		ID:        uuid.New(),
		ClaimType: domain.ClaimReforestation,
		Title:     "test claim",
		Status:    domain.StatusAIAnalysisPending,
		ClaimedImpact: domain.CarbonImpactEstimate{
			MinTonnesCO2e: 10, MaxTonnesCO2e: 20, TimeHorizonYears: 10,
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateClaim(context.Background(), claim))
	return New(store, blobs), store, claim.ID
}

func TestUploadStoresAndHashes(t *testing.T) {
	svc, _, claimID := newService(t)

	accepted, issues, err := svc.Upload(context.Background(), claimID, []ports.UploadedFile{
		{Filename: "site-photo.jpg", Description: "drone shot", Content: []byte("jpeg bytes")},
	})
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, accepted, 1)

	e := accepted[0]
	assert.Equal(t, domain.EvidenceUserUpload, e.Type)
	assert.Equal(t, "site-photo.jpg", e.Title)
	assert.Contains(t, e.DataRef, "blob://")
	assert.Len(t, e.Hash, 64)

	ok, detail, err := svc.VerifyIntegrity(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, ok, detail)
}

func TestUploadReportsPerFileIssues(t *testing.T) {
	svc, _, claimID := newService(t)

	accepted, issues, err := svc.Upload(context.Background(), claimID, []ports.UploadedFile{
		{Filename: "report.pdf", Content: []byte("pdf bytes")},
		{Filename: "malware.exe", Content: []byte("nope")},
		{Filename: "empty.csv", Content: nil},
		{Filename: "../../etc/passwd.txt", Content: []byte("path traversal")},
	})
	require.NoError(t, err)
	assert.Len(t, accepted, 2, "pdf and the sanitized txt should pass")
	assert.Len(t, issues, 2)

	reasons := map[string]string{}
	for _, i := range issues {
		reasons[i.Filename] = i.Reason
	}
	assert.Contains(t, reasons["malware.exe"], "not accepted")
	assert.Contains(t, reasons["empty.csv"], "empty")

	// The traversal attempt is reduced to its base name.
	var titles []string
	for _, e := range accepted {
		titles = append(titles, e.Title)
	}
	assert.Contains(t, titles, "passwd.txt")
}

func TestUploadUnknownClaim(t *testing.T) {
	svc, _, _ := newService(t)
	_, _, err := svc.Upload(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateFromReferenceHashIsVerifiable(t *testing.T) {
	svc, _, claimID := newService(t)

	e, err := svc.CreateFromReference(context.Background(), claimID,
		domain.EvidenceDocument, "national_registry", "Permit 42/2023",
		"Provincial restoration permit", "https://registry.example/permits/42", 0.7)
	require.NoError(t, err)
	assert.Len(t, e.Hash, 64)

	ok, _, err := svc.VerifyIntegrity(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateFromReferenceValidation(t *testing.T) {
	svc, _, claimID := newService(t)
	ctx := context.Background()

	_, err := svc.CreateFromReference(ctx, claimID, domain.EvidenceDocument, "x", "", "", "ref", 0.5)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateFromReference(ctx, claimID, domain.EvidenceDocument, "x", "title", "", "", 0.5)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateFromReference(ctx, claimID, domain.EvidenceDocument, "x", "title", "", "ref", 1.5)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateFromReference(ctx, claimID, domain.EvidenceType("hearsay"), "x", "title", "", "ref", 0.5)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVerifyIntegrityDetectsTamperedRecord(t *testing.T) {
	svc, store, claimID := newService(t)

	e, err := svc.CreateFromReference(context.Background(), claimID,
		domain.EvidenceDocument, "registry", "Permit", "", "https://registry.example/1", 0.6)
	require.NoError(t, err)

	// Simulate a row edited behind the service's back.
	tampered := *e
	tampered.ID = uuid.New()
	tampered.Title = "Permit (edited)"
	require.NoError(t, store.CreateEvidence(context.Background(), &tampered))

	ok, detail, err := svc.VerifyIntegrity(context.Background(), tampered.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, detail, "hash mismatch")
}
