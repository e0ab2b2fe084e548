package ports

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
)

// Service interfaces consumed by the HTTP adapter and the workers. Services
// return domain structs; the adapter serializes them as-is.

// ClaimIntake validates and registers claims and handles geometry.
type ClaimIntake interface {
	Submit(ctx context.Context, sub domain.ClaimSubmission) (*domain.Claim, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Claim, error)
	List(ctx context.Context) ([]domain.Claim, error)
	ReplaceGeometryAuthority(ctx context.Context, id uuid.UUID, geojson json.RawMessage) (*domain.Claim, error)
}

// UploadedFile is one part of a multipart evidence upload.
type UploadedFile struct {
	Filename    string
	Description string
	Content     []byte
}

// UploadIssue reports a single file that could not be accepted. Per-file
// failures never abort the rest of the upload.
type UploadIssue struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// EvidenceStore creates, reads and integrity-checks immutable evidence.
type EvidenceStore interface {
	Upload(ctx context.Context, claimID uuid.UUID, files []UploadedFile) ([]domain.Evidence, []UploadIssue, error)
	CreateFromReference(ctx context.Context, claimID uuid.UUID, typ domain.EvidenceType, source, title, description, dataRef string, weight float64) (*domain.Evidence, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Evidence, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.Evidence, error)

	// VerifyIntegrity recomputes the hash behind the stored data reference
	// and compares it to the recorded hash.
	VerifyIntegrity(ctx context.Context, id uuid.UUID) (bool, string, error)
}

// Verifier runs (or re-runs) MRV analysis for a claim.
type Verifier interface {
	Verify(ctx context.Context, claimID uuid.UUID) (*domain.VerificationResult, error)
	GetVerification(ctx context.Context, id uuid.UUID) (*domain.VerificationResult, error)
}

// Governance records authority and community review decisions.
type Governance interface {
	SubmitReview(ctx context.Context, role domain.ReviewRole, sub domain.ReviewSubmission) (*domain.ReviewRecord, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.ReviewRecord, error)
}

// Ledger mints credits and answers eligibility questions.
type Ledger interface {
	Mint(ctx context.Context, claimID uuid.UUID, amount float64) (*domain.MintedCredit, error)
	CanMint(ctx context.Context, claimID uuid.UUID) (bool, string, error)
	Credit(ctx context.Context, tokenID uuid.UUID) (*domain.MintedCredit, error)
}

// Monitor executes post-mint monitoring runs.
type Monitor interface {
	Run(ctx context.Context, creditID uuid.UUID) (*domain.MonitoringRun, error)
	RunDue(ctx context.Context) error
}

// Transparency builds the read-only public aggregate views.
type Transparency interface {
	PublicClaim(ctx context.Context, claimID uuid.UUID) (*domain.PublicClaimView, error)
	Report(ctx context.Context, claimID uuid.UUID) (*domain.TransparencyReport, error)
}
