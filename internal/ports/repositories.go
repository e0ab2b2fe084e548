package ports

import (
	"context"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
)

// ClaimRepository stores claims and owns the compare-and-set primitive the
// lifecycle state machine is built on.
type ClaimRepository interface {
	CreateClaim(ctx context.Context, c *domain.Claim) error
	GetClaim(ctx context.Context, id uuid.UUID) (*domain.Claim, error)
	ListClaims(ctx context.Context) ([]domain.Claim, error)

	// UpdateClaimStatus transitions the claim from any status in from to the
	// to status. It returns false (and no error) when the current status is
	// not in from, which callers interpret as a lost race or a precondition
	// failure.
	UpdateClaimStatus(ctx context.Context, id uuid.UUID, from []domain.ClaimStatus, to domain.ClaimStatus) (bool, error)

	SetClaimVerification(ctx context.Context, id, verificationID uuid.UUID) error

	// AppendGeometry records a new geometry version without touching earlier
	// ones, optionally updating the derived point location.
	AppendGeometry(ctx context.Context, id uuid.UUID, g domain.Geometry, loc *domain.GeoPoint) error

	// NextPendingVerification atomically claims the oldest claim awaiting
	// MRV analysis (ai_analysis_pending → ai_analysis_in_progress) so that
	// concurrent workers never pick up the same claim.
	NextPendingVerification(ctx context.Context) (*domain.Claim, bool, error)
}

// EvidenceRepository stores immutable evidence records. There is no update
// or delete by design.
type EvidenceRepository interface {
	CreateEvidence(ctx context.Context, e *domain.Evidence) error
	GetEvidence(ctx context.Context, id uuid.UUID) (*domain.Evidence, error)
	ListEvidenceByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.Evidence, error)
}

// VerificationRepository keeps at most one live verification per claim.
type VerificationRepository interface {
	// SaveVerification inserts the result or replaces the existing record
	// for the same claim (retry after failure replaces, never duplicates).
	SaveVerification(ctx context.Context, v *domain.VerificationResult) error
	GetVerification(ctx context.Context, id uuid.UUID) (*domain.VerificationResult, error)
	GetVerificationByClaim(ctx context.Context, claimID uuid.UUID) (*domain.VerificationResult, error)

	SaveConsistency(ctx context.Context, r *domain.AIConsistencyResult) error
	GetConsistencyByClaim(ctx context.Context, claimID uuid.UUID) (*domain.AIConsistencyResult, error)
}

// ReviewRepository enforces one decision per (claim, role) structurally:
// CreateReview returns domain.ErrDuplicateReview on conflict.
type ReviewRepository interface {
	CreateReview(ctx context.Context, r *domain.ReviewRecord) error
	GetReview(ctx context.Context, claimID uuid.UUID, role domain.ReviewRole) (*domain.ReviewRecord, error)
	ListReviewsByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.ReviewRecord, error)
}

// CreditRepository enforces at most one credit per claim structurally:
// CreateCredit returns domain.ErrAlreadyMinted on conflict.
type CreditRepository interface {
	CreateCredit(ctx context.Context, c *domain.MintedCredit) error
	GetCredit(ctx context.Context, tokenID uuid.UUID) (*domain.MintedCredit, error)
	GetCreditByClaim(ctx context.Context, claimID uuid.UUID) (*domain.MintedCredit, error)
	UpdateCreditBalance(ctx context.Context, tokenID uuid.UUID, remaining float64, status domain.CreditStatus) error

	// ListMonitorableCredits returns credits that still carry balance
	// (everything except fully_burned) for the scheduled monitor.
	ListMonitorableCredits(ctx context.Context) ([]domain.MintedCredit, error)
}

// MonitoringRepository appends immutable monitoring history.
type MonitoringRepository interface {
	AppendMonitoringRun(ctx context.Context, r *domain.MonitoringRun) error
	ListRunsByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.MonitoringRun, error)
	ListRunsByCredit(ctx context.Context, creditID uuid.UUID) ([]domain.MonitoringRun, error)
}

// Store bundles every repository; both the postgres and the memory adapter
// satisfy it.
type Store interface {
	ClaimRepository
	EvidenceRepository
	VerificationRepository
	ReviewRepository
	CreditRepository
	MonitoringRepository
}
