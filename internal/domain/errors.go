package domain

import "errors"

// Error taxonomy shared by all services. Handlers map these to HTTP status
// codes; services wrap them with context via fmt.Errorf("...: %w", ...).
var (
	// ErrValidation marks bad input. Never retried automatically.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing claim, credit, review or evidence record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStage marks a review submitted while the claim is not in the
	// stage that role may act on.
	ErrInvalidStage = errors.New("invalid review stage")

	// ErrInvalidTransition marks a status change whose precondition on the
	// current claim status is not met.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateReview marks a second review for the same (claim, role).
	// The stored record is unchanged; safe to treat as informational.
	ErrDuplicateReview = errors.New("review already recorded")

	// ErrAlreadyMinted marks a mint attempt for a claim that already holds a
	// credit. The existing credit is the canonical state.
	ErrAlreadyMinted = errors.New("credit already minted")

	// ErrNotEligible marks a mint attempt before governance has passed.
	ErrNotEligible = errors.New("claim not eligible for minting")

	// ErrAmountExceedsVerifiedImpact guards against over-minting beyond the
	// verified impact range.
	ErrAmountExceedsVerifiedImpact = errors.New("mint amount exceeds verified impact")

	// ErrExternalService marks an unavailable or malformed response from the
	// satellite-index service. Retryable; state is not corrupted.
	ErrExternalService = errors.New("external service error")

	// ErrIntegrity marks an evidence content-hash mismatch. Fatal for the
	// record; flagged for manual audit, never auto-corrected.
	ErrIntegrity = errors.New("evidence integrity failure")
)
