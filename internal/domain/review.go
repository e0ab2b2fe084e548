package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReviewRole string

const (
	RoleAuthority ReviewRole = "authority"
	RoleCommunity ReviewRole = "community"
)

type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// ReviewSubmission is the payload for a governance review.
type ReviewSubmission struct {
	ClaimID         uuid.UUID      `json:"claim_id"`
	ReviewerID      string         `json:"reviewer_id"`
	Decision        ReviewDecision `json:"decision"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
	Positives       []string       `json:"positives,omitempty"`
	Concerns        []string       `json:"concerns,omitempty"`
	Notes           string         `json:"notes"`
}

// ReviewRecord is a persisted governance decision. Exactly zero or one
// record exists per (claim, role); a recorded decision is final and is
// never mutated in place.
type ReviewRecord struct {
	ID              uuid.UUID      `json:"id"`
	ClaimID         uuid.UUID      `json:"claim_id"`
	ReviewerID      string         `json:"reviewer_id"`
	Role            ReviewRole     `json:"role"`
	Decision        ReviewDecision `json:"decision"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
	Positives       []string       `json:"positives,omitempty"`
	Concerns        []string       `json:"concerns,omitempty"`
	Notes           string         `json:"notes"`
	CreatedAt       time.Time      `json:"created_at"`
}
