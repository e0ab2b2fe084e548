package domain

import (
	"time"

	"github.com/google/uuid"
)

type EvidenceType string

const (
	EvidenceSystemAI        EvidenceType = "system_ai"
	EvidenceUserUpload      EvidenceType = "user_upload"
	EvidenceDocument        EvidenceType = "document"
	EvidenceCommunityReport EvidenceType = "community_report"
)

// Evidence is an immutable unit of support for a claim. Once created, the
// hash and data reference never change; there is no update or delete path
// anywhere in the system. A content mismatch at verification time is an
// integrity error, not something to correct silently.
type Evidence struct {
	ID               uuid.UUID    `json:"id"`
	ClaimID          uuid.UUID    `json:"claim_id"`
	Type             EvidenceType `json:"type"`
	Source           string       `json:"source"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	DataRef          string       `json:"data_ref"`
	ConfidenceWeight float64      `json:"confidence_weight"`
	Hash             string       `json:"hash"`
	CreatedAt        time.Time    `json:"created_at"`
}

// EvidenceSummary is the lightweight shape exposed on public views. The hash
// is included so any party can verify integrity independently.
type EvidenceSummary struct {
	ID               uuid.UUID    `json:"id"`
	Type             EvidenceType `json:"type"`
	Source           string       `json:"source"`
	Title            string       `json:"title"`
	ConfidenceWeight float64      `json:"confidence_weight"`
	Hash             string       `json:"hash"`
	DataRef          string       `json:"data_ref"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Summary converts a full record to its public shape.
func (e Evidence) Summary() EvidenceSummary {
	return EvidenceSummary{
		ID:               e.ID,
		Type:             e.Type,
		Source:           e.Source,
		Title:            e.Title,
		ConfidenceWeight: e.ConfidenceWeight,
		Hash:             e.Hash,
		DataRef:          e.DataRef,
		CreatedAt:        e.CreatedAt,
	}
}
