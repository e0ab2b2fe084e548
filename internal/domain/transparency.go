package domain

import "time"

// TimelineEvent is one derived entry in a claim's public lifecycle timeline.
// The timeline is a read view computed from stored records, not an event log.
type TimelineEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
}

// PublicClaimView is the aggregate consumed by the public claim page. All
// fields are derived reads; the view performs no writes.
type PublicClaimView struct {
	Claim                 *Claim               `json:"claim"`
	Verification          *VerificationResult  `json:"verification,omitempty"`
	AIVerdict             *AIConsistencyResult `json:"ai_verdict,omitempty"`
	AuthorityReview       *ReviewRecord        `json:"authority_review,omitempty"`
	CommunityReview       *ReviewRecord        `json:"community_review,omitempty"`
	MintedCredit          *MintedCredit        `json:"minted_credit,omitempty"`
	Evidence              []EvidenceSummary    `json:"evidence"`
	MonitoringHistory     []MonitoringRun      `json:"monitoring_history"`
	Status                ClaimStatus          `json:"status"`
	CanMint               bool                 `json:"can_mint"`
	MintEligibilityReason string               `json:"mint_eligibility_reason"`
}

// TransparencyReport is the full derived audit view: the public aggregate
// plus a chronological timeline.
type TransparencyReport struct {
	ClaimID  string          `json:"claim_id"`
	Timeline []TimelineEvent `json:"timeline"`
	View     PublicClaimView `json:"view"`
}
