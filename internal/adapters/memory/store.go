// Package memory implements ports.Store with mutex-guarded maps. It backs
// tests and local runs without a DATABASE_URL; the postgres adapter is the
// production store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
)

type Store struct {
	mu sync.Mutex

	claims        map[uuid.UUID]*domain.Claim
	evidence      map[uuid.UUID]*domain.Evidence
	verifications map[uuid.UUID]*domain.VerificationResult // keyed by claim id
	consistency   map[uuid.UUID]*domain.AIConsistencyResult
	reviews       map[uuid.UUID]map[domain.ReviewRole]*domain.ReviewRecord
	credits       map[uuid.UUID]*domain.MintedCredit // keyed by token id
	creditByClaim map[uuid.UUID]uuid.UUID
	runs          []domain.MonitoringRun
}

func NewStore() *Store {
	return &Store{
		claims:        make(map[uuid.UUID]*domain.Claim),
		evidence:      make(map[uuid.UUID]*domain.Evidence),
		verifications: make(map[uuid.UUID]*domain.VerificationResult),
		consistency:   make(map[uuid.UUID]*domain.AIConsistencyResult),
		reviews:       make(map[uuid.UUID]map[domain.ReviewRole]*domain.ReviewRecord),
		credits:       make(map[uuid.UUID]*domain.MintedCredit),
		creditByClaim: make(map[uuid.UUID]uuid.UUID),
	}
}

// Claims.

func (s *Store) CreateClaim(_ context.Context, c *domain.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[c.ID]; ok {
		return fmt.Errorf("claim %s already exists", c.ID)
	}
	cp := cloneClaim(c)
	s.claims[c.ID] = &cp
	return nil
}

func (s *Store) GetClaim(_ context.Context, id uuid.UUID) (*domain.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[id]
	if !ok {
		return nil, fmt.Errorf("%w: claim %s", domain.ErrNotFound, id)
	}
	cp := cloneClaim(c)
	return &cp, nil
}

func (s *Store) ListClaims(_ context.Context) ([]domain.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		out = append(out, cloneClaim(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateClaimStatus(_ context.Context, id uuid.UUID, from []domain.ClaimStatus, to domain.ClaimStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[id]
	if !ok {
		return false, fmt.Errorf("%w: claim %s", domain.ErrNotFound, id)
	}
	for _, f := range from {
		if c.Status == f {
			c.Status = to
			c.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SetClaimVerification(_ context.Context, id, verificationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[id]
	if !ok {
		return fmt.Errorf("%w: claim %s", domain.ErrNotFound, id)
	}
	vid := verificationID
	c.VerificationID = &vid
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) AppendGeometry(_ context.Context, id uuid.UUID, g domain.Geometry, loc *domain.GeoPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[id]
	if !ok {
		return fmt.Errorf("%w: claim %s", domain.ErrNotFound, id)
	}
	g.Version = len(c.GeometryVersions) + 1
	c.GeometryVersions = append(c.GeometryVersions, g)
	if loc != nil {
		l := *loc
		c.Location = &l
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) NextPendingVerification(_ context.Context) (*domain.Claim, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest *domain.Claim
	for _, c := range s.claims {
		if c.Status != domain.StatusAIAnalysisPending {
			continue
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	if oldest == nil {
		return nil, false, nil
	}
	oldest.Status = domain.StatusAIAnalysisInProgress
	oldest.UpdatedAt = time.Now().UTC()
	cp := cloneClaim(oldest)
	return &cp, true, nil
}

// Evidence.

func (s *Store) CreateEvidence(_ context.Context, e *domain.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.evidence[e.ID] = &cp
	return nil
}

func (s *Store) GetEvidence(_ context.Context, id uuid.UUID) (*domain.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.evidence[id]
	if !ok {
		return nil, fmt.Errorf("%w: evidence %s", domain.ErrNotFound, id)
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListEvidenceByClaim(_ context.Context, claimID uuid.UUID) ([]domain.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Evidence
	for _, e := range s.evidence {
		if e.ClaimID == claimID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Verifications.

func (s *Store) SaveVerification(_ context.Context, v *domain.VerificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.verifications[v.ClaimID] = &cp
	return nil
}

func (s *Store) GetVerification(_ context.Context, id uuid.UUID) (*domain.VerificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.verifications {
		if v.ID == id {
			cp := *v
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: verification %s", domain.ErrNotFound, id)
}

func (s *Store) GetVerificationByClaim(_ context.Context, claimID uuid.UUID) (*domain.VerificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verifications[claimID]
	if !ok {
		return nil, fmt.Errorf("%w: verification for claim %s", domain.ErrNotFound, claimID)
	}
	cp := *v
	return &cp, nil
}

func (s *Store) SaveConsistency(_ context.Context, r *domain.AIConsistencyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.consistency[r.ClaimID] = &cp
	return nil
}

func (s *Store) GetConsistencyByClaim(_ context.Context, claimID uuid.UUID) (*domain.AIConsistencyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.consistency[claimID]
	if !ok {
		return nil, fmt.Errorf("%w: consistency result for claim %s", domain.ErrNotFound, claimID)
	}
	cp := *r
	return &cp, nil
}

// Reviews.

func (s *Store) CreateReview(_ context.Context, r *domain.ReviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byRole, ok := s.reviews[r.ClaimID]
	if !ok {
		byRole = make(map[domain.ReviewRole]*domain.ReviewRecord)
		s.reviews[r.ClaimID] = byRole
	}
	if _, exists := byRole[r.Role]; exists {
		return fmt.Errorf("%w: %s review for claim %s", domain.ErrDuplicateReview, r.Role, r.ClaimID)
	}
	cp := *r
	byRole[r.Role] = &cp
	return nil
}

func (s *Store) GetReview(_ context.Context, claimID uuid.UUID, role domain.ReviewRole) (*domain.ReviewRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reviews[claimID][role]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: %s review for claim %s", domain.ErrNotFound, role, claimID)
}

func (s *Store) ListReviewsByClaim(_ context.Context, claimID uuid.UUID) ([]domain.ReviewRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ReviewRecord
	for _, r := range s.reviews[claimID] {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Credits.

func (s *Store) CreateCredit(_ context.Context, c *domain.MintedCredit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.creditByClaim[c.ClaimID]; exists {
		return fmt.Errorf("%w: claim %s", domain.ErrAlreadyMinted, c.ClaimID)
	}
	cp := *c
	s.credits[c.TokenID] = &cp
	s.creditByClaim[c.ClaimID] = c.TokenID
	return nil
}

func (s *Store) GetCredit(_ context.Context, tokenID uuid.UUID) (*domain.MintedCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credits[tokenID]
	if !ok {
		return nil, fmt.Errorf("%w: credit %s", domain.ErrNotFound, tokenID)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetCreditByClaim(_ context.Context, claimID uuid.UUID) (*domain.MintedCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokenID, ok := s.creditByClaim[claimID]
	if !ok {
		return nil, fmt.Errorf("%w: credit for claim %s", domain.ErrNotFound, claimID)
	}
	cp := *s.credits[tokenID]
	return &cp, nil
}

func (s *Store) UpdateCreditBalance(_ context.Context, tokenID uuid.UUID, remaining float64, status domain.CreditStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credits[tokenID]
	if !ok {
		return fmt.Errorf("%w: credit %s", domain.ErrNotFound, tokenID)
	}
	c.RemainingTonnesCO2e = remaining
	c.Status = status
	return nil
}

func (s *Store) ListMonitorableCredits(_ context.Context) ([]domain.MintedCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MintedCredit
	for _, c := range s.credits {
		if c.Status != domain.CreditFullyBurned {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MintedAt.Before(out[j].MintedAt) })
	return out, nil
}

// Monitoring history.

func (s *Store) AppendMonitoringRun(_ context.Context, r *domain.MonitoringRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *r)
	return nil
}

func (s *Store) ListRunsByClaim(_ context.Context, claimID uuid.UUID) ([]domain.MonitoringRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MonitoringRun
	for _, r := range s.runs {
		if r.ClaimID == claimID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListRunsByCredit(_ context.Context, creditID uuid.UUID) ([]domain.MonitoringRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MonitoringRun
	for _, r := range s.runs {
		if r.CreditID == creditID {
			out = append(out, r)
		}
	}
	return out, nil
}

func cloneClaim(c *domain.Claim) domain.Claim {
	cp := *c
	if c.Location != nil {
		l := *c.Location
		cp.Location = &l
	}
	if c.VerificationID != nil {
		v := *c.VerificationID
		cp.VerificationID = &v
	}
	cp.GeometryVersions = append([]domain.Geometry(nil), c.GeometryVersions...)
	cp.StatedAssumptions = append([]string(nil), c.StatedAssumptions...)
	cp.KnownLimitations = append([]string(nil), c.KnownLimitations...)
	return cp
}
