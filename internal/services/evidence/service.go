// Package evidence manages the immutable evidence record set: claimant
// uploads, reference-based records and integrity verification. Records are
// never updated or deleted once written.
package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"carbonchain/internal/domain"
	"carbonchain/internal/ports"
)

const maxFileBytes = 20 << 20

var allowedExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".tif": true, ".tiff": true, ".csv": true, ".json": true,
	".txt": true, ".geojson": true, ".zip": true,
}

type Service struct {
	store ports.Store
	blobs ports.BlobStore
}

func New(store ports.Store, blobs ports.BlobStore) *Service {
	return &Service{store: store, blobs: blobs}
}

// Upload accepts claimant files. A file that fails validation is reported as
// an issue and skipped; it never aborts the rest of the batch.
func (s *Service) Upload(ctx context.Context, claimID uuid.UUID, files []ports.UploadedFile) ([]domain.Evidence, []ports.UploadIssue, error) {
	if _, err := s.store.GetClaim(ctx, claimID); err != nil {
		return nil, nil, err
	}

	var (
		accepted []domain.Evidence
		issues   []ports.UploadIssue
	)
	for _, f := range files {
		name, reason := checkFile(f)
		if reason != "" {
			issues = append(issues, ports.UploadIssue{Filename: f.Filename, Reason: reason})
			continue
		}

		ref, hash, err := s.blobs.Put(f.Content)
		if err != nil {
			issues = append(issues, ports.UploadIssue{Filename: name, Reason: fmt.Sprintf("store content: %v", err)})
			continue
		}
		e := &domain.Evidence{
			ID:               uuid.New(),
			ClaimID:          claimID,
			Type:             domain.EvidenceUserUpload,
			Source:           "claimant",
			Title:            name,
			Description:      f.Description,
			DataRef:          ref,
			ConfidenceWeight: 0.5,
			Hash:             hash,
			CreatedAt:        time.Now().UTC(),
		}
		if err := s.store.CreateEvidence(ctx, e); err != nil {
			return accepted, issues, fmt.Errorf("create evidence record: %w", err)
		}
		accepted = append(accepted, *e)
	}
	return accepted, issues, nil
}

// CreateFromReference records evidence whose payload lives elsewhere (a URL,
// a registry entry). The hash covers the record's canonical fields so
// tampering with the stored row is detectable even without the payload.
func (s *Service) CreateFromReference(ctx context.Context, claimID uuid.UUID, typ domain.EvidenceType, source, title, description, dataRef string, weight float64) (*domain.Evidence, error) {
	switch typ {
	case domain.EvidenceSystemAI, domain.EvidenceUserUpload, domain.EvidenceDocument, domain.EvidenceCommunityReport:
	default:
		return nil, fmt.Errorf("%w: unknown evidence type %q", domain.ErrValidation, typ)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: evidence title is required", domain.ErrValidation)
	}
	if strings.TrimSpace(dataRef) == "" {
		return nil, fmt.Errorf("%w: evidence data_ref is required", domain.ErrValidation)
	}
	if weight < 0 || weight > 1 {
		return nil, fmt.Errorf("%w: confidence_weight must be in [0, 1], got %v", domain.ErrValidation, weight)
	}
	if _, err := s.store.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}

	e := &domain.Evidence{
		ID:               uuid.New(),
		ClaimID:          claimID,
		Type:             typ,
		Source:           source,
		Title:            title,
		Description:      description,
		DataRef:          dataRef,
		ConfidenceWeight: weight,
		CreatedAt:        time.Now().UTC(),
	}
	e.Hash = canonicalHash(e)
	if err := s.store.CreateEvidence(ctx, e); err != nil {
		return nil, fmt.Errorf("create evidence record: %w", err)
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Evidence, error) {
	return s.store.GetEvidence(ctx, id)
}

func (s *Service) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]domain.Evidence, error) {
	if _, err := s.store.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	return s.store.ListEvidenceByClaim(ctx, claimID)
}

// VerifyIntegrity recomputes the evidence hash. Blob-backed records are
// verified against their stored content; reference records against their
// canonical fields. The returned detail names what was compared.
func (s *Service) VerifyIntegrity(ctx context.Context, id uuid.UUID) (bool, string, error) {
	e, err := s.store.GetEvidence(ctx, id)
	if err != nil {
		return false, "", err
	}

	var computed string
	if strings.HasPrefix(e.DataRef, "blob://") {
		content, err := s.blobs.Get(e.DataRef)
		if err != nil {
			return false, "", fmt.Errorf("%w: evidence %s content unavailable: %v", domain.ErrIntegrity, id, err)
		}
		sum := sha256.Sum256(content)
		computed = hex.EncodeToString(sum[:])
	} else {
		computed = canonicalHash(e)
	}

	if computed != e.Hash {
		return false, fmt.Sprintf("hash mismatch: recorded %s, computed %s", e.Hash, computed), nil
	}
	return true, "hash verified", nil
}

// canonicalHash covers every immutable field in a fixed order.
func canonicalHash(e *domain.Evidence) string {
	canonical := strings.Join([]string{
		"claim_id:" + e.ClaimID.String(),
		"type:" + string(e.Type),
		"source:" + e.Source,
		"title:" + e.Title,
		"description:" + e.Description,
		"data_ref:" + e.DataRef,
	}, "\n")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// checkFile returns the sanitized filename and an empty reason, or the
// reason the file is rejected.
func checkFile(f ports.UploadedFile) (string, string) {
	name := filepath.Base(strings.TrimSpace(f.Filename))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", "missing or invalid filename"
	}
	if strings.HasPrefix(name, ".") {
		return "", "hidden files are not accepted"
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return "", fmt.Sprintf("file type %q is not accepted", ext)
	}
	if len(f.Content) == 0 {
		return "", "file is empty"
	}
	if len(f.Content) > maxFileBytes {
		return "", fmt.Sprintf("file exceeds %d MB limit", maxFileBytes>>20)
	}
	return name, ""
}
