package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"carbonchain/internal/domain"
	"carbonchain/internal/ports"
)

const maxUploadBytes = 64 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	var sub domain.ClaimSubmission
	if err := decodeJSON(r, &sub); err != nil {
		writeError(w, err)
		return
	}
	claim, err := s.claims.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := s.claims.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if claims == nil {
		claims = []domain.Claim{}
	}
	writeJSON(w, http.StatusOK, claims)
}

func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "claimID")
	if err != nil {
		writeError(w, err)
		return
	}
	claim, err := s.claims.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (s *Server) handleReplaceGeometry(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "claimID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		GeoJSON json.RawMessage `json:"geojson"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if len(body.GeoJSON) == 0 {
		writeError(w, fmt.Errorf("%w: geojson is required", domain.ErrValidation))
		return
	}
	claim, err := s.claims.ReplaceGeometryAuthority(r.Context(), id, body.GeoJSON)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (s *Server) handleUploadEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "claimID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: parse multipart form: %v", domain.ErrValidation, err))
		return
	}
	description := r.FormValue("description")

	var files []ports.UploadedFile
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			writeError(w, fmt.Errorf("%w: open upload %q: %v", domain.ErrValidation, header.Filename, err))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, fmt.Errorf("read upload %q: %w", header.Filename, err))
			return
		}
		files = append(files, ports.UploadedFile{
			Filename:    header.Filename,
			Description: description,
			Content:     content,
		})
	}
	if len(files) == 0 {
		writeError(w, fmt.Errorf("%w: no files in upload", domain.ErrValidation))
		return
	}

	accepted, issues, err := s.evidence.Upload(r.Context(), id, files)
	if err != nil {
		writeError(w, err)
		return
	}
	if accepted == nil {
		accepted = []domain.Evidence{}
	}
	if issues == nil {
		issues = []ports.UploadIssue{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"accepted": accepted,
		"issues":   issues,
	})
}

// handleCreateEvidence records reference-based evidence from a JSON body,
// the non-file counterpart to the multipart upload route.
func (s *Server) handleCreateEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "claimID")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		ClaimID          *uuid.UUID          `json:"claim_id,omitempty"`
		Type             domain.EvidenceType `json:"type"`
		Source           string              `json:"source"`
		Title            string              `json:"title"`
		Description      string              `json:"description"`
		DataRef          string              `json:"data_ref"`
		ConfidenceWeight float64             `json:"confidence_weight"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.ClaimID != nil && *body.ClaimID != id {
		writeError(w, fmt.Errorf("%w: claim_id in body (%s) does not match path (%s)", domain.ErrValidation, *body.ClaimID, id))
		return
	}
	e, err := s.evidence.CreateFromReference(r.Context(), id, body.Type, body.Source, body.Title, body.Description, body.DataRef, body.ConfidenceWeight)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "claimID")
	if err != nil {
		writeError(w, err)
		return
	}
	evidence, err := s.evidence.ListByClaim(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if evidence == nil {
		evidence = []domain.Evidence{}
	}
	writeJSON(w, http.StatusOK, evidence)
}

func (s *Server) handleGetEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "evidenceID")
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := s.evidence.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleVerifyEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "evidenceID")
	if err != nil {
		writeError(w, err)
		return
	}
	ok, message, err := s.evidence.VerifyIntegrity(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := s.evidence.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"evidence_id": id,
		"is_valid":    ok,
		"message":     message,
		"hash":        e.Hash,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClaimID uuid.UUID `json:"claim_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.ClaimID == uuid.Nil {
		writeError(w, fmt.Errorf("%w: claim_id is required", domain.ErrValidation))
		return
	}
	result, err := s.verifier.Verify(r.Context(), body.ClaimID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetVerification(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "verificationID")
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.verifier.GetVerification(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReview(role domain.ReviewRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub domain.ReviewSubmission
		if err := decodeJSON(r, &sub); err != nil {
			writeError(w, err)
			return
		}
		if sub.ClaimID == uuid.Nil {
			writeError(w, fmt.Errorf("%w: claim_id is required", domain.ErrValidation))
			return
		}
		record, err := s.governance.SubmitReview(r.Context(), role, sub)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, record)
	}
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "claimID")
	if err != nil {
		writeError(w, err)
		return
	}
	reviews, err := s.governance.ListByClaim(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if reviews == nil {
		reviews = []domain.ReviewRecord{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleMintEligibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "claimID")
	if err != nil {
		writeError(w, err)
		return
	}
	ok, reason, err := s.ledger.CanMint(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"claim_id": id,
		"can_mint": ok,
		"reason":   reason,
	})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClaimID          uuid.UUID `json:"claim_id"`
		AmountTonnesCO2e float64   `json:"amount_tonnes_co2e"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.ClaimID == uuid.Nil {
		writeError(w, fmt.Errorf("%w: claim_id is required", domain.ErrValidation))
		return
	}
	credit, err := s.ledger.Mint(r.Context(), body.ClaimID, body.AmountTonnesCO2e)
	if err != nil {
		// A repeated mint is answered with the canonical credit, not a
		// conflict: the caller ends up in the same place either way.
		if errors.Is(err, domain.ErrAlreadyMinted) && credit != nil {
			writeJSON(w, http.StatusOK, credit)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, credit)
}

func (s *Server) handleGetCredit(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "tokenID")
	if err != nil {
		writeError(w, err)
		return
	}
	credit, err := s.ledger.Credit(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, credit)
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "tokenID")
	if err != nil {
		writeError(w, err)
		return
	}
	run, err := s.monitor.Run(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handlePublicClaim(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "claimID")
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := s.transparency.PublicClaim(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleTransparency(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "claimID")
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := s.transparency.Report(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a valid id: %q", domain.ErrValidation, param, raw)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode request body: %v", domain.ErrValidation, err)
	}
	return nil
}
