// Package httpadapter exposes the claim lifecycle over HTTP/JSON. Handlers
// decode and delegate; all behavior lives in the services.
package httpadapter

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"carbonchain/internal/ports"
)

type Server struct {
	claims       ports.ClaimIntake
	evidence     ports.EvidenceStore
	verifier     ports.Verifier
	governance   ports.Governance
	ledger       ports.Ledger
	monitor      ports.Monitor
	transparency ports.Transparency
}

func New(claims ports.ClaimIntake, evidence ports.EvidenceStore, verifier ports.Verifier, governance ports.Governance, ledger ports.Ledger, monitor ports.Monitor, transparency ports.Transparency) *Server {
	return &Server{
		claims:       claims,
		evidence:     evidence,
		verifier:     verifier,
		governance:   governance,
		ledger:       ledger,
		monitor:      monitor,
		transparency: transparency,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/claims", func(r chi.Router) {
		r.Post("/", s.handleSubmitClaim)
		r.Get("/", s.handleListClaims)
		r.Route("/{claimID}", func(r chi.Router) {
			r.Get("/", s.handleGetClaim)
			r.Put("/geometry/authority", s.handleReplaceGeometry)
			r.Post("/evidence", s.handleCreateEvidence)
			r.Post("/evidence/upload", s.handleUploadEvidence)
			r.Get("/evidence", s.handleListEvidence)
			r.Get("/reviews", s.handleListReviews)
			r.Get("/mint/eligibility", s.handleMintEligibility)
		})
	})

	// Flat entry points matching the shape the UI consumes: the claim id
	// travels in the request body.
	r.Post("/verify", s.handleVerify)
	r.Post("/reviews/authority", s.handleReview("authority"))
	r.Post("/reviews/community", s.handleReview("community"))
	r.Post("/mint", s.handleMint)

	r.Get("/evidence/{evidenceID}", s.handleGetEvidence)
	r.Get("/evidence/{evidenceID}/verify", s.handleVerifyEvidence)

	r.Get("/verifications/{verificationID}", s.handleGetVerification)

	r.Route("/credits/{tokenID}", func(r chi.Router) {
		r.Get("/", s.handleGetCredit)
		r.Post("/monitor", s.handleMonitor)
	})

	r.Route("/public/claims/{claimID}", func(r chi.Router) {
		r.Get("/", s.handlePublicClaim)
		r.Get("/transparency", s.handleTransparency)
	})

	return r
}
