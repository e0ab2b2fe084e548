package httpadapter

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"carbonchain/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

// writeError maps domain sentinels onto the HTTP surface. Anything
// unrecognized is a 500 with the detail kept out of the response.
func writeError(w http.ResponseWriter, err error) {
	var (
		status = http.StatusInternalServerError
		code   = "internal"
		msg    = "internal error"
	)
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code, msg = http.StatusBadRequest, "validation", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, code, msg = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, domain.ErrInvalidStage):
		status, code, msg = http.StatusConflict, "invalid_stage", err.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code, msg = http.StatusConflict, "invalid_transition", err.Error()
	case errors.Is(err, domain.ErrDuplicateReview):
		status, code, msg = http.StatusConflict, "duplicate_review", err.Error()
	case errors.Is(err, domain.ErrAlreadyMinted):
		status, code, msg = http.StatusConflict, "already_minted", err.Error()
	case errors.Is(err, domain.ErrNotEligible):
		status, code, msg = http.StatusUnprocessableEntity, "not_eligible", err.Error()
	case errors.Is(err, domain.ErrAmountExceedsVerifiedImpact):
		status, code, msg = http.StatusUnprocessableEntity, "amount_exceeds_verified_impact", err.Error()
	case errors.Is(err, domain.ErrExternalService):
		status, code, msg = http.StatusBadGateway, "external_service", err.Error()
	case errors.Is(err, domain.ErrIntegrity):
		status, code, msg = http.StatusInternalServerError, "integrity", err.Error()
	default:
		log.Printf("http: %v", err)
	}
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: msg}})
}
