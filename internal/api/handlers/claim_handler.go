package handlers

import (
	"net/http"

	"github.com/claimtriage/roadside/backend/internal/application/services"
	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/providers"
)

// ClaimHandler serves claim projections and the operator decisions.
type ClaimHandler struct {
	claims *services.ClaimService
	logBus providers.LogBus
}

// NewClaimHandler creates a new claim handler.
func NewClaimHandler(claims *services.ClaimService, logBus providers.LogBus) *ClaimHandler {
	return &ClaimHandler{claims: claims, logBus: logBus}
}

// GetClaim handles GET /api/claims/{id}
func (h *ClaimHandler) GetClaim(w http.ResponseWriter, r *http.Request) {
	claim, ok := h.load(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, services.BuildClaimResponse(claim))
}

// GetCoverage handles GET /api/claims/{id}/coverage
func (h *ClaimHandler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	claim, ok := h.load(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, services.BuildCoverageResponse(claim))
}

// GetAction handles GET /api/claims/{id}/action
func (h *ClaimHandler) GetAction(w http.ResponseWriter, r *http.Request) {
	claim, ok := h.load(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, services.BuildActionResponse(claim))
}

// GetMessage handles GET /api/claims/{id}/message
func (h *ClaimHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	claim, ok := h.load(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, services.BuildMessageResponse(claim))
}

// GetLogs handles GET /api/claims/{id}/logs
func (h *ClaimHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	claimID := r.PathValue("id")
	if claimID == "" {
		respondWithError(w, http.StatusBadRequest, "claim ID is required")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"claim_id": claimID,
		"logs":     h.logBus.History(claimID),
	})
}

// Approve handles POST /api/claims/{id}/approve
func (h *ClaimHandler) Approve(w http.ResponseWriter, r *http.Request) {
	claimID := r.PathValue("id")
	if claimID == "" {
		respondWithError(w, http.StatusBadRequest, "claim ID is required")
		return
	}
	claim, err := h.claims.Approve(r.Context(), claimID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":   "approved",
		"claim_id": claim.ID,
	})
}

// Reject handles POST /api/claims/{id}/reject
func (h *ClaimHandler) Reject(w http.ResponseWriter, r *http.Request) {
	claimID := r.PathValue("id")
	if claimID == "" {
		respondWithError(w, http.StatusBadRequest, "claim ID is required")
		return
	}
	claim, err := h.claims.Reject(r.Context(), claimID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":   "rejected",
		"claim_id": claim.ID,
	})
}

func (h *ClaimHandler) load(w http.ResponseWriter, r *http.Request) (*entities.Claim, bool) {
	claimID := r.PathValue("id")
	if claimID == "" {
		respondWithError(w, http.StatusBadRequest, "claim ID is required")
		return nil, false
	}
	c, err := h.claims.GetClaim(r.Context(), claimID)
	if err != nil {
		respondWithAppError(w, err)
		return nil, false
	}
	return c, true
}
