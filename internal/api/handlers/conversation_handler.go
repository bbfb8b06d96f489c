package handlers

import (
	"net/http"

	"github.com/claimtriage/roadside/backend/internal/application/services"
	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/repositories"
	apperrors "github.com/claimtriage/roadside/backend/pkg/errors"
)

// ConversationHandler serves stored conversation transcriptions and the
// conversation-to-claim mapping.
type ConversationHandler struct {
	conversations repositories.ConversationRepository
	intake        *services.IntakeService
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(conversations repositories.ConversationRepository, intake *services.IntakeService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, intake: intake}
}

// GetTranscription handles GET /api/conversations/{id}/transcription
func (h *ConversationHandler) GetTranscription(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		respondWithError(w, http.StatusBadRequest, "conversation ID is required")
		return
	}

	conv, err := h.conversations.Get(r.Context(), conversationID)
	if err != nil {
		respondWithAppError(w, apperrors.NewInternalError("failed to load conversation", err))
		return
	}
	if conv == nil {
		respondWithError(w, http.StatusNotFound, "Transcription not found")
		return
	}
	respondWithJSON(w, http.StatusOK, transcriptionResponse(conv))
}

// GetLatest handles GET /api/conversations/latest
func (h *ConversationHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.Latest(r.Context())
	if err != nil {
		respondWithAppError(w, apperrors.NewInternalError("failed to load conversations", err))
		return
	}
	if conv == nil {
		respondWithError(w, http.StatusNotFound, "No conversations found")
		return
	}
	respondWithJSON(w, http.StatusOK, transcriptionResponse(conv))
}

// GetClaim handles GET /api/conversations/{id}/claim. Looking the claim up
// through the intake service triggers crash recovery when the mapping was
// lost.
func (h *ConversationHandler) GetClaim(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		respondWithError(w, http.StatusBadRequest, "conversation ID is required")
		return
	}

	claim, err := h.intake.ClaimForConversation(r.Context(), conversationID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"claim_id":        claim.ID,
		"status":          claim.Status,
	})
}

func transcriptionResponse(conv *entities.ConversationTranscription) map[string]interface{} {
	return map[string]interface{}{
		"conversation_id": conv.ConversationID,
		"transcription":   conv.Transcription,
		"received_at":     conv.ReceivedAt,
	}
}
