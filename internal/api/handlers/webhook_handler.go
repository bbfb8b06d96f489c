package handlers

import (
	"io"
	"net/http"

	"github.com/claimtriage/roadside/backend/internal/application/services"
	"github.com/claimtriage/roadside/backend/internal/infrastructure/observability"
)

// maxWebhookBodyBytes caps the webhook body read. Transcripts are text; a
// megabyte is already generous.
const maxWebhookBodyBytes = 1 << 20

// signatureHeader is the header carrying the HMAC signature.
const signatureHeader = "ElevenLabs-Signature"

// WebhookHandler receives post-call transcription webhooks.
type WebhookHandler struct {
	webhooks *services.WebhookService
	intake   *services.IntakeService
	metrics  *observability.Metrics
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(webhooks *services.WebhookService, intake *services.IntakeService, metrics *observability.Metrics) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, intake: intake, metrics: metrics}
}

// VerifyEndpoint handles GET /webhook/elevenlabs/transcription. Some webhook
// senders probe the endpoint with a GET before enabling delivery.
func (h *WebhookHandler) VerifyEndpoint(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Webhook endpoint is active",
	})
}

// ReceiveTranscription handles POST /webhook/elevenlabs/transcription.
func (h *WebhookHandler) ReceiveTranscription(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	payload, err := h.webhooks.VerifyAndParse(body, r.Header.Get(signatureHeader))
	if err != nil {
		logger.Warn().Err(err).Msg("webhook rejected")
		respondWithAppError(w, err)
		return
	}

	if payload.Type != services.WebhookTypeTranscription {
		// Acknowledged but ignored; the sender must not retry these.
		logger.Info().Str("type", payload.Type).Msg("ignoring unsupported webhook type")
		if h.metrics != nil {
			observability.RecordWebhookMetric(r.Context(), h.metrics, payload.Type, false)
		}
		respondWithJSON(w, http.StatusOK, map[string]string{
			"status":  "ignored",
			"message": "unsupported webhook type: " + payload.Type,
		})
		return
	}

	conversationID, err := h.webhooks.ExtractConversationID(payload)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	transcription, entryCount := h.webhooks.BuildTranscription(payload.Data.Transcript)

	result, err := h.intake.HandleTranscription(r.Context(), conversationID, transcription, entryCount, payload.Data.Transcript)
	if err != nil {
		logger.Error().Err(err).Str("conversation_id", conversationID).Msg("webhook intake failed")
		respondWithAppError(w, err)
		return
	}

	if h.metrics != nil {
		observability.RecordWebhookMetric(r.Context(), h.metrics, payload.Type, result.Processed)
	}

	logger.Info().
		Str("conversation_id", conversationID).
		Str("claim_id", result.ClaimID).
		Int("entries", entryCount).
		Bool("processed", result.Processed).
		Msg("transcription webhook received")

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "received",
		"conversation_id": result.ConversationID,
		"claim_id":        result.ClaimID,
		"processed":       result.Processed,
	})
}
