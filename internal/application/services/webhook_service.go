package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/pkg/config"
	apperrors "github.com/claimtriage/roadside/backend/pkg/errors"
)

// WebhookTypeTranscription is the only event family this pipeline handles.
// Other types are acknowledged but ignored.
const WebhookTypeTranscription = "post_call_transcription"

// WebhookPayload is the post-call transcription event body.
type WebhookPayload struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Data           WebhookData `json:"data"`
}

// WebhookData is the nested data section of the webhook payload.
type WebhookData struct {
	ConversationID string                     `json:"conversation_id"`
	Transcript     []entities.TranscriptEntry `json:"transcript"`
}

// WebhookService verifies webhook authenticity and turns raw transcript
// arrays into speaker-labeled text.
type WebhookService struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

// NewWebhookService creates a webhook service from configuration.
func NewWebhookService(cfg config.WebhookConfig) *WebhookService {
	return &WebhookService{
		secret:    cfg.Secret,
		tolerance: cfg.Tolerance,
		now:       time.Now,
	}
}

// VerifyAndParse checks the HMAC signature of a raw webhook body and decodes
// it. With no secret configured, or no parseable signature header present,
// verification is skipped and the body is parsed as plain JSON. That fallback
// is deliberately insecure and exists for local development only.
func (s *WebhookService) VerifyAndParse(body []byte, signatureHeader string) (*WebhookPayload, error) {
	if s.secret != "" && signatureHeader != "" {
		signature, timestamp := parseSignatureHeader(signatureHeader)
		if signature != "" && timestamp != "" {
			if err := s.validateTimestamp(timestamp); err != nil {
				return nil, err
			}

			signedPayload := timestamp + "." + string(body)
			mac := hmac.New(sha256.New, []byte(s.secret))
			mac.Write([]byte(signedPayload))
			expected := hex.EncodeToString(mac.Sum(nil))

			if !hmac.Equal([]byte(signature), []byte(expected)) {
				return nil, apperrors.NewUnauthorizedError("invalid webhook signature")
			}
		}
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.NewValidationError("invalid JSON payload")
	}
	return &payload, nil
}

// ExtractConversationID pulls the conversation id from the nested data
// section, falling back to the top level.
func (s *WebhookService) ExtractConversationID(payload *WebhookPayload) (string, error) {
	if payload.Data.ConversationID != "" {
		return payload.Data.ConversationID, nil
	}
	if payload.ConversationID != "" {
		return payload.ConversationID, nil
	}
	return "", apperrors.NewValidationError("conversation_id is required in webhook payload")
}

// BuildTranscription joins the transcript entries into speaker-labeled lines,
// preferring the untruncated original_message when present and skipping empty
// turns. When no entry yields text, the raw JSON of the array is returned so
// the transcription is always non-empty and inspectable. The entry count
// feeds the completeness gate.
func (s *WebhookService) BuildTranscription(entries []entities.TranscriptEntry) (string, int) {
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		message := entry.Message
		if entry.OriginalMessage != nil {
			message = *entry.OriginalMessage
		}
		if message == "" {
			continue
		}

		label := "User"
		if entry.Role == "agent" {
			label = "Agent"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", label, message))
	}

	if len(parts) == 0 {
		raw, err := json.Marshal(entries)
		if err != nil {
			raw = []byte("[]")
		}
		return string(raw), len(entries)
	}
	return strings.Join(parts, "\n"), len(entries)
}

// parseSignatureHeader splits the "t=<unix>,v0=<hex>" header format.
func parseSignatureHeader(header string) (signature, timestamp string) {
	for _, part := range strings.Split(header, ",") {
		switch {
		case strings.HasPrefix(part, "v0="):
			signature = strings.TrimPrefix(part, "v0=")
		case strings.HasPrefix(part, "t="):
			timestamp = strings.TrimPrefix(part, "t=")
		}
	}
	return signature, timestamp
}

func (s *WebhookService) validateTimestamp(timestamp string) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return apperrors.NewUnauthorizedError("invalid webhook timestamp")
	}
	minValid := s.now().Add(-s.tolerance).Unix()
	if ts < minValid {
		return apperrors.NewUnauthorizedError("webhook timestamp too old")
	}
	return nil
}
