package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
)

// WhatsAppNotifier delivers claim decisions to the claims desk over the
// WhatsApp Cloud API. It is optional infrastructure; when the credentials are
// absent the pipeline runs without it.
type WhatsAppNotifier struct {
	accessToken   string
	phoneNumberID string
	recipient     string
	httpClient    *http.Client
	baseURL       string
}

// NewWhatsAppNotifier creates a notifier from environment credentials.
func NewWhatsAppNotifier() (*WhatsAppNotifier, error) {
	accessToken := os.Getenv("WHATSAPP_ACCESS_TOKEN")
	phoneNumberID := os.Getenv("WHATSAPP_PHONE_NUMBER_ID")
	recipient := os.Getenv("WHATSAPP_CLAIMS_RECIPIENT")

	if accessToken == "" || phoneNumberID == "" || recipient == "" {
		return nil, fmt.Errorf("WHATSAPP_ACCESS_TOKEN, WHATSAPP_PHONE_NUMBER_ID and WHATSAPP_CLAIMS_RECIPIENT must be set")
	}

	return &WhatsAppNotifier{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		recipient:     recipient,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://graph.facebook.com/v18.0",
	}, nil
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

type apiResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// NotifyDecision sends the decision summary as a text message and returns the
// WhatsApp message id.
func (n *WhatsAppNotifier) NotifyDecision(ctx context.Context, claimID string, decision *entities.AgentDecision) (string, error) {
	message := textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               n.recipient,
		Type:             "text",
	}
	message.Text.Body = decisionBody(claimID, decision)

	return n.send(ctx, message)
}

// decisionBody formats the decision the way the claims desk reads it: verdict
// first, then the drafted policyholder message.
func decisionBody(claimID string, decision *entities.AgentDecision) string {
	verdict := "NOT COVERED"
	if decision.CoverageCovered {
		verdict = "COVERED"
	}
	return fmt.Sprintf(
		"Claim %s: %s (%s)\n\n%s\n\nNext steps: %s",
		claimID,
		verdict,
		decision.ActionType,
		decision.MessageAssessment,
		decision.MessageNextActions,
	)
}

func (n *WhatsAppNotifier) send(ctx context.Context, message textMessage) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", n.baseURL, n.phoneNumberID)

	jsonData, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+n.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("WhatsApp API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(parsed.Messages) > 0 {
		return parsed.Messages[0].ID, nil
	}

	return "", fmt.Errorf("no message ID in response")
}
