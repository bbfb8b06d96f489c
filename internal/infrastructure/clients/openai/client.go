package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/claimtriage/roadside/backend/internal/domain/providers"
	"github.com/claimtriage/roadside/backend/pkg/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client is the chat-completions backend for the claim agent. It speaks the
// raw HTTP API: tool calling on decision rounds, json_schema response format
// on the final round.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	httpClient  *http.Client
	limiter     *tokenBucket
}

// NewClient creates a new OpenAI client.
func NewClient(cfg *config.OpenAIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &Client{
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     defaultBaseURL,
		temperature: 0.1,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

var _ providers.ChatCompletionProvider = (*Client)(nil)

type wireFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Arguments   string          `json:"arguments,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireJSONSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type wireResponseFormat struct {
	Type       string         `json:"type"`
	JSONSchema wireJSONSchema `json:"json_schema"`
}

type completionRequest struct {
	Model          string              `json:"model"`
	Messages       []wireMessage       `json:"messages"`
	Temperature    float64             `json:"temperature"`
	Tools          []wireTool          `json:"tools,omitempty"`
	ToolChoice     string              `json:"tool_choice,omitempty"`
	ResponseFormat *wireResponseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content   *string        `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete performs one chat-completion round trip.
func (c *Client) Complete(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordChatMetric(ctx, c.model, 0, 0, err)
			return nil, err
		}
		recordChatRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	payload := completionRequest{
		Model:       c.model,
		Messages:    encodeMessages(req.Messages),
		Temperature: c.temperature,
	}
	for _, tool := range req.Tools {
		payload.Tools = append(payload.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if len(payload.Tools) > 0 {
		payload.ToolChoice = "auto"
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		payload.ResponseFormat = &wireResponseFormat{
			Type: "json_schema",
			JSONSchema: wireJSONSchema{
				Name:   name,
				Strict: true,
				Schema: req.Schema,
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		recordChatMetric(ctx, c.model, 0, time.Since(start), err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordChatMetric(ctx, c.model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: openai request failed with status %d", providers.ErrChatUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("openai request failed with status %d", resp.StatusCode)
	}

	var envelope completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordChatMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}
	if len(envelope.Choices) == 0 {
		recordChatMetric(ctx, c.model, resp.StatusCode, time.Since(start), errors.New("no choices"))
		return nil, errors.New("openai response contained no choices")
	}

	recordChatMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)

	message := envelope.Choices[0].Message
	out := &providers.ChatResponse{}
	if message.Content != nil {
		out.Content = *message.Content
	}
	for _, call := range message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, providers.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out, nil
}

func encodeMessages(messages []providers.ChatMessage) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		wm := wireMessage{
			Role:       msg.Role,
			ToolCallID: msg.ToolCallID,
		}
		// Assistant turns that only carry tool calls send a null content.
		if msg.Content != "" || len(msg.ToolCalls) == 0 {
			content := msg.Content
			wm.Content = &content
		}
		for _, call := range msg.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   call.ID,
				Type: "function",
				Function: wireFunction{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		out = append(out, wm)
	}
	return out
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return newTokenBucketWithRate(rpm, burst)
}

type tokenBucket struct {
	tokens chan struct{}
}

func newTokenBucketWithRate(rpm int, burst int) *tokenBucket {
	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}
