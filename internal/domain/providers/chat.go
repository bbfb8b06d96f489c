package providers

import (
	"context"
	"encoding/json"
	"errors"
)

// Chat message roles
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleTool      = "tool"
)

// ErrChatUnavailable indicates the chat backend rejected the request outright
// (bad credentials, quota). Callers should not retry.
var ErrChatUnavailable = errors.New("chat backend unavailable")

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatMessage is one turn in the agent dialogue. ToolCallID links a tool
// result back to the call that produced it.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolDefinition describes one callable function offered to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ChatRequest is a single completion request. Tools and Schema are mutually
// exclusive: the backend cannot offer tool calling and enforce a fixed output
// schema in the same round.
type ChatRequest struct {
	Messages []ChatMessage
	Tools    []ToolDefinition
	// Schema, when set, forces the response into the named JSON schema.
	Schema     json.RawMessage
	SchemaName string
}

// ChatResponse is the assistant turn returned for one request.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatCompletionProvider abstracts the generative backend driving the claim
// agent so the orchestrator can be tested against a scripted implementation.
type ChatCompletionProvider interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
