package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtriage/roadside/backend/internal/adapters/lookup"
	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/providers"
	apperrors "github.com/claimtriage/roadside/backend/pkg/errors"
	"github.com/claimtriage/roadside/backend/pkg/retry"
)

// scriptedChat replays a fixed sequence of responses and records every
// request it sees.
type scriptedChat struct {
	responses []*providers.ChatResponse
	errs      []error
	requests  []providers.ChatRequest
}

func (c *scriptedChat) Complete(_ context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	c.requests = append(c.requests, req)
	idx := len(c.requests) - 1
	if idx < len(c.errs) && c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	if idx >= len(c.responses) {
		return nil, errors.New("scripted chat exhausted")
	}
	return c.responses[idx], nil
}

func testDataset() *lookup.Dataset {
	return &lookup.Dataset{
		Policies: []entities.Policy{
			{
				PolicyID:         "POL-1",
				PolicyholderName: "John Smith",
				PolicyType:       "Premium Roadside Assistance",
				CoverageRules:    []string{"Flat tire repair at roadside"},
			},
		},
		Garages: []entities.Garage{
			{Name: "Central Auto Repair", Location: "Amsterdam, Overtoom 141"},
			{Name: "Rotterdam Motor Works", Location: "Rotterdam, Coolsingel 42"},
		},
	}
}

func validDecisionJSON() string {
	decision := map[string]interface{}{
		"full_name":           "John Smith",
		"car_make":            "Toyota",
		"car_model":           "Corolla",
		"car_year":            "2019",
		"location":            "A10 near exit S106",
		"city":                "Amsterdam",
		"assistance_type":     "flat_tire",
		"safety_status":       "safe",
		"coverage_covered":    true,
		"coverage_reasoning":  "Flat tire repair is covered",
		"coverage_confidence": 0.92,
		"action_type":         "repair",
		"action_reasoning":    "On-site repair is fastest",
		"message_assessment":  "Your claim is covered",
		"message_next_actions": "A technician is on the way",
	}
	data, _ := json.Marshal(decision)
	return string(data)
}

// fastRetry avoids real backoff sleeps in tests.
func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:     2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   1.0,
		MaxTotalTimeout: time.Second,
	}
}

func TestAgentService_ToolRoundThenFinalDecision(t *testing.T) {
	chat := &scriptedChat{
		responses: []*providers.ChatResponse{
			{ToolCalls: []providers.ToolCall{
				{ID: "call-1", Name: "get_policy_coverage", Arguments: `{"policy_holder_name":"John Smith"}`},
				{ID: "call-2", Name: "get_garages", Arguments: `{"city":"Amsterdam"}`},
			}},
			{Content: validDecisionJSON()},
		},
	}
	svc := NewAgentService(chat, testDataset())
	svc.retryCfg = fastRetry()

	var logs []string
	decision, err := svc.ProcessClaim(context.Background(), "claim-1", "Agent: hello\nUser: flat tire", func(msg string, _ entities.LogSeverity) {
		logs = append(logs, msg)
	})
	require.NoError(t, err)

	assert.Equal(t, "John Smith", decision.FullName)
	assert.True(t, decision.CoverageCovered)
	assert.Equal(t, "repair", decision.ActionType)

	require.Len(t, chat.requests, 2)
	assert.NotEmpty(t, chat.requests[0].Tools, "first round offers tools")
	assert.Nil(t, chat.requests[0].Schema)
	assert.Empty(t, chat.requests[1].Tools, "final round withdraws tools")
	assert.NotNil(t, chat.requests[1].Schema, "final round enforces the schema")

	// Tool results land in history keyed by call id, in execution order.
	final := chat.requests[1].Messages
	require.Len(t, final, 5)
	assert.Equal(t, providers.ChatRoleAssistant, final[2].Role)
	assert.Equal(t, "call-1", final[3].ToolCallID)
	assert.Contains(t, final[3].Content, "POL-1")
	assert.Equal(t, "call-2", final[4].ToolCallID)
	assert.Contains(t, final[4].Content, "Central Auto Repair")
}

func TestAgentService_PrematureContentDiscarded(t *testing.T) {
	chat := &scriptedChat{
		responses: []*providers.ChatResponse{
			{Content: "I think the claim should be covered because..."},
			{Content: validDecisionJSON()},
		},
	}
	svc := NewAgentService(chat, testDataset())
	svc.retryCfg = fastRetry()

	decision, err := svc.ProcessClaim(context.Background(), "claim-1", "transcript", nil)
	require.NoError(t, err)
	assert.True(t, decision.CoverageCovered)

	require.Len(t, chat.requests, 2)
	assert.NotNil(t, chat.requests[1].Schema)
	// The free-form answer never enters the conversation history.
	for _, msg := range chat.requests[1].Messages {
		assert.NotContains(t, msg.Content, "I think the claim")
	}
}

func TestAgentService_UnknownToolReportedToModel(t *testing.T) {
	chat := &scriptedChat{
		responses: []*providers.ChatResponse{
			{ToolCalls: []providers.ToolCall{{ID: "call-1", Name: "get_weather", Arguments: `{}`}}},
			{Content: validDecisionJSON()},
		},
	}
	svc := NewAgentService(chat, testDataset())
	svc.retryCfg = fastRetry()

	_, err := svc.ProcessClaim(context.Background(), "claim-1", "transcript", nil)
	require.NoError(t, err)

	final := chat.requests[1].Messages
	assert.Contains(t, final[len(final)-1].Content, "unknown function")
}

func TestAgentService_EmptyResponseIsExternalError(t *testing.T) {
	chat := &scriptedChat{
		responses: []*providers.ChatResponse{
			{ToolCalls: []providers.ToolCall{{ID: "call-1", Name: "get_policy_coverage", Arguments: `{"policy_holder_name":"John Smith"}`}}},
			{},
		},
	}
	svc := NewAgentService(chat, testDataset())
	svc.retryCfg = fastRetry()

	_, err := svc.ProcessClaim(context.Background(), "claim-1", "transcript", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))
}

func TestAgentService_IterationCeilingIsInternalError(t *testing.T) {
	// Every round requests another tool call; the loop must stop at the
	// ceiling even though each round "succeeds".
	responses := make([]*providers.ChatResponse, maxAgentIterations)
	for i := range responses {
		responses[i] = &providers.ChatResponse{ToolCalls: []providers.ToolCall{
			{ID: "call", Name: "get_garages", Arguments: `{"city":"Amsterdam"}`},
		}}
	}
	chat := &scriptedChat{responses: responses}
	svc := NewAgentService(chat, testDataset())
	svc.retryCfg = fastRetry()

	_, err := svc.ProcessClaim(context.Background(), "claim-1", "transcript", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
	assert.Len(t, chat.requests, maxAgentIterations)
}

func TestAgentService_BackendFailureIsExternalError(t *testing.T) {
	chat := &scriptedChat{
		errs: []error{errors.New("boom"), errors.New("boom")},
	}
	svc := NewAgentService(chat, testDataset())
	svc.retryCfg = fastRetry()

	_, err := svc.ProcessClaim(context.Background(), "claim-1", "transcript", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))
	assert.Len(t, chat.requests, 2, "transient failures are retried once")
}

func TestAgentService_UnavailableBackendNotRetried(t *testing.T) {
	chat := &scriptedChat{
		errs: []error{providers.ErrChatUnavailable},
	}
	svc := NewAgentService(chat, testDataset())
	svc.retryCfg = fastRetry()

	_, err := svc.ProcessClaim(context.Background(), "claim-1", "transcript", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrChatUnavailable)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))
	assert.Len(t, chat.requests, 1, "credential rejections abort without a retry")
}

func TestAgentService_SchemaViolationRejected(t *testing.T) {
	chat := &scriptedChat{
		responses: []*providers.ChatResponse{
			{ToolCalls: []providers.ToolCall{{ID: "call-1", Name: "get_policy_coverage", Arguments: `{"policy_holder_name":"John Smith"}`}}},
			{Content: `{"full_name": "John Smith"}`},
		},
	}
	svc := NewAgentService(chat, testDataset())
	svc.retryCfg = fastRetry()

	_, err := svc.ProcessClaim(context.Background(), "claim-1", "transcript", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))
}

func TestAgentService_DecisionNormalized(t *testing.T) {
	decision := map[string]interface{}{
		"full_name":            "",
		"car_make":             "",
		"car_model":            "",
		"car_year":             "",
		"location":             "",
		"city":                 "",
		"assistance_type":      "",
		"safety_status":        "",
		"coverage_covered":     false,
		"coverage_reasoning":   "could not determine policy",
		"coverage_confidence":  0.0,
		"action_type":          "",
		"action_reasoning":     "no clear action",
		"message_assessment":   "",
		"message_next_actions": "",
	}
	data, _ := json.Marshal(decision)

	chat := &scriptedChat{
		responses: []*providers.ChatResponse{
			{ToolCalls: []providers.ToolCall{{ID: "call-1", Name: "get_policy_coverage", Arguments: `{"policy_holder_name":""}`}}},
			{Content: string(data)},
		},
	}
	svc := NewAgentService(chat, testDataset())
	svc.retryCfg = fastRetry()

	got, err := svc.ProcessClaim(context.Background(), "claim-1", "transcript", nil)
	require.NoError(t, err)
	assert.Equal(t, entities.AssistanceUnknown, got.AssistanceType)
	assert.Equal(t, entities.SafetyUnknown, got.SafetyStatus)
	assert.Equal(t, string(entities.ActionDispatchTaxi), got.ActionType)
}
