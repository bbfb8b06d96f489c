package handlers

import (
	"context"
	"encoding/json"

	"github.com/claimtriage/roadside/backend/internal/domain/providers"
)

// cannedChat answers every tool round with one policy lookup and every schema
// round with a fixed covered decision.
type cannedChat struct{}

func scriptedAgentChat() providers.ChatCompletionProvider {
	return cannedChat{}
}

func (cannedChat) Complete(_ context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	if req.Schema == nil {
		return &providers.ChatResponse{ToolCalls: []providers.ToolCall{
			{ID: "call-1", Name: "get_policy_coverage", Arguments: `{"policy_holder_name":"John Smith"}`},
		}}, nil
	}
	decision := map[string]interface{}{
		"full_name":            "John Smith",
		"car_make":             "Toyota",
		"car_model":            "Corolla",
		"car_year":             "2019",
		"location":             "A10 near exit S106",
		"city":                 "Amsterdam",
		"assistance_type":      "flat_tire",
		"safety_status":        "safe",
		"coverage_covered":     true,
		"coverage_reasoning":   "Flat tire repair is covered",
		"coverage_confidence":  0.9,
		"action_type":          "repair",
		"action_reasoning":     "On-site repair is fastest",
		"message_assessment":   "Your claim is covered",
		"message_next_actions": "A technician is on the way",
	}
	data, _ := json.Marshal(decision)
	return &providers.ChatResponse{Content: string(data)}, nil
}
