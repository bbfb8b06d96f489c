package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/claimtriage/roadside/backend/internal/adapters/lookup"
	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/providers"
	apperrors "github.com/claimtriage/roadside/backend/pkg/errors"
	"github.com/claimtriage/roadside/backend/pkg/retry"
)

// maxAgentIterations bounds the tool-calling loop. A run that has not produced
// a final decision after this many rounds is aborted.
const maxAgentIterations = 10

// Tool names offered to the model.
const (
	toolGetPolicyCoverage = "get_policy_coverage"
	toolGetGarages        = "get_garages"
)

// agentState tracks where the orchestrator is in its round-trip cycle.
type agentState int

const (
	// stateAwaitingToolDecision: tools offered, waiting for the model to pick.
	stateAwaitingToolDecision agentState = iota
	// stateExecutingTools: running the requested tool calls locally.
	stateExecutingTools
	// stateAwaitingFinal: tools withdrawn, schema enforced on the response.
	stateAwaitingFinal
)

const agentSystemPrompt = `You are an insurance claims processing agent. Your task is to:

1. Extract claim details from the call transcription:
   - Policyholder full name
   - Car make, model, and year
   - Location (full address) and city
   - Assistance type (flat_tire, dead_battery, tow, lockout, out_of_fuel, accident, or unknown)
   - Safety status (safe, unsafe, or unknown)

2. Use the get_policy_coverage tool to look up the policyholder's insurance policy

3. Determine coverage eligibility based on:
   - Policy coverage rules
   - Policy exclusions
   - Assistance type requested

4. If repair or tow is needed, use the get_garages tool to find nearby garages in the city

5. Recommend the best action:
   - "repair" for on-site fixes (flat tire, battery)
   - "tow" for vehicle transport needed
   - "dispatch_taxi" for basic assistance or if not covered
   - "rental_car" for extended repairs

6. Compose a professional message to the policyholder explaining:
   - Coverage decision (covered or not covered)
   - Recommended next steps
   - Garage details if applicable
   - Estimated time

IMPORTANT: Always return valid data matching the required schema, even if the transcription is incomplete or missing information.
For missing information, use appropriate defaults:
- Use "unknown" for assistance_type and safety_status if not found
- Use empty string "" for missing text fields
- Use false for coverage_covered if policy cannot be determined
- Use 0.0 for coverage_confidence if information is insufficient
- Use "dispatch_taxi" for action_type if no clear action can be determined`

// decisionSchemaJSON is the structured-output contract for the final round.
// The same schema is sent to the backend and used to validate what comes back.
const decisionSchemaJSON = `{
  "type": "object",
  "properties": {
    "full_name": {"type": "string"},
    "car_make": {"type": "string"},
    "car_model": {"type": "string"},
    "car_year": {"type": "string"},
    "location": {"type": "string"},
    "city": {"type": "string"},
    "assistance_type": {"type": "string"},
    "safety_status": {"type": "string"},
    "coverage_covered": {"type": "boolean"},
    "coverage_reasoning": {"type": "string"},
    "coverage_policy_section": {"type": ["string", "null"]},
    "coverage_confidence": {"type": "number", "minimum": 0.0, "maximum": 1.0},
    "action_type": {"type": "string"},
    "action_garage_name": {"type": ["string", "null"]},
    "action_garage_location": {"type": ["string", "null"]},
    "action_reasoning": {"type": "string"},
    "action_estimated_time": {"type": ["string", "null"]},
    "message_assessment": {"type": "string"},
    "message_next_actions": {"type": "string"}
  },
  "required": [
    "full_name", "car_make", "car_model", "car_year",
    "location", "city", "assistance_type", "safety_status",
    "coverage_covered", "coverage_reasoning",
    "action_type", "action_reasoning",
    "message_assessment", "message_next_actions"
  ],
  "additionalProperties": false
}`

var policyToolParams = json.RawMessage(`{
  "type": "object",
  "properties": {
    "policy_holder_name": {
      "type": "string",
      "description": "Full name of the policyholder extracted from the call transcription"
    }
  },
  "required": ["policy_holder_name"]
}`)

var garageToolParams = json.RawMessage(`{
  "type": "object",
  "properties": {
    "city": {
      "type": "string",
      "description": "City name extracted from the location in the call transcription"
    }
  },
  "required": ["city"]
}`)

// LogFunc receives progress entries from an agent run.
type LogFunc func(message string, severity entities.LogSeverity)

// AgentService runs the bounded tool-calling loop that turns a transcription
// into an AgentDecision. Tool rounds and the schema-enforced final round are
// mutually exclusive; once a tool has been used, or a premature free-form
// answer discarded, the loop only ever asks for the structured decision.
type AgentService struct {
	chat     providers.ChatCompletionProvider
	dataset  *lookup.Dataset
	schema   *jsonschema.Schema
	retryCfg retry.Config
	tools    []providers.ToolDefinition
}

// NewAgentService creates the orchestrator. The decision schema is compiled
// once at construction; a schema that fails to compile is a programming error.
func NewAgentService(chat providers.ChatCompletionProvider, dataset *lookup.Dataset) *AgentService {
	schema := jsonschema.MustCompileString("agent_decision.json", decisionSchemaJSON)
	return &AgentService{
		chat:     chat,
		dataset:  dataset,
		schema:   schema,
		retryCfg: retry.ChatBackendConfig(),
		tools: []providers.ToolDefinition{
			{
				Name:        toolGetPolicyCoverage,
				Description: "Get insurance policy details by policyholder name. Returns policy coverage rules, exclusions, and limits. Returns null if policy not found.",
				Parameters:  policyToolParams,
			},
			{
				Name:        toolGetGarages,
				Description: "Get list of available garages in a specific city for towing or repair services. Returns list of garages with name, location, and contact info.",
				Parameters:  garageToolParams,
			},
		},
	}
}

// ProcessClaim drives the agent loop over the transcription and returns the
// validated, normalized decision. Progress is reported through logf; claim
// state is untouched, the caller owns persistence.
func (s *AgentService) ProcessClaim(ctx context.Context, claimID, transcription string, logf LogFunc) (*entities.AgentDecision, error) {
	if logf == nil {
		logf = func(string, entities.LogSeverity) {}
	}

	logf("Starting claim agent processing", entities.LogSeverityInfo)

	messages := []providers.ChatMessage{
		{Role: providers.ChatRoleSystem, Content: agentSystemPrompt},
		{Role: providers.ChatRoleUser, Content: "Process this insurance claim call transcription:\n\n" + transcription},
	}

	state := stateAwaitingToolDecision
	for iteration := 1; iteration <= maxAgentIterations; iteration++ {
		logf(fmt.Sprintf("Agent iteration %d", iteration), entities.LogSeverityInfo)

		req := providers.ChatRequest{Messages: messages}
		if state == stateAwaitingFinal {
			logf("Requesting structured final decision", entities.LogSeverityInfo)
			req.Schema = json.RawMessage(decisionSchemaJSON)
			req.SchemaName = "agent_decision"
		} else {
			req.Tools = s.tools
		}

		resp, err := s.complete(ctx, req)
		if err != nil {
			logf(fmt.Sprintf("Chat backend request failed: %v", err), entities.LogSeverityError)
			return nil, apperrors.NewExternalError("chat backend request failed", err)
		}

		if len(resp.ToolCalls) > 0 {
			state = stateExecutingTools
			logf(fmt.Sprintf("Agent requested %d tool call(s)", len(resp.ToolCalls)), entities.LogSeverityInfo)

			messages = append(messages, providers.ChatMessage{
				Role:      providers.ChatRoleAssistant,
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
			})
			for _, call := range resp.ToolCalls {
				result := s.executeTool(call, logf)
				messages = append(messages, providers.ChatMessage{
					Role:       providers.ChatRoleTool,
					ToolCallID: call.ID,
					Content:    result,
				})
			}

			// Tool results are in; the next round must produce the decision.
			state = stateAwaitingFinal
			continue
		}

		if resp.Content != "" && state == stateAwaitingToolDecision {
			// Free-form answer before any tool use. Discard it and force the
			// schema on the next round; nothing unstructured enters history.
			logf("Agent answered without tools, retrying with structured output", entities.LogSeverityWarning)
			state = stateAwaitingFinal
			continue
		}

		if resp.Content != "" {
			logf("Agent completed processing, parsing final output", entities.LogSeverityInfo)
			decision, err := s.parseDecision(resp.Content)
			if err != nil {
				logf(fmt.Sprintf("Agent output rejected: %v", err), entities.LogSeverityError)
				return nil, err
			}
			logf("Successfully parsed agent decision", entities.LogSeveritySuccess)
			return decision, nil
		}

		logf("Agent returned neither tool calls nor content", entities.LogSeverityError)
		return nil, apperrors.NewExternalError("chat backend returned an empty response", nil)
	}

	logf(fmt.Sprintf("Agent exceeded maximum iterations (%d)", maxAgentIterations), entities.LogSeverityError)
	return nil, apperrors.NewInternalError("agent processing exceeded maximum iterations", nil)
}

// complete calls the chat backend under the retry policy. Credential and
// quota rejections abort immediately.
func (s *AgentService) complete(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	cfg := s.retryCfg
	cfg.Permanent = func(err error) bool {
		return errors.Is(err, providers.ErrChatUnavailable)
	}

	var resp *providers.ChatResponse
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		r, err := s.chat.Complete(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		if errors.Is(err, providers.ErrChatUnavailable) {
			return nil, providers.ErrChatUnavailable
		}
		return nil, err
	}
	return resp, nil
}

// executeTool dispatches one tool call and returns its JSON-encoded result.
// Tool failures are reported back to the model as error payloads instead of
// aborting the run.
func (s *AgentService) executeTool(call providers.ToolCall, logf LogFunc) string {
	logf(fmt.Sprintf("Calling tool %s with arguments %s", call.Name, call.Arguments), entities.LogSeverityInfo)

	switch call.Name {
	case toolGetPolicyCoverage:
		var args struct {
			PolicyHolderName string `json:"policy_holder_name"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			logf(fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err), entities.LogSeverityError)
			return toolError(fmt.Sprintf("invalid arguments: %v", err))
		}
		policy := s.dataset.FindPolicy(args.PolicyHolderName)
		if policy == nil {
			logf(fmt.Sprintf("No policy found for %s", args.PolicyHolderName), entities.LogSeverityWarning)
			return "null"
		}
		logf(fmt.Sprintf("Policy found for %s", args.PolicyHolderName), entities.LogSeveritySuccess)
		return mustMarshal(policy)

	case toolGetGarages:
		var args struct {
			City string `json:"city"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			logf(fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err), entities.LogSeverityError)
			return toolError(fmt.Sprintf("invalid arguments: %v", err))
		}
		garages := s.dataset.FindGarages(args.City)
		logf(fmt.Sprintf("Found %d garage(s) in %s", len(garages), args.City), entities.LogSeverityInfo)
		return mustMarshal(garages)

	default:
		logf(fmt.Sprintf("Unknown tool requested: %s", call.Name), entities.LogSeverityError)
		return toolError(fmt.Sprintf("unknown function: %s", call.Name))
	}
}

// parseDecision validates the final content against the decision schema and
// decodes it.
func (s *AgentService) parseDecision(content string) (*entities.AgentDecision, error) {
	var generic interface{}
	if err := json.Unmarshal([]byte(content), &generic); err != nil {
		return nil, apperrors.NewExternalError("agent output is not valid JSON", err)
	}
	if err := s.schema.Validate(generic); err != nil {
		return nil, apperrors.NewExternalError("agent output does not match the decision schema", err)
	}

	var decision entities.AgentDecision
	if err := json.Unmarshal([]byte(content), &decision); err != nil {
		return nil, apperrors.NewExternalError("failed to decode agent decision", err)
	}
	decision.Normalize()
	return &decision, nil
}

func toolError(message string) string {
	return mustMarshal(map[string]string{"error": message})
}

func mustMarshal(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error": "failed to encode tool result"}`
	}
	return strings.TrimSpace(string(data))
}
