package services

import (
	"time"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
)

// CoverageResponse is the coverage projection of a claim.
type CoverageResponse struct {
	ClaimID          string           `json:"claim_id"`
	ClaimDetails     ClaimDetails     `json:"claim_details"`
	CoverageDecision CoverageDecision `json:"coverage_decision"`
}

// ClaimDetails holds the extracted facts shown alongside the coverage verdict.
type ClaimDetails struct {
	FullName       *string            `json:"full_name"`
	CarModel       *entities.CarModel `json:"car_model"`
	LocationData   *entities.Location `json:"location_data"`
	AssistanceType *string            `json:"assistance_type"`
	SafetyStatus   *string            `json:"safety_status"`
	Confirmation   *string            `json:"confirmation"`
}

// CoverageDecision is the verdict section of the coverage projection.
type CoverageDecision struct {
	Covered       bool    `json:"covered"`
	Reasoning     string  `json:"reasoning"`
	PolicySection *string `json:"policy_section"`
	Confidence    float64 `json:"confidence"`
}

// ActionResponse is the recommended-action projection of a claim.
type ActionResponse struct {
	ClaimID string       `json:"claim_id"`
	Action  ActionDetail `json:"action"`
}

// ActionDetail is the action section of the action projection.
type ActionDetail struct {
	Type           string  `json:"type"`
	GarageName     *string `json:"garage_name"`
	GarageLocation *string `json:"garage_location"`
	Reasoning      string  `json:"reasoning"`
	EstimatedTime  *string `json:"estimated_time"`
}

// MessageResponse is the drafted policyholder message projection.
type MessageResponse struct {
	ClaimID string        `json:"claim_id"`
	Message MessageDetail `json:"message"`
}

// MessageDetail is the message body with its render timestamp.
type MessageDetail struct {
	Assessment  string    `json:"assessment"`
	NextActions string    `json:"next_actions"`
	SentAt      time.Time `json:"sent_at"`
}

// ClaimResponse is the full claim projection.
type ClaimResponse struct {
	Claim       *entities.Claim         `json:"claim"`
	AgentOutput *entities.AgentDecision `json:"agent_output,omitempty"`
	Status      string                  `json:"status"`
	Message     string                  `json:"message,omitempty"`
}

// BuildCoverageResponse projects the claim's coverage verdict. Before the
// agent has produced a decision, a not-covered placeholder with zero
// confidence is returned so the endpoint never blocks or errors mid-run.
func BuildCoverageResponse(claim *entities.Claim) CoverageResponse {
	if claim.Decision == nil {
		return CoverageResponse{
			ClaimID: claim.ID,
			ClaimDetails: ClaimDetails{
				FullName:       claim.FullName,
				CarModel:       claim.CarModel,
				LocationData:   claim.LocationData,
				AssistanceType: claim.AssistanceType,
				SafetyStatus:   claim.SafetyStatus,
				Confirmation:   claim.Confirmation,
			},
			CoverageDecision: CoverageDecision{
				Covered:    false,
				Reasoning:  "Agent is still processing this claim",
				Confidence: 0.0,
			},
		}
	}

	d := claim.Decision
	details := ClaimDetails{
		AssistanceType: strPtr(d.AssistanceType),
		SafetyStatus:   strPtr(d.SafetyStatus),
		Confirmation:   strPtr("confirmed"),
	}
	if d.FullName != "" {
		details.FullName = strPtr(d.FullName)
	}
	if d.CarMake != "" {
		details.CarModel = &entities.CarModel{Make: d.CarMake, Model: d.CarModel, Year: d.CarYear}
	}
	if d.Location != "" {
		details.LocationData = &entities.Location{
			FreeText:   d.Location,
			Components: entities.LocationComponents{City: d.City},
		}
	}

	return CoverageResponse{
		ClaimID:      claim.ID,
		ClaimDetails: details,
		CoverageDecision: CoverageDecision{
			Covered:       d.CoverageCovered,
			Reasoning:     d.CoverageReasoning,
			PolicySection: d.CoveragePolicySection,
			Confidence:    d.CoverageConfidence,
		},
	}
}

// BuildActionResponse projects the recommended action, with an unknown
// placeholder while the agent is still running.
func BuildActionResponse(claim *entities.Claim) ActionResponse {
	if claim.Decision == nil {
		return ActionResponse{
			ClaimID: claim.ID,
			Action: ActionDetail{
				Type:      "unknown",
				Reasoning: "Agent is still processing this claim",
			},
		}
	}
	d := claim.Decision
	return ActionResponse{
		ClaimID: claim.ID,
		Action: ActionDetail{
			Type:           d.ActionType,
			GarageName:     d.ActionGarageName,
			GarageLocation: d.ActionGarageLocation,
			Reasoning:      d.ActionReasoning,
			EstimatedTime:  d.ActionEstimatedTime,
		},
	}
}

// BuildMessageResponse projects the drafted policyholder message, with a
// please-wait placeholder while the agent is still running.
func BuildMessageResponse(claim *entities.Claim) MessageResponse {
	if claim.Decision == nil {
		return MessageResponse{
			ClaimID: claim.ID,
			Message: MessageDetail{
				Assessment:  "Your claim is being processed",
				NextActions: "Please wait while our system reviews your information",
				SentAt:      time.Now().UTC(),
			},
		}
	}
	return MessageResponse{
		ClaimID: claim.ID,
		Message: MessageDetail{
			Assessment:  claim.Decision.MessageAssessment,
			NextActions: claim.Decision.MessageNextActions,
			SentAt:      time.Now().UTC(),
		},
	}
}

// BuildClaimResponse projects the full claim record.
func BuildClaimResponse(claim *entities.Claim) ClaimResponse {
	if claim.Decision == nil {
		return ClaimResponse{
			Claim:   claim,
			Status:  "processing",
			Message: "Agent is still processing this claim",
		}
	}
	return ClaimResponse{
		Claim:       claim,
		AgentOutput: claim.Decision,
		Status:      "completed",
	}
}

func strPtr(s string) *string { return &s }
