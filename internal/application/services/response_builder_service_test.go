package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
)

func processingClaim() *entities.Claim {
	return &entities.Claim{ID: "claim-1", Status: entities.ClaimStatusProcessing}
}

func decidedClaim() *entities.Claim {
	section := "Section 4.2"
	garage := "Central Auto Repair"
	return &entities.Claim{
		ID:     "claim-1",
		Status: entities.ClaimStatusCovered,
		Decision: &entities.AgentDecision{
			FullName:              "John Smith",
			CarMake:               "Toyota",
			CarModel:              "Corolla",
			CarYear:               "2019",
			Location:              "A10 near exit S106",
			City:                  "Amsterdam",
			AssistanceType:        "flat_tire",
			SafetyStatus:          "safe",
			CoverageCovered:       true,
			CoverageReasoning:     "Flat tire repair is covered",
			CoveragePolicySection: &section,
			CoverageConfidence:    0.92,
			ActionType:            "repair",
			ActionGarageName:      &garage,
			ActionReasoning:       "On-site repair is fastest",
			MessageAssessment:     "Your claim is covered",
			MessageNextActions:    "A technician is on the way",
		},
	}
}

func TestBuildCoverageResponse_Placeholder(t *testing.T) {
	resp := BuildCoverageResponse(processingClaim())
	assert.False(t, resp.CoverageDecision.Covered)
	assert.Equal(t, "Agent is still processing this claim", resp.CoverageDecision.Reasoning)
	assert.Zero(t, resp.CoverageDecision.Confidence)
}

func TestBuildCoverageResponse_FromDecision(t *testing.T) {
	resp := BuildCoverageResponse(decidedClaim())
	assert.True(t, resp.CoverageDecision.Covered)
	assert.Equal(t, 0.92, resp.CoverageDecision.Confidence)
	assert.Equal(t, "John Smith", *resp.ClaimDetails.FullName)
	assert.Equal(t, "Amsterdam", resp.ClaimDetails.LocationData.Components.City)
	assert.Equal(t, "confirmed", *resp.ClaimDetails.Confirmation)
}

func TestBuildActionResponse(t *testing.T) {
	placeholder := BuildActionResponse(processingClaim())
	assert.Equal(t, "unknown", placeholder.Action.Type)

	resp := BuildActionResponse(decidedClaim())
	assert.Equal(t, "repair", resp.Action.Type)
	assert.Equal(t, "Central Auto Repair", *resp.Action.GarageName)
}

func TestBuildMessageResponse(t *testing.T) {
	placeholder := BuildMessageResponse(processingClaim())
	assert.Equal(t, "Your claim is being processed", placeholder.Message.Assessment)

	resp := BuildMessageResponse(decidedClaim())
	assert.Equal(t, "Your claim is covered", resp.Message.Assessment)
	assert.False(t, resp.Message.SentAt.IsZero())
}

func TestBuildClaimResponse(t *testing.T) {
	placeholder := BuildClaimResponse(processingClaim())
	assert.Equal(t, "processing", placeholder.Status)
	assert.Nil(t, placeholder.AgentOutput)

	resp := BuildClaimResponse(decidedClaim())
	assert.Equal(t, "completed", resp.Status)
	assert.NotNil(t, resp.AgentOutput)
}
