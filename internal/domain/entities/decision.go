package entities

// ActionType represents the remediation the agent recommends
type ActionType string

const (
	ActionRepair       ActionType = "repair"
	ActionTow          ActionType = "tow"
	ActionDispatchTaxi ActionType = "dispatch_taxi"
	ActionRentalCar    ActionType = "rental_car"
)

// AgentDecision is the single structured output of one orchestrator run:
// extracted claim facts, the coverage verdict, the recommended action, and the
// drafted policyholder message. Immutable once produced; re-processing a claim
// replaces the record wholesale.
type AgentDecision struct {
	FullName       string `json:"full_name"`
	CarMake        string `json:"car_make"`
	CarModel       string `json:"car_model"`
	CarYear        string `json:"car_year"`
	Location       string `json:"location"`
	City           string `json:"city"`
	AssistanceType string `json:"assistance_type"`
	SafetyStatus   string `json:"safety_status"`

	CoverageCovered       bool    `json:"coverage_covered"`
	CoverageReasoning     string  `json:"coverage_reasoning"`
	CoveragePolicySection *string `json:"coverage_policy_section,omitempty"`
	CoverageConfidence    float64 `json:"coverage_confidence"`

	ActionType           string  `json:"action_type"`
	ActionGarageName     *string `json:"action_garage_name,omitempty"`
	ActionGarageLocation *string `json:"action_garage_location,omitempty"`
	ActionReasoning      string  `json:"action_reasoning"`
	ActionEstimatedTime  *string `json:"action_estimated_time,omitempty"`

	MessageAssessment  string `json:"message_assessment"`
	MessageNextActions string `json:"message_next_actions"`
}

// Normalize enforces the decision's semantic contracts: confidence stays in
// [0,1], enumerated fields never come back empty, and the action falls back to
// a taxi dispatch when the model could not settle on one.
func (d *AgentDecision) Normalize() {
	if d.CoverageConfidence < 0 {
		d.CoverageConfidence = 0
	}
	if d.CoverageConfidence > 1 {
		d.CoverageConfidence = 1
	}
	if d.AssistanceType == "" {
		d.AssistanceType = AssistanceUnknown
	}
	if d.SafetyStatus == "" {
		d.SafetyStatus = SafetyUnknown
	}
	if d.ActionType == "" {
		d.ActionType = string(ActionDispatchTaxi)
	}
}
