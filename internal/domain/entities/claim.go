package entities

import "time"

// ClaimStatus represents the lifecycle state of a claim
type ClaimStatus string

const (
	ClaimStatusPending    ClaimStatus = "pending"
	ClaimStatusProcessing ClaimStatus = "processing"
	ClaimStatusCovered    ClaimStatus = "covered"
	ClaimStatusDenied     ClaimStatus = "denied"
	ClaimStatusApproved   ClaimStatus = "approved"
)

// AssistanceType values extracted from the call transcription. "unknown" is an
// explicit sentinel so consumers always branch on a finite enumeration.
const (
	AssistanceFlatTire    = "flat_tire"
	AssistanceDeadBattery = "dead_battery"
	AssistanceTow         = "tow"
	AssistanceLockout     = "lockout"
	AssistanceOutOfFuel   = "out_of_fuel"
	AssistanceAccident    = "accident"
	AssistanceUnknown     = "unknown"
)

// Safety status values
const (
	SafetySafe    = "safe"
	SafetyUnsafe  = "unsafe"
	SafetyUnknown = "unknown"
)

// CarModel holds the vehicle descriptor extracted from a call
type CarModel struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  string `json:"year"`
}

// LocationComponents breaks a location down into addressable parts
type LocationComponents struct {
	RoadOrStreet   string `json:"road_or_street"`
	Direction      string `json:"direction"`
	City           string `json:"city"`
	LandmarkOrExit string `json:"landmark_or_exit"`
}

// Location combines the caller's free-text location with parsed components
type Location struct {
	FreeText   string             `json:"free_text"`
	Components LocationComponents `json:"components"`
}

// Claim tracks one roadside-assistance request through intake, decision, and
// human approval. Optional extracted fields are nil until the agent fills them.
type Claim struct {
	ID             string         `json:"id"`
	FullName       *string        `json:"full_name,omitempty"`
	CarModel       *CarModel      `json:"car_model,omitempty"`
	LocationData   *Location      `json:"location_data,omitempty"`
	AssistanceType *string        `json:"assistance_type,omitempty"`
	SafetyStatus   *string        `json:"safety_status,omitempty"`
	Confirmation   *string        `json:"confirmation,omitempty"`
	Status         ClaimStatus    `json:"status"`
	Transcription  *string        `json:"transcription,omitempty"`
	ConversationID *string        `json:"conversation_id,omitempty"`
	Decision       *AgentDecision `json:"decision,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ClaimPatch carries the optional fields an update may merge into a claim.
// Nil members are left untouched; this is the permissive-merge contract the
// claim store exposes instead of dynamic field probing.
type ClaimPatch struct {
	FullName       *string
	CarModel       *CarModel
	LocationData   *Location
	AssistanceType *string
	SafetyStatus   *string
	Confirmation   *string
	Status         *ClaimStatus
	Transcription  *string
	ConversationID *string
	Decision       *AgentDecision
}

// IsTerminal reports whether the status admits no further automatic transition.
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusApproved || s == ClaimStatusDenied
}
