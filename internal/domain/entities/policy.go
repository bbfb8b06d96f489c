package entities

// Policy is one roadside-assistance insurance policy from the lookup dataset.
type Policy struct {
	PolicyID         string   `json:"policy_id"`
	PolicyholderName string   `json:"policyholder_name"`
	PolicyType       string   `json:"policy_type"`
	CoverageRules    []string `json:"coverage_rules"`
	Exclusions       []string `json:"exclusions"`
	CoverageLimit    string   `json:"coverage_limit,omitempty"`
}

// Garage is one partner garage from the lookup dataset.
type Garage struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Phone    string `json:"phone,omitempty"`
	Services string `json:"services,omitempty"`
}
