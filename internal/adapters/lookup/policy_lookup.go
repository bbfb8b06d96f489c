package lookup

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
)

// fuzzyThreshold is the minimum similarity (0-100) a policyholder name must
// reach before a fuzzy match is accepted.
const fuzzyThreshold = 70

// Dataset holds the static policy and garage records the agent tools read.
// Both lookups are pure functions over this data.
type Dataset struct {
	Policies []entities.Policy `json:"policies"`
	Garages  []entities.Garage `json:"garages"`
}

// Load reads the dataset from the given JSON file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy dataset %s: %w", path, err)
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode policy dataset %s: %w", path, err)
	}
	return &ds, nil
}

// FindPolicy resolves a policyholder name to a policy. Matching order: exact
// case-insensitive substring in either direction, then fuzzy similarity at or
// above the threshold, then the first policy in the dataset as a last resort.
// Returns nil only when the dataset is empty.
func (d *Dataset) FindPolicy(policyholderName string) *entities.Policy {
	if len(d.Policies) == 0 {
		return nil
	}

	name := strings.ToLower(strings.TrimSpace(policyholderName))
	if name != "" {
		for i := range d.Policies {
			stored := strings.ToLower(d.Policies[i].PolicyholderName)
			if stored == "" {
				continue
			}
			if strings.Contains(stored, name) || strings.Contains(name, stored) {
				return &d.Policies[i]
			}
		}

		var best *entities.Policy
		bestScore := 0
		for i := range d.Policies {
			stored := strings.ToLower(d.Policies[i].PolicyholderName)
			if stored == "" {
				continue
			}
			score := similarity(name, stored)
			if score > bestScore && score >= fuzzyThreshold {
				bestScore = score
				best = &d.Policies[i]
			}
		}
		if best != nil {
			return best
		}
	}

	return &d.Policies[0]
}

// FindGarages returns the garages whose location contains the city,
// case-insensitively. No match falls back to the full garage list.
func (d *Dataset) FindGarages(city string) []entities.Garage {
	needle := strings.ToLower(strings.TrimSpace(city))

	var matched []entities.Garage
	if needle != "" {
		for _, g := range d.Garages {
			if strings.Contains(strings.ToLower(g.Location), needle) {
				matched = append(matched, g)
			}
		}
	}
	if len(matched) == 0 {
		matched = append(matched, d.Garages...)
	}
	return matched
}

// similarity maps levenshtein distance onto the 0-100 ratio scale used by the
// threshold: 100 means identical, 0 means nothing in common.
func similarity(a, b string) int {
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (longest - dist) * 100 / longest
}
