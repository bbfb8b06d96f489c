package lookup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
)

func sampleDataset() *Dataset {
	return &Dataset{
		Policies: []entities.Policy{
			{PolicyID: "POL-001", PolicyholderName: "John Smith", PolicyType: "premium"},
			{PolicyID: "POL-002", PolicyholderName: "Maria Garcia", PolicyType: "basic"},
			{PolicyID: "POL-003", PolicyholderName: "Ahmed Hassan", PolicyType: "standard"},
		},
		Garages: []entities.Garage{
			{Name: "Central Garage", Location: "Amsterdam"},
			{Name: "Harbor Motors", Location: "Rotterdam"},
			{Name: "Canal Repairs", Location: "Amsterdam Noord"},
		},
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.json")
	data, err := json.Marshal(sampleDataset())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, ds.Policies, 3)
	assert.Len(t, ds.Garages, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFindPolicy_ExactSubstringEitherDirection(t *testing.T) {
	ds := sampleDataset()

	// Spoken name contains the stored name.
	policy := ds.FindPolicy("my name is maria garcia")
	require.NotNil(t, policy)
	assert.Equal(t, "POL-002", policy.PolicyID)

	// Stored name contains the spoken fragment.
	policy = ds.FindPolicy("garcia")
	require.NotNil(t, policy)
	assert.Equal(t, "POL-002", policy.PolicyID)
}

func TestFindPolicy_FuzzyMatchAboveThreshold(t *testing.T) {
	ds := sampleDataset()

	// One transposition away from "john smith".
	policy := ds.FindPolicy("jhon smith")
	require.NotNil(t, policy)
	assert.Equal(t, "POL-001", policy.PolicyID)
}

func TestFindPolicy_FallsBackToFirstPolicy(t *testing.T) {
	ds := sampleDataset()

	policy := ds.FindPolicy("completely unrelated caller")
	require.NotNil(t, policy)
	assert.Equal(t, "POL-001", policy.PolicyID)

	policy = ds.FindPolicy("")
	require.NotNil(t, policy)
	assert.Equal(t, "POL-001", policy.PolicyID)
}

func TestFindPolicy_EmptyDatasetReturnsNil(t *testing.T) {
	ds := &Dataset{}
	assert.Nil(t, ds.FindPolicy("anyone"))
}

func TestFindGarages_SubstringMatch(t *testing.T) {
	ds := sampleDataset()

	garages := ds.FindGarages("amsterdam")
	require.Len(t, garages, 2)
	assert.Equal(t, "Central Garage", garages[0].Name)
	assert.Equal(t, "Canal Repairs", garages[1].Name)
}

func TestFindGarages_NoMatchReturnsAll(t *testing.T) {
	ds := sampleDataset()

	garages := ds.FindGarages("utrecht")
	assert.Len(t, garages, 3)

	garages = ds.FindGarages("")
	assert.Len(t, garages, 3)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, similarity("", ""))
	assert.Equal(t, 100, similarity("abc", "abc"))
	assert.Equal(t, 0, similarity("abc", "xyz"))
	assert.Greater(t, similarity("john smith", "jhon smith"), 70)
}
