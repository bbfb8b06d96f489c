package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtriage/roadside/backend/internal/adapters/events"
	"github.com/claimtriage/roadside/backend/internal/adapters/storage"
	"github.com/claimtriage/roadside/backend/internal/application/services"
	"github.com/claimtriage/roadside/backend/internal/domain/entities"
)

type claimFixture struct {
	mux    *http.ServeMux
	claims *storage.ClaimAdapter
	bus    *events.MemoryLogBus
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	claims := storage.NewClaimAdapter(store)
	bus := events.NewMemoryLogBus()
	t.Cleanup(func() { _ = bus.Close() })

	handler := NewClaimHandler(services.NewClaimService(claims, bus), bus)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/claims/{id}", handler.GetClaim)
	mux.HandleFunc("GET /api/claims/{id}/coverage", handler.GetCoverage)
	mux.HandleFunc("GET /api/claims/{id}/action", handler.GetAction)
	mux.HandleFunc("GET /api/claims/{id}/message", handler.GetMessage)
	mux.HandleFunc("GET /api/claims/{id}/logs", handler.GetLogs)
	mux.HandleFunc("POST /api/claims/{id}/approve", handler.Approve)
	mux.HandleFunc("POST /api/claims/{id}/reject", handler.Reject)

	return &claimFixture{mux: mux, claims: claims, bus: bus}
}

func (f *claimFixture) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestClaimHandler_GetClaim_Processing(t *testing.T) {
	f := newClaimFixture(t)
	claim, err := f.claims.Create(context.Background())
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/claims/"+claim.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, "Agent is still processing this claim", resp.Message)
}

func TestClaimHandler_GetClaim_NotFound(t *testing.T) {
	f := newClaimFixture(t)
	rec := f.do(http.MethodGet, "/api/claims/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClaimHandler_CoverageProjection(t *testing.T) {
	f := newClaimFixture(t)
	claim, err := f.claims.Create(context.Background())
	require.NoError(t, err)

	// Before a decision exists the projection is a placeholder.
	rec := f.do(http.MethodGet, "/api/claims/"+claim.ID+"/coverage")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Agent is still processing this claim")

	decision := &entities.AgentDecision{
		FullName:           "John Smith",
		CoverageCovered:    true,
		CoverageReasoning:  "covered",
		CoverageConfidence: 0.9,
		ActionType:         "repair",
	}
	status := entities.ClaimStatusCovered
	_, err = f.claims.Update(context.Background(), claim.ID, entities.ClaimPatch{
		Decision: decision,
		Status:   &status,
	})
	require.NoError(t, err)

	rec = f.do(http.MethodGet, "/api/claims/"+claim.ID+"/coverage")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CoverageDecision struct {
			Covered    bool    `json:"covered"`
			Confidence float64 `json:"confidence"`
		} `json:"coverage_decision"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.CoverageDecision.Covered)
	assert.Equal(t, 0.9, resp.CoverageDecision.Confidence)
}

func TestClaimHandler_ApproveThenReject(t *testing.T) {
	f := newClaimFixture(t)
	claim, err := f.claims.Create(context.Background())
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/api/claims/"+claim.ID+"/approve")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"approved"`)

	stored, err := f.claims.Get(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ClaimStatusApproved, stored.Status)

	// A later reject still succeeds and flips the terminal status.
	rec = f.do(http.MethodPost, "/api/claims/"+claim.ID+"/reject")
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err = f.claims.Get(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ClaimStatusDenied, stored.Status)
}

func TestClaimHandler_GetLogs(t *testing.T) {
	f := newClaimFixture(t)
	f.bus.Append("claim-1", "first", entities.LogSeverityInfo)
	f.bus.Append("claim-1", "second", entities.LogSeveritySuccess)

	rec := f.do(http.MethodGet, "/api/claims/claim-1/logs")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ClaimID string                   `json:"claim_id"`
		Logs    []entities.ClaimLogEntry `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "claim-1", resp.ClaimID)
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, 1, resp.Logs[0].Sequence)
	assert.Equal(t, "second", resp.Logs[1].Message)
}
