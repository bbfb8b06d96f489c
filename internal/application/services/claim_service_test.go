package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtriage/roadside/backend/internal/adapters/events"
	"github.com/claimtriage/roadside/backend/internal/adapters/storage"
	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	apperrors "github.com/claimtriage/roadside/backend/pkg/errors"
)

func newTestClaimService(t *testing.T) (*ClaimService, *storage.ClaimAdapter, *events.MemoryLogBus) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	claims := storage.NewClaimAdapter(store)
	bus := events.NewMemoryLogBus()
	t.Cleanup(func() { _ = bus.Close() })
	return NewClaimService(claims, bus), claims, bus
}

func TestClaimService_GetClaim_NotFound(t *testing.T) {
	svc, _, _ := newTestClaimService(t)

	_, err := svc.GetClaim(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestClaimService_ApproveAndReject(t *testing.T) {
	ctx := context.Background()
	svc, claims, bus := newTestClaimService(t)

	claim, err := claims.Create(ctx)
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ClaimStatusApproved, approved.Status)

	// Second approve is a no-op but still logs.
	before := len(bus.History(claim.ID))
	again, err := svc.Approve(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ClaimStatusApproved, again.Status)
	assert.Len(t, bus.History(claim.ID), before+1)

	other, err := claims.Create(ctx)
	require.NoError(t, err)
	rejected, err := svc.Reject(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ClaimStatusDenied, rejected.Status)
}

func TestClaimService_DecisionOnUnknownClaim(t *testing.T) {
	svc, _, _ := newTestClaimService(t)

	_, err := svc.Approve(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}
