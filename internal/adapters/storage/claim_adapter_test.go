package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
)

func newClaimAdapter(t *testing.T) (*ClaimAdapter, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	return NewClaimAdapter(store), dir
}

func TestClaimAdapter_CreateStartsPending(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newClaimAdapter(t)

	claim, err := adapter.Create(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, claim.ID)
	assert.Equal(t, entities.ClaimStatusPending, claim.Status)
	assert.False(t, claim.CreatedAt.IsZero())
}

func TestClaimAdapter_GetUnknownReturnsNil(t *testing.T) {
	adapter, _ := newClaimAdapter(t)

	claim, err := adapter.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, claim)
}

func TestClaimAdapter_UpdateMergesOnlyPatchFields(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newClaimAdapter(t)

	claim, err := adapter.Create(ctx)
	require.NoError(t, err)

	name := "John Smith"
	_, err = adapter.Update(ctx, claim.ID, entities.ClaimPatch{FullName: &name})
	require.NoError(t, err)

	status := entities.ClaimStatusProcessing
	updated, err := adapter.Update(ctx, claim.ID, entities.ClaimPatch{Status: &status})
	require.NoError(t, err)

	// Earlier fields survive a patch that does not mention them.
	require.NotNil(t, updated.FullName)
	assert.Equal(t, "John Smith", *updated.FullName)
	assert.Equal(t, entities.ClaimStatusProcessing, updated.Status)
	assert.True(t, updated.UpdatedAt.After(claim.UpdatedAt) || updated.UpdatedAt.Equal(claim.UpdatedAt))
}

func TestClaimAdapter_UpdateUnknownReturnsNil(t *testing.T) {
	adapter, _ := newClaimAdapter(t)

	status := entities.ClaimStatusCovered
	claim, err := adapter.Update(context.Background(), "missing", entities.ClaimPatch{Status: &status})
	require.NoError(t, err)
	assert.Nil(t, claim)
}

func TestClaimAdapter_ReloadsFromDiskAfterRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	adapter := NewClaimAdapter(store)

	claim, err := adapter.Create(ctx)
	require.NoError(t, err)
	status := entities.ClaimStatusCovered
	_, err = adapter.Update(ctx, claim.ID, entities.ClaimPatch{Status: &status})
	require.NoError(t, err)

	// A fresh adapter over the same directory simulates a restart with a cold
	// cache.
	reopenedStore, err := NewFileStore(dir)
	require.NoError(t, err)
	reopened := NewClaimAdapter(reopenedStore)

	loaded, err := reopened.Get(ctx, claim.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, entities.ClaimStatusCovered, loaded.Status)
}

func TestClaimAdapter_GetReturnsACopy(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newClaimAdapter(t)

	claim, err := adapter.Create(ctx)
	require.NoError(t, err)

	first, err := adapter.Get(ctx, claim.ID)
	require.NoError(t, err)
	first.Status = entities.ClaimStatusDenied

	second, err := adapter.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ClaimStatusPending, second.Status)
}
