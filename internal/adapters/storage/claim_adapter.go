package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/repositories"
)

// ClaimAdapter implements ClaimRepository over an in-memory cache with a
// file-backed store underneath. Every mutation is flushed synchronously so a
// restarted process can rebuild its cache from disk on demand.
type ClaimAdapter struct {
	store Store
	mu    sync.RWMutex
	cache map[string]*entities.Claim
}

// NewClaimAdapter creates a new claim repository over the given store.
func NewClaimAdapter(store Store) *ClaimAdapter {
	return &ClaimAdapter{
		store: store,
		cache: make(map[string]*entities.Claim),
	}
}

var _ repositories.ClaimRepository = (*ClaimAdapter)(nil)

// Create allocates a fresh claim in pending state and persists it.
func (a *ClaimAdapter) Create(ctx context.Context) (*entities.Claim, error) {
	now := time.Now().UTC()
	claim := &entities.Claim{
		ID:        uuid.New().String(),
		Status:    entities.ClaimStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.store.Put(claim.ID, claim); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[claim.ID] = claim
	a.mu.Unlock()

	return copyClaim(claim), nil
}

// Get checks the in-memory cache first and falls back to the persisted file,
// repopulating the cache on a hit. Returns nil when neither source has the
// record.
func (a *ClaimAdapter) Get(ctx context.Context, id string) (*entities.Claim, error) {
	a.mu.RLock()
	claim, ok := a.cache[id]
	a.mu.RUnlock()
	if ok {
		return copyClaim(claim), nil
	}

	var loaded entities.Claim
	found, err := a.store.Get(id, &loaded)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	a.mu.Lock()
	a.cache[id] = &loaded
	a.mu.Unlock()

	return copyClaim(&loaded), nil
}

// Update merges only the provided patch fields into the claim, refreshes the
// update timestamp, and re-persists. An unknown id yields (nil, nil).
func (a *ClaimAdapter) Update(ctx context.Context, id string, patch entities.ClaimPatch) (*entities.Claim, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	claim, ok := a.cache[id]
	if !ok {
		var loaded entities.Claim
		found, err := a.store.Get(id, &loaded)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		claim = &loaded
		a.cache[id] = claim
	}

	applyPatch(claim, patch)
	claim.UpdatedAt = time.Now().UTC()

	if err := a.store.Put(claim.ID, claim); err != nil {
		return nil, err
	}
	return copyClaim(claim), nil
}

func applyPatch(claim *entities.Claim, patch entities.ClaimPatch) {
	if patch.FullName != nil {
		claim.FullName = patch.FullName
	}
	if patch.CarModel != nil {
		claim.CarModel = patch.CarModel
	}
	if patch.LocationData != nil {
		claim.LocationData = patch.LocationData
	}
	if patch.AssistanceType != nil {
		claim.AssistanceType = patch.AssistanceType
	}
	if patch.SafetyStatus != nil {
		claim.SafetyStatus = patch.SafetyStatus
	}
	if patch.Confirmation != nil {
		claim.Confirmation = patch.Confirmation
	}
	if patch.Status != nil {
		claim.Status = *patch.Status
	}
	if patch.Transcription != nil {
		claim.Transcription = patch.Transcription
	}
	if patch.ConversationID != nil {
		claim.ConversationID = patch.ConversationID
	}
	if patch.Decision != nil {
		claim.Decision = patch.Decision
	}
}

func copyClaim(claim *entities.Claim) *entities.Claim {
	dup := *claim
	return &dup
}
