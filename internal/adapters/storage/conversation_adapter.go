package storage

import (
	"context"
	"sync"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/repositories"
)

// ConversationAdapter implements ConversationRepository with the same
// memory-plus-file layout as the claim adapter. Saves overwrite the stored
// transcription wholesale; webhook re-delivery is expected.
type ConversationAdapter struct {
	store Store
	mu    sync.RWMutex
	cache map[string]*entities.ConversationTranscription
}

// NewConversationAdapter creates a new conversation repository over the store.
func NewConversationAdapter(store Store) *ConversationAdapter {
	return &ConversationAdapter{
		store: store,
		cache: make(map[string]*entities.ConversationTranscription),
	}
}

var _ repositories.ConversationRepository = (*ConversationAdapter)(nil)

// Save persists the conversation record and refreshes the cache.
func (a *ConversationAdapter) Save(ctx context.Context, conv *entities.ConversationTranscription) error {
	if err := a.store.Put(conv.ConversationID, conv); err != nil {
		return err
	}

	dup := *conv
	a.mu.Lock()
	a.cache[conv.ConversationID] = &dup
	a.mu.Unlock()
	return nil
}

// Get returns the conversation from cache or disk, nil when absent.
func (a *ConversationAdapter) Get(ctx context.Context, conversationID string) (*entities.ConversationTranscription, error) {
	a.mu.RLock()
	conv, ok := a.cache[conversationID]
	a.mu.RUnlock()
	if ok {
		dup := *conv
		return &dup, nil
	}

	var loaded entities.ConversationTranscription
	found, err := a.store.Get(conversationID, &loaded)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	a.mu.Lock()
	a.cache[conversationID] = &loaded
	a.mu.Unlock()

	dup := loaded
	return &dup, nil
}

// Latest returns the most recently received conversation across cache and
// disk, nil when none exist.
func (a *ConversationAdapter) Latest(ctx context.Context) (*entities.ConversationTranscription, error) {
	ids, err := a.store.List()
	if err != nil {
		return nil, err
	}

	var latest *entities.ConversationTranscription
	for _, id := range ids {
		conv, err := a.Get(ctx, id)
		if err != nil || conv == nil {
			continue
		}
		if latest == nil || conv.ReceivedAt.After(latest.ReceivedAt) {
			latest = conv
		}
	}

	// Cache may hold entries written before this process restarted the store
	// directory scan; prefer whichever is newest.
	a.mu.RLock()
	for _, conv := range a.cache {
		if latest == nil || conv.ReceivedAt.After(latest.ReceivedAt) {
			dup := *conv
			latest = &dup
		}
	}
	a.mu.RUnlock()

	return latest, nil
}
