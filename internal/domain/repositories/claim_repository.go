package repositories

import (
	"context"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
)

// ClaimRepository defines claim record persistence. Get and Update return a
// nil claim (not an error) when the id is unknown; absence is an expected
// outcome, not a failure.
type ClaimRepository interface {
	Create(ctx context.Context) (*entities.Claim, error)
	Get(ctx context.Context, id string) (*entities.Claim, error)
	Update(ctx context.Context, id string, patch entities.ClaimPatch) (*entities.Claim, error)
}

// ConversationRepository persists conversation transcriptions keyed by the
// external conversation id.
type ConversationRepository interface {
	Save(ctx context.Context, conv *entities.ConversationTranscription) error
	Get(ctx context.Context, conversationID string) (*entities.ConversationTranscription, error)
	Latest(ctx context.Context) (*entities.ConversationTranscription, error)
}
