package providers

import (
	"context"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
)

// DecisionNotifier pushes a finished claim decision to an out-of-band channel
// such as the claims desk's WhatsApp line. Returns the provider's message id.
type DecisionNotifier interface {
	NotifyDecision(ctx context.Context, claimID string, decision *entities.AgentDecision) (string, error)
}
