package providers

import (
	"context"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
)

// LogBus is the per-claim ordered log sequence with dual consumption modes:
// full-history reads and live subscription. Appends must never block on a slow
// subscriber; delivery to live queues is best effort.
type LogBus interface {
	// Append records a log entry for a claim and fans it out to any live
	// subscribers without blocking.
	Append(claimID, message string, severity entities.LogSeverity)

	// History returns all entries recorded for a claim, in append order.
	History(claimID string) []entities.ClaimLogEntry

	// Subscribe returns a channel that first replays the claim's full history
	// and then yields new entries as they arrive. The subscription is removed
	// when ctx is cancelled; stream state survives for reconnection.
	Subscribe(ctx context.Context, claimID string) (<-chan entities.ClaimLogEntry, error)

	// MarkComplete appends the sentinel entry that closes live streams for the
	// claim. Called exactly once per orchestration finish, success or failure.
	MarkComplete(claimID string)

	// Close shuts the bus down and closes all subscriber channels.
	Close() error
}

// LogChannelPrefix namespaces per-claim channels on fanout backends.
const LogChannelPrefix = "claim:logs:"

// GetClaimLogChannel returns the fanout channel name for a claim.
func GetClaimLogChannel(claimID string) string {
	return LogChannelPrefix + claimID
}
