package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/providers"
)

// subscriberBuffer bounds each live queue. A full or slow subscriber drops
// entries rather than backpressuring the decision pipeline; observability is
// best effort by contract.
const subscriberBuffer = 64

// MemoryLogBus is the in-process implementation of the per-claim log bus.
// History is append-only and survives subscriber churn; a reconnecting
// consumer always replays from the start.
type MemoryLogBus struct {
	mu          sync.Mutex
	history     map[string][]entities.ClaimLogEntry
	subscribers map[string]map[chan entities.ClaimLogEntry]struct{}
	closed      bool
}

// NewMemoryLogBus creates a new in-memory log bus.
func NewMemoryLogBus() *MemoryLogBus {
	return &MemoryLogBus{
		history:     make(map[string][]entities.ClaimLogEntry),
		subscribers: make(map[string]map[chan entities.ClaimLogEntry]struct{}),
	}
}

var _ providers.LogBus = (*MemoryLogBus)(nil)

// Append records a log entry and fans it out to live subscribers without
// blocking.
func (b *MemoryLogBus) Append(claimID, message string, severity entities.LogSeverity) {
	b.append(claimID, message, severity)
}

// append exists so fanout adapters can inject remotely received entries.
func (b *MemoryLogBus) append(claimID, message string, severity entities.LogSeverity) entities.ClaimLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return entities.ClaimLogEntry{}
	}

	entry := entities.ClaimLogEntry{
		ClaimID:   claimID,
		Sequence:  len(b.history[claimID]) + 1,
		Timestamp: time.Now().UTC(),
		Type:      severity,
		Message:   message,
	}
	b.history[claimID] = append(b.history[claimID], entry)

	for ch := range b.subscribers[claimID] {
		select {
		case ch <- entry:
		default:
			// Subscriber queue full, skip entry
		}
	}
	return entry
}

// History returns a copy of all entries recorded for the claim, in order.
func (b *MemoryLogBus) History(claimID string) []entities.ClaimLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.history[claimID]
	out := make([]entities.ClaimLogEntry, len(entries))
	copy(out, entries)
	return out
}

// Subscribe returns a channel that replays the claim's full history and then
// yields live entries. The subscription ends when ctx is cancelled; history
// is untouched so the consumer can reconnect and replay again.
func (b *MemoryLogBus) Subscribe(ctx context.Context, claimID string) (<-chan entities.ClaimLogEntry, error) {
	b.mu.Lock()
	history := b.history[claimID]

	// Capacity covers the full replay so history pushes can never block or
	// drop; only live entries are subject to the drop policy.
	ch := make(chan entities.ClaimLogEntry, len(history)+subscriberBuffer)
	for _, entry := range history {
		ch <- entry
	}

	if b.subscribers[claimID] == nil {
		b.subscribers[claimID] = make(map[chan entities.ClaimLogEntry]struct{})
	}
	b.subscribers[claimID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.removeSubscriber(claimID, ch)
	}()

	return ch, nil
}

// MarkComplete appends the sentinel entry that closes live streams for the
// claim.
func (b *MemoryLogBus) MarkComplete(claimID string) {
	b.append(claimID, "processing complete", entities.LogSeverityComplete)
}

// Close closes all subscriber channels and stops accepting appends.
func (b *MemoryLogBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for claimID, subs := range b.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(b.subscribers, claimID)
	}
	return nil
}

func (b *MemoryLogBus) removeSubscriber(claimID string, ch chan entities.ClaimLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, exists := b.subscribers[claimID]
	if !exists {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}

	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(b.subscribers, claimID)
	}
	log.Debug().Str("claim_id", claimID).Int("remaining", len(subs)).Msg("log subscriber removed")
}
