package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/providers"
)

// RedisLogBus layers Redis pub/sub fanout over the in-memory bus so log
// entries appended on one replica reach subscribers connected to another.
// History and live-subscriber semantics stay local; Redis only mirrors
// appends between processes.
type RedisLogBus struct {
	core   *MemoryLogBus
	client *redis.Client
	origin string
	cancel context.CancelFunc
}

type fanoutEnvelope struct {
	Origin   string `json:"origin"`
	ClaimID  string `json:"claim_id"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// NewRedisLogBus creates a fanout bus over the given Redis client and starts
// mirroring remote appends into the local history.
func NewRedisLogBus(client *redis.Client) *RedisLogBus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisLogBus{
		core:   NewMemoryLogBus(),
		client: client,
		origin: uuid.New().String(),
		cancel: cancel,
	}
	go b.receive(ctx)
	return b
}

var _ providers.LogBus = (*RedisLogBus)(nil)

// Append records locally and publishes the entry for other replicas.
func (b *RedisLogBus) Append(claimID, message string, severity entities.LogSeverity) {
	b.core.Append(claimID, message, severity)
	b.publish(claimID, message, severity)
}

// History returns the locally accumulated history for the claim.
func (b *RedisLogBus) History(claimID string) []entities.ClaimLogEntry {
	return b.core.History(claimID)
}

// Subscribe delegates to the local bus; remote entries arrive via mirroring.
func (b *RedisLogBus) Subscribe(ctx context.Context, claimID string) (<-chan entities.ClaimLogEntry, error) {
	return b.core.Subscribe(ctx, claimID)
}

// MarkComplete closes streams locally and propagates the sentinel.
func (b *RedisLogBus) MarkComplete(claimID string) {
	b.core.MarkComplete(claimID)
	b.publish(claimID, "processing complete", entities.LogSeverityComplete)
}

// Close stops mirroring and shuts down the local bus.
func (b *RedisLogBus) Close() error {
	b.cancel()
	return b.core.Close()
}

func (b *RedisLogBus) publish(claimID, message string, severity entities.LogSeverity) {
	payload, err := json.Marshal(fanoutEnvelope{
		Origin:   b.origin,
		ClaimID:  claimID,
		Message:  message,
		Severity: string(severity),
	})
	if err != nil {
		return
	}
	// Fanout is best effort like local delivery; a publish failure must not
	// disturb the pipeline.
	if err := b.client.Publish(context.Background(), providers.GetClaimLogChannel(claimID), payload).Err(); err != nil {
		log.Warn().Err(err).Str("claim_id", claimID).Msg("log fanout publish failed")
	}
}

func (b *RedisLogBus) receive(ctx context.Context) {
	pubsub := b.client.PSubscribe(ctx, providers.LogChannelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var envelope fanoutEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("failed to decode fanout entry")
				continue
			}
			if envelope.Origin == b.origin {
				continue
			}
			b.core.append(envelope.ClaimID, envelope.Message, entities.LogSeverity(envelope.Severity))
		}
	}
}
