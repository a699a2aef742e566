package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/probelink/probelink/internal/domain"
)

const bridgeChannel = "probelink:relay:events"

type bridgeEnvelope struct {
	InstanceID string       `json:"instance_id"`
	Event      domain.Event `json:"event"`
}

// RedisEventBridge mirrors relay events over Redis Pub/Sub. Each bridge
// tags envelopes with its own instance ID and filters them out on receipt
// so locally published events are not delivered twice.
type RedisEventBridge struct {
	client     *redis.Client
	logger     *slog.Logger
	instanceID string
}

func NewRedisEventBridge(client *redis.Client, logger *slog.Logger) *RedisEventBridge {
	return &RedisEventBridge{
		client:     client,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

func (b *RedisEventBridge) Publish(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(bridgeEnvelope{InstanceID: b.instanceID, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal bridge envelope: %w", err)
	}
	if err := b.client.Publish(ctx, bridgeChannel, data).Err(); err != nil {
		return fmt.Errorf("publish bridge event: %w", err)
	}
	return nil
}

// Subscribe blocks delivering remote events to handler until ctx ends,
// reconnecting with backoff if the Redis subscription drops.
func (b *RedisEventBridge) Subscribe(ctx context.Context, handler func(domain.Event)) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		err := b.consume(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warn("event bridge disconnected, reconnecting", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (b *RedisEventBridge) consume(ctx context.Context, handler func(domain.Event)) error {
	pubsub := b.client.Subscribe(ctx, bridgeChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", bridgeChannel, err)
	}
	b.logger.Info("event bridge subscribed", "channel", bridgeChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("malformed bridge envelope", "error", err)
				continue
			}
			if env.InstanceID == b.instanceID {
				continue
			}
			handler(env.Event)
		}
	}
}
