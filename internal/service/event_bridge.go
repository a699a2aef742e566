package service

import (
	"context"

	"github.com/probelink/probelink/internal/domain"
)

// EventBridge mirrors relay events across instances. A single-instance
// deployment uses the noop implementation; the Redis one lets several
// relays fan out the same stream.
type EventBridge interface {
	Publish(ctx context.Context, ev domain.Event) error
	Subscribe(ctx context.Context, handler func(domain.Event)) error
}

// NoopEventBridge discards publishes and never delivers.
type NoopEventBridge struct{}

func (NoopEventBridge) Publish(context.Context, domain.Event) error { return nil }

func (NoopEventBridge) Subscribe(ctx context.Context, _ func(domain.Event)) error {
	<-ctx.Done()
	return ctx.Err()
}
