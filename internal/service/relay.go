package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/probelink/probelink/internal/domain"
	"github.com/probelink/probelink/internal/observability"
)

const subscriberBuffer = 32

// Subscriber is one viewer's event feed. Events arrive on a buffered
// channel; a subscriber that stops draining is dropped by the relay on a
// later publish, and its channel closed.
type Subscriber struct {
	ch     chan domain.Event
	closed bool
}

// Events is the receive side of the feed. The channel is closed when the
// subscriber is unsubscribed or dropped.
func (s *Subscriber) Events() <-chan domain.Event { return s.ch }

// Relay fans telemetry and liveness events out to every connected viewer.
// Delivery never blocks: a subscriber whose buffer is full is treated as
// dead and removed, so one stuck viewer cannot stall the rest.
type Relay struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}

	snapshotFn func() domain.Snapshot
	mirror     EventBridge
	logger     *slog.Logger
}

// NewRelay builds a relay over the given snapshot source. The bridge, when
// non-nil, mirrors locally published events to other relay instances.
func NewRelay(snapshotFn func() domain.Snapshot, mirror EventBridge, logger *slog.Logger) *Relay {
	if mirror == nil {
		mirror = NoopEventBridge{}
	}
	return &Relay{
		subs:       make(map[*Subscriber]struct{}),
		snapshotFn: snapshotFn,
		mirror:     mirror,
		logger:     logger,
	}
}

// Subscribe registers a viewer and immediately queues an init event with
// the current snapshot, so a new viewer never waits for the next push.
func (r *Relay) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan domain.Event, subscriberBuffer)}
	init := domain.InitEvent(r.snapshotFn())

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	sub.ch <- init
	count := len(r.subs)
	r.mu.Unlock()

	r.logger.Debug("viewer subscribed", "subscribers", count)
	return sub
}

// Unsubscribe removes a viewer and closes its channel. Safe to call for a
// subscriber the relay already dropped.
func (r *Relay) Unsubscribe(sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(sub)
}

// Publish delivers an event to every registered subscriber and mirrors it
// across the bridge. Failure to reach one subscriber never affects the
// others.
func (r *Relay) Publish(ctx context.Context, ev domain.Event) {
	r.deliver(ev)
	if err := r.mirror.Publish(ctx, ev); err != nil {
		r.logger.Warn("event bridge publish failed", "type", string(ev.Type), "error", err)
	}
}

// DeliverRemote fans out an event received from another instance via the
// bridge, without mirroring it back.
func (r *Relay) DeliverRemote(ev domain.Event) {
	r.deliver(ev)
}

func (r *Relay) deliver(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sub := range r.subs {
		select {
		case sub.ch <- ev:
		default:
			// Buffer full: the viewer is gone or wedged. Drop it here
			// rather than tracking connection state eagerly.
			r.dropLocked(sub)
			r.logger.Debug("dropped stalled viewer", "subscribers", len(r.subs))
		}
	}
	observability.RecordRelayEvent(string(ev.Type), len(r.subs))
}

func (r *Relay) dropLocked(sub *Subscriber) {
	if _, ok := r.subs[sub]; !ok {
		return
	}
	delete(r.subs, sub)
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// SubscriberCount reports the current registry size.
func (r *Relay) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
