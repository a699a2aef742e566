package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/probelink/probelink/internal/domain"
)

func newBridgeForTest(t *testing.T, mr *miniredis.Miniredis) *RedisEventBridge {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisEventBridge(client, discardLogger())
}

func TestRedisEventBridgeDeliversAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	sender := newBridgeForTest(t, mr)
	receiver := newBridgeForTest(t, mr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan domain.Event, 1)
	go receiver.Subscribe(ctx, func(ev domain.Event) {
		select {
		case received <- ev:
		default:
		}
	})

	// The subscription is established asynchronously, so publish until the
	// receiver sees an event or the deadline passes.
	want := domain.Event{Type: domain.EventUpdate, Data: json.RawMessage(`{"temp":21}`), TS: 42}
	deadline := time.After(2 * time.Second)
	for {
		if err := sender.Publish(ctx, want); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case got := <-received:
			if got.Type != want.Type || got.TS != want.TS || string(got.Data) != string(want.Data) {
				t.Fatalf("event mangled in transit: %+v", got)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for bridged event")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestRedisEventBridgeFiltersOwnEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	sender := newBridgeForTest(t, mr)
	receiver := newBridgeForTest(t, mr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	senderGot := make(chan domain.Event, 8)
	receiverGot := make(chan domain.Event, 8)
	go sender.Subscribe(ctx, func(ev domain.Event) { senderGot <- ev })
	go receiver.Subscribe(ctx, func(ev domain.Event) { receiverGot <- ev })

	deadline := time.After(2 * time.Second)
	for {
		if err := sender.Publish(ctx, domain.Event{Type: domain.EventUpdate, TS: 1}); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case <-receiverGot:
			// The other instance saw the event; the sender must not have
			// delivered its own copy.
			select {
			case ev := <-senderGot:
				t.Fatalf("sender received its own event: %+v", ev)
			default:
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for bridged event")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestRedisEventBridgeSubscribeStopsOnContextCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	bridge := newBridgeForTest(t, mr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Subscribe(ctx, func(domain.Event) {}) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}
