package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/probelink/probelink/internal/domain"
	"github.com/probelink/probelink/internal/http/middleware"
	"github.com/probelink/probelink/internal/service"
)

type streamEnv struct {
	state *service.TelemetryState
	relay *service.Relay
	store *service.SessionStore
	url   string
}

func newStreamEnv(t *testing.T, gated bool) *streamEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	state := service.NewTelemetryState()
	relay := service.NewRelay(state.Latest, nil, logger)
	store := service.NewSessionStore(service.SessionStoreConfig{})
	h := NewStreamHandler(relay, store, gated, logger)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)

	return &streamEnv{
		state: state,
		relay: relay,
		store: store,
		url:   "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev domain.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestStreamDeliversInitThenUpdates(t *testing.T) {
	env := newStreamEnv(t, false)

	conn, _, err := websocket.DefaultDialer.Dial(env.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ev := readEvent(t, conn)
	if ev.Type != domain.EventInit {
		t.Fatalf("expected init first, got %s", ev.Type)
	}
	if string(ev.Data) != "{}" || ev.TS != 0 {
		t.Fatalf("empty relay should send an empty init, got %+v", ev)
	}

	snap := env.state.Push(json.RawMessage(`{"temp":21}`))
	env.relay.Publish(context.Background(), domain.UpdateEvent(snap))

	ev = readEvent(t, conn)
	if ev.Type != domain.EventUpdate {
		t.Fatalf("expected update, got %s", ev.Type)
	}
	if string(ev.Data) != `{"temp":21}` || ev.TS != snap.TS() {
		t.Fatalf("unexpected update event %+v", ev)
	}
}

func TestStreamDisconnectReleasesSubscription(t *testing.T) {
	env := newStreamEnv(t, false)

	conn, _, err := websocket.DefaultDialer.Dial(env.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readEvent(t, conn)
	if env.relay.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", env.relay.SubscriberCount())
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.relay.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamGateRejectsWithoutToken(t *testing.T) {
	env := newStreamEnv(t, true)

	_, resp, err := websocket.DefaultDialer.Dial(env.url, nil)
	if err == nil {
		t.Fatal("gated stream must refuse unauthenticated dials")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake refusal, got %+v", resp)
	}
}

func TestStreamGateAcceptsTokenViaHeaderOrQuery(t *testing.T) {
	env := newStreamEnv(t, true)
	token, _ := env.store.Login(service.LoginMetadata{DeviceID: "laptop"})

	header := http.Header{}
	header.Set(middleware.TokenHeader, token)
	conn, _, err := websocket.DefaultDialer.Dial(env.url, header)
	if err != nil {
		t.Fatalf("dial with header: %v", err)
	}
	readEvent(t, conn)
	conn.Close()

	conn, _, err = websocket.DefaultDialer.Dial(env.url+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial with query token: %v", err)
	}
	readEvent(t, conn)
	conn.Close()
}
