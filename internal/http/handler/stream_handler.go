package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/probelink/probelink/internal/http/middleware"
	"github.com/probelink/probelink/internal/http/response"
	"github.com/probelink/probelink/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamHandler upgrades viewer connections and pumps relay events to
// them. The stream is ungated in the base configuration; a config flag
// requires a session token (sent as a header or `token` query parameter,
// since browser WebSocket clients cannot set custom headers).
type StreamHandler struct {
	relay    *service.Relay
	store    *service.SessionStore
	gated    bool
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewStreamHandler(relay *service.Relay, store *service.SessionStore, gated bool, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		relay:  relay,
		store:  store,
		gated:  gated,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The relay serves cross-origin viewers by design.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.gated {
		token := r.Header.Get(middleware.TokenHeader)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if h.store.Validate(token) == nil {
			response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	sub := h.relay.Subscribe()
	go h.readPump(conn, sub)
	go h.writePump(conn, sub)
}

// readPump discards inbound frames; its job is to notice the peer going
// away and release the subscription.
func (h *StreamHandler) readPump(conn *websocket.Conn, sub *service.Subscriber) {
	defer func() {
		h.relay.Unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) writePump(conn *websocket.Conn, sub *service.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				// Dropped by the relay.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
