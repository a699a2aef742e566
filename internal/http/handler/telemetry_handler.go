package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/probelink/probelink/internal/domain"
	"github.com/probelink/probelink/internal/http/response"
	"github.com/probelink/probelink/internal/observability"
	"github.com/probelink/probelink/internal/service"
)

const maxPushBytes = 1 << 20

// TelemetryHandler accepts device pushes and serves the last snapshot.
// Pushes are unauthenticated: the device is trusted at the network level.
type TelemetryHandler struct {
	state *service.TelemetryState
	relay *service.Relay
}

func NewTelemetryHandler(state *service.TelemetryState, relay *service.Relay) *TelemetryHandler {
	return &TelemetryHandler{state: state, relay: relay}
}

// Push overwrites the snapshot and fans the update out. The payload is
// opaque; the only requirement is that it is valid JSON.
func (h *TelemetryHandler) Push(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPushBytes))
	if err != nil {
		response.Fail(w, r, http.StatusBadRequest, "unreadable_body")
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		response.Fail(w, r, http.StatusBadRequest, "malformed_payload")
		return
	}

	snap := h.state.Push(json.RawMessage(body))
	h.relay.Publish(r.Context(), domain.UpdateEvent(snap))
	observability.RecordTelemetryPush()

	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TelemetryHandler) Last(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Latest()
	type last struct {
		Data json.RawMessage `json:"data"`
		TS   int64           `json:"ts"`
	}
	response.JSON(w, r, http.StatusOK, last{Data: snap.Payload, TS: snap.TS()})
}
