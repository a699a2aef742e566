package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/probelink/probelink/internal/domain"
)

// TelemetryState holds the single most-recent device payload. Pushes
// overwrite wholesale; there is no history and no payload validation.
type TelemetryState struct {
	mu   sync.RWMutex
	snap domain.Snapshot

	nowFn func() time.Time
}

func NewTelemetryState() *TelemetryState {
	return &TelemetryState{
		snap:  domain.Snapshot{Payload: json.RawMessage("{}")},
		nowFn: time.Now,
	}
}

// Push replaces the snapshot and returns the new value for the caller to
// hand to the relay.
func (t *TelemetryState) Push(payload json.RawMessage) domain.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = domain.Snapshot{Payload: payload, ReceivedAt: t.nowFn()}
	return t.snap
}

// Latest is a pure read of the current snapshot.
func (t *TelemetryState) Latest() domain.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
