package domain

import (
	"encoding/json"
	"time"
)

// Snapshot is the single most-recent telemetry payload. The payload is
// opaque to the relay and overwritten wholesale on every device push.
type Snapshot struct {
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// TS returns the snapshot timestamp in Unix milliseconds, 0 when no
// telemetry has arrived yet.
func (s Snapshot) TS() int64 {
	if s.ReceivedAt.IsZero() {
		return 0
	}
	return s.ReceivedAt.UnixMilli()
}

// Settings are the mutable relay settings broadcast to viewers on change.
type Settings struct {
	DeviceName           string `json:"device_name"`
	StalenessThresholdMS int64  `json:"staleness_threshold_ms"`
}

type EventType string

const (
	EventInit     EventType = "init"
	EventUpdate   EventType = "update"
	EventOffline  EventType = "offline"
	EventSettings EventType = "settings"
)

// Event is the wire shape delivered to every connected viewer.
type Event struct {
	Type     EventType       `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	TS       int64           `json:"ts"`
	Settings *Settings       `json:"settings,omitempty"`
}

// InitEvent carries the current snapshot to a freshly connected viewer so
// it never has to wait for the next push.
func InitEvent(snap Snapshot) Event {
	return Event{Type: EventInit, Data: snap.Payload, TS: snap.TS()}
}

func UpdateEvent(snap Snapshot) Event {
	return Event{Type: EventUpdate, Data: snap.Payload, TS: snap.TS()}
}

// OfflineEvent reports the timestamp of the last telemetry seen before the
// source went stale.
func OfflineEvent(snap Snapshot) Event {
	return Event{Type: EventOffline, TS: snap.TS()}
}

func SettingsEvent(settings Settings, now time.Time) Event {
	return Event{Type: EventSettings, Settings: &settings, TS: now.UnixMilli()}
}
