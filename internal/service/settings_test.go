package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/probelink/probelink/internal/domain"
)

func TestSettingsUpdateBroadcasts(t *testing.T) {
	state := NewTelemetryState()
	relay := NewRelay(state.Latest, nil, discardLogger())
	svc := NewSettingsService(domain.Settings{DeviceName: "probe", StalenessThresholdMS: 10_000}, relay)

	sub := relay.Subscribe()
	defer relay.Unsubscribe(sub)
	receiveEvent(t, sub)

	updated, err := svc.Update(context.Background(), domain.Settings{DeviceName: "greenhouse", StalenessThresholdMS: 30_000})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DeviceName != "greenhouse" {
		t.Fatalf("unexpected settings returned: %+v", updated)
	}

	ev := receiveEvent(t, sub)
	if ev.Type != domain.EventSettings {
		t.Fatalf("expected settings event, got %s", ev.Type)
	}
	if ev.Settings == nil || ev.Settings.StalenessThresholdMS != 30_000 {
		t.Fatalf("event should carry the new settings, got %+v", ev.Settings)
	}

	if got := svc.Get(); got.DeviceName != "greenhouse" {
		t.Fatalf("get should reflect the update, got %+v", got)
	}
	if got := svc.StalenessThreshold(); got != 30*time.Second {
		t.Fatalf("threshold should follow the update, got %s", got)
	}
}

func TestSettingsUpdateRejectsNonPositiveThreshold(t *testing.T) {
	state := NewTelemetryState()
	relay := NewRelay(state.Latest, nil, discardLogger())
	svc := NewSettingsService(domain.Settings{DeviceName: "probe", StalenessThresholdMS: 10_000}, relay)

	_, err := svc.Update(context.Background(), domain.Settings{DeviceName: "probe", StalenessThresholdMS: 0})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if got := svc.Get(); got.StalenessThresholdMS != 10_000 {
		t.Fatalf("rejected update must not change settings, got %+v", got)
	}
}
