package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/probelink/probelink/internal/domain"
)

var ErrInvalidSettings = errors.New("staleness threshold must be positive")

// SettingsService holds the mutable relay settings and broadcasts a
// settings event on every change. Settings live in memory for the life of
// the process; persistence is a deployment concern outside the relay.
type SettingsService struct {
	mu      sync.RWMutex
	current domain.Settings
	relay   *Relay

	nowFn func() time.Time
}

func NewSettingsService(initial domain.Settings, relay *Relay) *SettingsService {
	return &SettingsService{current: initial, relay: relay, nowFn: time.Now}
}

func (s *SettingsService) Get() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update replaces the settings wholesale and fans the new value out to
// every connected viewer.
func (s *SettingsService) Update(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if settings.StalenessThresholdMS <= 0 {
		return domain.Settings{}, ErrInvalidSettings
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()

	s.relay.Publish(ctx, domain.SettingsEvent(settings, s.nowFn()))
	return settings, nil
}

// StalenessThreshold is read by the liveness monitor on every tick.
func (s *SettingsService) StalenessThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.current.StalenessThresholdMS) * time.Millisecond
}
