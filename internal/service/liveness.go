package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/probelink/probelink/internal/domain"
)

// LivenessMonitor watches telemetry staleness on a fixed interval. The
// check is level-triggered: every tick while the source is stale publishes
// another offline event, not just the first one.
type LivenessMonitor struct {
	scheduler gocron.Scheduler
	state     *TelemetryState
	relay     *Relay

	interval    time.Duration
	thresholdFn func() time.Duration
	logger      *slog.Logger

	started   bool
	startedMu sync.Mutex

	nowFn func() time.Time
}

// NewLivenessMonitor builds the monitor. thresholdFn is read on every tick
// so settings changes take effect without a restart.
func NewLivenessMonitor(state *TelemetryState, relay *Relay, interval time.Duration, thresholdFn func() time.Duration, logger *slog.Logger) (*LivenessMonitor, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	m := &LivenessMonitor{
		scheduler:   scheduler,
		state:       state,
		relay:       relay,
		interval:    interval,
		thresholdFn: thresholdFn,
		logger:      logger,
		nowFn:       time.Now,
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(m.runCheck),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("liveness-check"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Start begins ticking. Idempotent.
func (m *LivenessMonitor) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()
	if m.started {
		return
	}
	m.scheduler.Start()
	m.started = true
	m.logger.Info("liveness monitor started", "interval", m.interval)
}

// Stop shuts the scheduler down, waiting for a running check to finish.
func (m *LivenessMonitor) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false
	return m.scheduler.Shutdown()
}

func (m *LivenessMonitor) runCheck() {
	snap := m.state.Latest()
	age := m.nowFn().Sub(snap.ReceivedAt)
	if snap.ReceivedAt.IsZero() || age > m.thresholdFn() {
		m.relay.Publish(context.Background(), domain.OfflineEvent(snap))
		m.logger.Debug("telemetry source stale", "age", age)
	}
}
