package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/probelink/probelink/internal/config"
	"github.com/probelink/probelink/internal/domain"
	"github.com/probelink/probelink/internal/http/handler"
	"github.com/probelink/probelink/internal/http/router"
	"github.com/probelink/probelink/internal/observability"
	"github.com/probelink/probelink/internal/repository"
	"github.com/probelink/probelink/internal/service"
)

// App wires every component of the relay together: the session layer, the
// telemetry state, the broadcast relay, the liveness monitor and the HTTP
// surface.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Monitor       *service.LivenessMonitor
	Relay         *service.Relay
	Bridge        service.EventBridge
	Observability *observability.Runtime
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, runtime *observability.Runtime) (*App, error) {
	guard := service.NewLoginGuard(cfg.AuthUsername, cfg.AuthPassword, service.LoginGuardPolicy{
		FailureThreshold: cfg.GuardFailureThreshold,
		Cooldown:         cfg.GuardCooldown,
	})
	store := service.NewSessionStore(service.SessionStoreConfig{
		Lifetime:             cfg.SessionLifetime,
		DeviceLimit:          cfg.DeviceLimit,
		TrustedDeviceEnabled: cfg.TrustedDeviceEnabled,
	})
	state := service.NewTelemetryState()

	var bridge service.EventBridge = service.NoopEventBridge{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		bridge = service.NewRedisEventBridge(client, logger)
		logger.Info("event bridge enabled", "addr", cfg.RedisAddr)
	}

	relay := service.NewRelay(state.Latest, bridge, logger)
	settings := service.NewSettingsService(domain.Settings{
		DeviceName:           cfg.DeviceName,
		StalenessThresholdMS: cfg.StalenessThreshold.Milliseconds(),
	}, relay)

	monitor, err := service.NewLivenessMonitor(state, relay, cfg.LivenessInterval, settings.StalenessThreshold, logger)
	if err != nil {
		return nil, fmt.Errorf("create liveness monitor: %w", err)
	}

	var history repository.LoginHistoryRepository
	db, err := repository.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	history = repository.NewLoginHistoryRepository(db)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(guard, store, history, logger),
		SessionHandler:   handler.NewSessionHandler(store, history),
		TelemetryHandler: handler.NewTelemetryHandler(state, relay),
		SettingsHandler:  handler.NewSettingsHandler(settings),
		StreamHandler:    handler.NewStreamHandler(relay, store, cfg.GateWebSocket, logger),
		SessionStore:     store,
		Relay:            relay,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		EnableOTelHTTP:   cfg.OTELHTTPEnabled,
	})

	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        &http.Server{Addr: cfg.HTTPAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second},
		Monitor:       monitor,
		Relay:         relay,
		Bridge:        bridge,
		Observability: runtime,
	}, nil
}

// Run serves until ctx is cancelled, then drains the HTTP server and
// stops the liveness monitor.
func (a *App) Run(ctx context.Context) error {
	a.Monitor.Start()
	defer func() {
		if err := a.Monitor.Stop(); err != nil {
			a.Logger.Warn("liveness monitor shutdown failed", "error", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Config.HTTPAddr)
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := a.Bridge.Subscribe(ctx, a.Relay.DeliverRemote)
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
