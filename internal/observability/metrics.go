package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/probelink/probelink/internal/config"
)

type appMetrics struct {
	loginCounter     metric.Int64Counter
	relayCounter     metric.Int64Counter
	pushCounter      metric.Int64Counter
	sessionGCCounter metric.Int64Counter
}

var (
	metricsMu sync.RWMutex
	current   *appMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("probelink")
	loginCounter, err := meter.Int64Counter("auth.login.attempts")
	if err != nil {
		return nil, err
	}
	relayCounter, err := meter.Int64Counter("relay.events.published")
	if err != nil {
		return nil, err
	}
	pushCounter, err := meter.Int64Counter("telemetry.pushes")
	if err != nil {
		return nil, err
	}
	sessionGCCounter, err := meter.Int64Counter("sessions.removed")
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	current = &appMetrics{
		loginCounter:     loginCounter,
		relayCounter:     relayCounter,
		pushCounter:      pushCounter,
		sessionGCCounter: sessionGCCounter,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func load() *appMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return current
}

func RecordLoginAttempt(outcome string) {
	m := load()
	if m == nil {
		return
	}
	m.loginCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordRelayEvent(eventType string, subscribers int) {
	m := load()
	if m == nil {
		return
	}
	m.relayCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("type", eventType),
			attribute.Int("subscribers", subscribers),
		))
}

func RecordTelemetryPush() {
	m := load()
	if m == nil {
		return
	}
	m.pushCounter.Add(context.Background(), 1)
}

func RecordSessionRemoved(reason string) {
	m := load()
	if m == nil {
		return
	}
	m.sessionGCCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}
