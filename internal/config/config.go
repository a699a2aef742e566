package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full runtime configuration, loaded from the environment.
type Config struct {
	HTTPAddr string
	LogDebug bool

	// Viewer credentials. Compared verbatim at login; the relay keeps the
	// original's plaintext credential model.
	AuthUsername string
	AuthPassword string

	SessionLifetime      time.Duration
	DeviceLimit          int
	TrustedDeviceEnabled bool

	GuardFailureThreshold int
	GuardCooldown         time.Duration

	LivenessInterval   time.Duration
	StalenessThreshold time.Duration
	DeviceName         string

	// GateWebSocket requires a valid session token on the live stream.
	// Off by default, matching the ungated base variant.
	GateWebSocket bool

	APIRateLimitRPM int

	// RedisAddr enables the cross-instance event bridge when set.
	RedisAddr     string
	RedisPassword string

	// DatabaseDriver selects the login-history backend: "sqlite" or
	// "postgres".
	DatabaseDriver string
	DatabaseDSN    string

	OTELServiceName          string
	OTELEnvironment          string
	OTELExporterOTLPEndpoint string
	OTELExporterOTLPInsecure bool
	OTELMetricsEnabled       bool
	OTELTracesEnabled        bool
	OTELLogsEnabled          bool
	OTELHTTPEnabled          bool
}

// Load reads configuration from the environment, applying defaults and
// validating the result.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		HTTPAddr: getString("PROBELINK_HTTP_ADDR", ":10000"),
		LogDebug: getBool("PROBELINK_LOG_DEBUG", false, &errs),

		AuthUsername: getString("PROBELINK_AUTH_USERNAME", "admin"),
		AuthPassword: getString("PROBELINK_AUTH_PASSWORD", "admin"),

		SessionLifetime:      getDuration("PROBELINK_SESSION_LIFETIME", time.Hour, &errs),
		DeviceLimit:          getInt("PROBELINK_DEVICE_LIMIT", 5, &errs),
		TrustedDeviceEnabled: getBool("PROBELINK_TRUSTED_DEVICE_ENABLED", true, &errs),

		GuardFailureThreshold: getInt("PROBELINK_GUARD_FAILURE_THRESHOLD", 3, &errs),
		GuardCooldown:         getDuration("PROBELINK_GUARD_COOLDOWN", 30*time.Second, &errs),

		LivenessInterval:   getDuration("PROBELINK_LIVENESS_INTERVAL", 3*time.Second, &errs),
		StalenessThreshold: getDuration("PROBELINK_STALENESS_THRESHOLD", 10*time.Second, &errs),
		DeviceName:         getString("PROBELINK_DEVICE_NAME", "device"),

		GateWebSocket: getBool("PROBELINK_GATE_WEBSOCKET", false, &errs),

		APIRateLimitRPM: getInt("PROBELINK_API_RATE_LIMIT_RPM", 300, &errs),

		RedisAddr:     getString("PROBELINK_REDIS_ADDR", ""),
		RedisPassword: getString("PROBELINK_REDIS_PASSWORD", ""),

		DatabaseDriver: getString("PROBELINK_DB_DRIVER", "sqlite"),
		DatabaseDSN:    getString("PROBELINK_DB_DSN", "file:probelink.db?_pragma=busy_timeout(5000)"),

		OTELServiceName:          getString("OTEL_SERVICE_NAME", "probelink"),
		OTELEnvironment:          getString("OTEL_ENVIRONMENT", "dev"),
		OTELExporterOTLPEndpoint: getString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true, &errs),
		OTELMetricsEnabled:       getBool("OTEL_METRICS_ENABLED", false, &errs),
		OTELTracesEnabled:        getBool("OTEL_TRACES_ENABLED", false, &errs),
		OTELLogsEnabled:          getBool("OTEL_LOGS_ENABLED", false, &errs),
		OTELHTTPEnabled:          getBool("OTEL_HTTP_ENABLED", false, &errs),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.AuthUsername == "" || c.AuthPassword == "" {
		errs = append(errs, errors.New("auth username and password must be set"))
	}
	if c.SessionLifetime <= 0 {
		errs = append(errs, errors.New("session lifetime must be positive"))
	}
	if c.DeviceLimit <= 0 {
		errs = append(errs, errors.New("device limit must be positive"))
	}
	if c.LivenessInterval <= 0 || c.StalenessThreshold <= 0 {
		errs = append(errs, errors.New("liveness interval and staleness threshold must be positive"))
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DatabaseDriver))
	}
	return errors.Join(errs...)
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getInt(key string, def int, errs *[]error) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return n
}

func getBool(key string, def bool, errs *[]error) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return b
}

func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return d
}
