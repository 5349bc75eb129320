// Package config centralises runtime configuration helpers for the recycle library.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment identifies the runtime environment where the library operates.
type Environment string

const (
	// EnvDev marks the development environment.
	EnvDev Environment = "dev"
	// EnvStaging marks the staging environment.
	EnvStaging Environment = "staging"
	// EnvProd marks the production environment.
	EnvProd Environment = "prod"
)

// TelemetryConfig configures the OpenTelemetry metric pipeline.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector endpoint. Empty disables export.
	OTLPEndpoint string
	// ServiceName labels exported metrics.
	ServiceName string
	// MetricInterval controls the periodic reader export interval.
	MetricInterval time.Duration
	// InitTimeout bounds exporter construction including retries.
	InitTimeout time.Duration
}

// Settings contains the configuration tree loaded from defaults and overrides.
type Settings struct {
	Environment Environment
	// DefaultCapacity applies to pools whose manifest entry omits a capacity.
	// Zero means unbounded, which is the library default.
	DefaultCapacity int
	Telemetry       TelemetryConfig
}

// Default returns the default recycle configuration.
func Default() Settings {
	return Settings{
		Environment:     EnvProd,
		DefaultCapacity: 0,
		Telemetry: TelemetryConfig{
			OTLPEndpoint:   "",
			ServiceName:    "recycle",
			MetricInterval: 15 * time.Second,
			InitTimeout:    10 * time.Second,
		},
	}
}

// FromEnv loads configuration values from environment variables, overriding defaults.
func FromEnv() Settings {
	cfg := Default()
	if env := strings.TrimSpace(os.Getenv("RECYCLE_ENV")); env != "" {
		cfg.Environment = Environment(strings.ToLower(env))
	}
	if v := strings.TrimSpace(os.Getenv("RECYCLE_DEFAULT_CAPACITY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DefaultCapacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RECYCLE_OTLP_ENDPOINT")); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("RECYCLE_SERVICE_NAME")); v != "" {
		cfg.Telemetry.ServiceName = v
	}
	if v := strings.TrimSpace(os.Getenv("RECYCLE_METRIC_INTERVAL")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.Telemetry.MetricInterval = dur
		}
	}
	return cfg
}

// Option mutates Settings when applied via Apply.
type Option func(*Settings)

// Apply applies the provided Option set to a copy of the base Settings.
func Apply(base Settings, opts ...Option) Settings {
	cfg := base
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEnvironment configures the top-level environment.
func WithEnvironment(env Environment) Option {
	return func(s *Settings) {
		if env != "" {
			s.Environment = env
		}
	}
}

// WithDefaultCapacity overrides the fallback pool capacity. Negative values are ignored.
func WithDefaultCapacity(capacity int) Option {
	return func(s *Settings) {
		if capacity >= 0 {
			s.DefaultCapacity = capacity
		}
	}
}

// WithTelemetryEndpoint overrides the OTLP collector endpoint.
func WithTelemetryEndpoint(endpoint string) Option {
	endpoint = strings.TrimSpace(endpoint)
	return func(s *Settings) {
		if endpoint != "" {
			s.Telemetry.OTLPEndpoint = endpoint
		}
	}
}

// WithServiceName overrides the telemetry service name.
func WithServiceName(name string) Option {
	name = strings.TrimSpace(name)
	return func(s *Settings) {
		if name != "" {
			s.Telemetry.ServiceName = name
		}
	}
}
