package bridge

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/timzifer/kvbridge/internal/config"
	"github.com/timzifer/kvbridge/runtime/connections"
	"github.com/timzifer/kvbridge/telemetry"
)

// Option configures the runtime during construction.
type Option func(*settings) error

type settings struct {
	config            *config.Config
	configPath        string
	logger            zerolog.Logger
	customLogger      bool
	telemetry         telemetry.Collector
	telemetryProvided bool
	factory           connections.Factory
}

// WithLogger provides a custom logger instance for the runtime.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.logger = logger
		cfg.customLogger = true
		return nil
	}
}

// WithConfig supplies an already loaded configuration instance.
func WithConfig(cfgData *config.Config) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.config = cfgData
		return nil
	}
}

// WithConfigPath configures the runtime to load configuration data from the provided path.
func WithConfigPath(path string) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.configPath = strings.TrimSpace(path)
		return nil
	}
}

// WithTelemetry injects a collector instance overriding the default configuration-based behaviour.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if collector == nil {
			collector = telemetry.Noop()
		}
		cfg.telemetry = collector
		cfg.telemetryProvided = true
		return nil
	}
}

// WithConnectionFactory replaces the session factory used by CreateClient.
func WithConnectionFactory(factory connections.Factory) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if factory == nil {
			return errors.New("connection factory must not be nil")
		}
		cfg.factory = factory
		return nil
	}
}
