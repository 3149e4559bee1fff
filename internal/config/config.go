package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvConfigPath = "KVBRIDGE_CONFIG"
	EnvLogLevel   = "KVBRIDGE_LOG_LEVEL"
)

// Defaults applied by Normalize.
const (
	DefaultMaxInflight    = 1000
	DefaultRequestTimeout = 250 * time.Millisecond
	DefaultConnectTimeout = 5 * time.Second
	DefaultCloseTimeout   = 5 * time.Second
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	return d.parse(raw)
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// UnmarshalJSON parses the same strings as UnmarshalYAML. It is used for
// configuration exported from CUE.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	return d.parse(raw)
}

// MarshalJSON renders the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *Duration) parse(raw string) error {
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if dur < 0 {
		return fmt.Errorf("parse duration %q: must not be negative", raw)
	}
	d.Duration = dur
	return nil
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled  bool              `yaml:"enabled" json:"enabled"`
	URL      string            `yaml:"url" json:"url"`
	Labels   map[string]string `yaml:"labels" json:"labels"`
	// MinLevel is the lowest level shipped to Loki. Defaults to info.
	MinLevel string            `yaml:"min_level" json:"min_level"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level" json:"level"`
	Format string     `yaml:"format" json:"format"`
	Loki   LokiConfig `yaml:"loki" json:"loki"`
}

// TelemetryConfig toggles metric collection.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Provider string `yaml:"provider" json:"provider"`
}

// Config is the process level configuration of the bridge runtime. It is
// distinct from the per-connection request a host sends to create_client.
type Config struct {
	// Workers sizes the shared callback pool.
	Workers int `yaml:"workers" json:"workers"`
	// QueueSize bounds completions waiting for a worker.
	QueueSize int `yaml:"queue_size" json:"queue_size"`
	// LaneConcurrency caps how many workers one client may occupy.
	LaneConcurrency int `yaml:"lane_concurrency" json:"lane_concurrency"`
	// MaxInflight caps outstanding commands per client.
	MaxInflight    int      `yaml:"max_inflight" json:"max_inflight"`
	RequestTimeout Duration `yaml:"request_timeout" json:"request_timeout"`
	ConnectTimeout Duration `yaml:"connect_timeout" json:"connect_timeout"`
	CloseTimeout   Duration `yaml:"close_timeout" json:"close_timeout"`

	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`

	// Source is the file the configuration was loaded from, if any.
	Source string `yaml:"-" json:"-"`
}

// Default returns a normalized configuration without reading any file.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills unset fields with their defaults.
func (c *Config) Normalize() {
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.QueueSize <= 0 {
		c.QueueSize = c.Workers * 64
	}
	if c.LaneConcurrency <= 0 {
		c.LaneConcurrency = c.Workers / 4
		if c.LaneConcurrency < 1 {
			c.LaneConcurrency = 1
		}
	}
	if c.MaxInflight <= 0 {
		c.MaxInflight = DefaultMaxInflight
	}
	if c.RequestTimeout.Duration <= 0 {
		c.RequestTimeout.Duration = DefaultRequestTimeout
	}
	if c.ConnectTimeout.Duration <= 0 {
		c.ConnectTimeout.Duration = DefaultConnectTimeout
	}
	if c.CloseTimeout.Duration <= 0 {
		c.CloseTimeout.Duration = DefaultCloseTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Load reads and decodes the configuration file from disk. Files ending in
// .cue are validated against the embedded schema; everything else is YAML.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg *Config
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		cfg, err = decodeCUE(path, raw)
	} else {
		cfg, err = decodeYAML(raw)
	}
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	cfg.Source = path
	cfg.Normalize()
	return cfg, nil
}

func decodeYAML(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// FromEnv loads the file named by KVBRIDGE_CONFIG, or the defaults when it is
// unset, and applies KVBRIDGE_LOG_LEVEL.
func FromEnv() (*Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}
