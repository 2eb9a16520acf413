// Package config provides configuration types, defaults and validation for pulse.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/pulse/internal/log"
	"github.com/zjrosen/pulse/internal/tracing"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration options for pulse.
type Config struct {
	// Budget is the number of events ProcessEvents may consume per tick.
	Budget int `mapstructure:"budget"`
	// Tick is the frame loop interval.
	Tick time.Duration `mapstructure:"tick"`
	// MaxTicks stops the frame loop after this many ticks. Zero means no limit.
	MaxTicks int `mapstructure:"max_ticks"`

	Debug    bool   `mapstructure:"debug"`
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error

	// History is the SQLite file `pulse run --record` appends results to.
	History string `mapstructure:"history"`

	Tracing tracing.Config `mapstructure:"tracing"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Budget:   16,
		Tick:     16 * time.Millisecond,
		MaxTicks: 1000,
		LogFile:  "debug.log",
		LogLevel: "debug",
		History:  ".pulse/history.db",
		Tracing:  tracing.DefaultConfig(),
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Budget < 0 {
		return fmt.Errorf("%w: budget must not be negative, got %d", ErrInvalidConfig, c.Budget)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("%w: tick must be positive, got %s", ErrInvalidConfig, c.Tick)
	}
	if c.MaxTicks < 0 {
		return fmt.Errorf("%w: max_ticks must not be negative, got %d", ErrInvalidConfig, c.MaxTicks)
	}
	if c.History == "" {
		return fmt.Errorf("%w: history path must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if !tracing.ValidExporter(c.Tracing.Exporter) {
		return fmt.Errorf("%w: unknown tracing exporter %q", ErrInvalidConfig, c.Tracing.Exporter)
	}
	if c.Tracing.Enabled && c.Tracing.Exporter == tracing.ExporterFile && c.Tracing.FilePath == "" {
		return fmt.Errorf("%w: tracing.file_path is required for the file exporter", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfigTemplate returns the YAML written for a fresh config file.
func DefaultConfigTemplate() string {
	d := Defaults()
	return fmt.Sprintf(`# pulse configuration

# Events ProcessEvents may consume per tick
budget: %d

# Frame loop interval and tick limit (0 = unlimited)
tick: %s
max_ticks: %d

# Debug logging
debug: false
log_file: %s
log_level: %s

# Run history written by 'pulse run --record'
history: %s

tracing:
  enabled: %t
  # none, file, stdout or otlp
  exporter: %s
  file_path: ""
  otlp_endpoint: %s
  sample_rate: %g
  service_name: %s
`, d.Budget, d.Tick, d.MaxTicks, d.LogFile, d.LogLevel, d.History,
		d.Tracing.Enabled, d.Tracing.Exporter, d.Tracing.OTLPEndpoint,
		d.Tracing.SampleRate, d.Tracing.ServiceName)
}

// WriteDefaultConfig writes DefaultConfigTemplate to configPath, creating
// parent directories.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
