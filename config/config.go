// Package config loads observer settings from a YAML file and RELAY_*
// environment variables.
//
// Precedence, lowest first: Default, the YAML file, the environment. Nested
// sections map to prefixed variables, so console.filter.ignore_call in YAML
// is RELAY_CONSOLE_FILTER_IGNORE_CALL in the environment.
//
//	verbose: true
//	console:
//	  color: never
//	metrics:
//	  namespace: pipeline
//	  addr: ":9090"
//	yamllog:
//	  enabled: true
//	  path: events.log
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/rickchristie/relay"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "RELAY_"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Color modes for the console observer.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the full observer configuration.
type Config struct {
	// Verbose is the verbosity flag the pipeline passes to every emit.
	Verbose bool `yaml:"verbose" env:"VERBOSE"`

	Console ConsoleConfig `yaml:"console" envPrefix:"CONSOLE_"`
	YAMLLog YAMLLogConfig `yaml:"yamllog" envPrefix:"YAMLLOG_"`
	Slog    SlogConfig    `yaml:"slog" envPrefix:"SLOG_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Tracing TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
	Stream  StreamConfig  `yaml:"stream" envPrefix:"STREAM_"`
}

type ConsoleConfig struct {
	Enabled bool         `yaml:"enabled" env:"ENABLED"`
	Color   string       `yaml:"color" env:"COLOR"`
	Filter  relay.Filter `yaml:"filter" envPrefix:"FILTER_"`
}

type YAMLLogConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Path is the file to append to. Empty means stdout.
	Path   string       `yaml:"path" env:"PATH"`
	Filter relay.Filter `yaml:"filter" envPrefix:"FILTER_"`
}

type SlogConfig struct {
	Enabled bool         `yaml:"enabled" env:"ENABLED"`
	Level   string       `yaml:"level" env:"LEVEL"`
	Filter  relay.Filter `yaml:"filter" envPrefix:"FILTER_"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// Addr, when set, is where the demo serves /metrics.
	Addr   string       `yaml:"addr" env:"ADDR"`
	Filter relay.Filter `yaml:"filter" envPrefix:"FILTER_"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	TracerName  string `yaml:"tracer_name" env:"TRACER_NAME"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// Endpoint is an OTLP/HTTP collector address such as localhost:4318.
	// Empty keeps spans in process.
	Endpoint string       `yaml:"endpoint" env:"ENDPOINT"`
	Filter   relay.Filter `yaml:"filter" envPrefix:"FILTER_"`
}

type StreamConfig struct {
	Enabled bool         `yaml:"enabled" env:"ENABLED"`
	Filter  relay.Filter `yaml:"filter" envPrefix:"FILTER_"`
}

// Default returns the configuration used when nothing is set: console,
// metrics and stream observers enabled with their usual filters.
func Default() Config {
	return Config{
		Console: ConsoleConfig{
			Enabled: true,
			Color:   ColorAuto,
			Filter:  relay.Filter{IgnoreCall: true},
		},
		Slog: SlogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "relay",
			Filter:    relay.Filter{AlwaysVerbose: true},
		},
		Tracing: TracingConfig{
			TracerName:  "github.com/rickchristie/relay",
			ServiceName: "relay",
			Filter:      relay.Filter{AlwaysVerbose: true},
		},
		Stream: StreamConfig{
			Enabled: true,
			Filter:  relay.Filter{IgnoreChain: true, IgnoreAgent: true, AlwaysVerbose: true},
		},
	}
}

// Load returns Default overlaid with the YAML file at path (skipped when path
// is empty) and then with RELAY_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return finish(cfg, env.Options{Prefix: EnvPrefix})
}

// Parse is like Load but reads YAML from data and variables from environ
// instead of the file system and process environment. Keys in environ
// include the RELAY_ prefix.
func Parse(data []byte, environ map[string]string) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if environ == nil {
		environ = map[string]string{}
	}
	return finish(cfg, env.Options{Prefix: EnvPrefix, Environment: environ})
}

func finish(cfg Config, opts env.Options) (Config, error) {
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Console.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: console.color %q, want auto, always or never", ErrInvalid, c.Console.Color)
	}
	if _, err := c.Slog.SlogLevel(); err != nil {
		return fmt.Errorf("%w: slog.level: %v", ErrInvalid, err)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("%w: metrics.namespace is empty", ErrInvalid)
	}
	return nil
}

// SlogLevel parses Level. Empty means info.
func (s SlogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if s.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s.Level)); err != nil {
		return 0, err
	}
	return level, nil
}
