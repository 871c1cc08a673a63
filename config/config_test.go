package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/rickchristie/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.Verbose)
	assert.True(t, cfg.Console.Enabled)
	assert.Equal(t, relay.Filter{IgnoreCall: true}, cfg.Console.Filter)
	assert.False(t, cfg.YAMLLog.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "relay", cfg.Metrics.Namespace)
	assert.True(t, cfg.Metrics.Filter.AlwaysVerbose)
	assert.False(t, cfg.Tracing.Enabled)
	assert.True(t, cfg.Stream.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestParse_YAMLOverlaysDefaults(t *testing.T) {
	data := []byte(`
verbose: true
console:
  color: never
  filter:
    ignore_agent: true
yamllog:
  enabled: true
  path: events.log
`)

	cfg, err := Parse(data, nil)
	require.NoError(t, err)

	assert.True(t, cfg.Verbose)
	assert.Equal(t, ColorNever, cfg.Console.Color)
	assert.True(t, cfg.Console.Enabled, "unset keys keep their defaults")
	assert.Equal(t, relay.Filter{IgnoreCall: true, IgnoreAgent: true}, cfg.Console.Filter)
	assert.True(t, cfg.YAMLLog.Enabled)
	assert.Equal(t, "events.log", cfg.YAMLLog.Path)
	assert.Equal(t, "relay", cfg.Metrics.Namespace)
}

func TestParse_EnvironmentOverridesYAML(t *testing.T) {
	data := []byte("metrics:\n  namespace: from_yaml\n")
	environ := map[string]string{
		"RELAY_VERBOSE":                        "true",
		"RELAY_METRICS_NAMESPACE":              "from_env",
		"RELAY_CONSOLE_FILTER_IGNORE_CALL":     "false",
		"RELAY_STREAM_FILTER_ALWAYS_VERBOSE":   "false",
		"RELAY_TRACING_ENABLED":                "true",
		"RELAY_SLOG_LEVEL":                     "debug",
		"RELAY_YAMLLOG_PATH":                   "/tmp/relay.log",
		"RELAY_METRICS_FILTER_IGNORE_CHAIN":    "true",
		"UNPREFIXED_METRICS_NAMESPACE_IGNORED": "x",
	}

	cfg, err := Parse(data, environ)
	require.NoError(t, err)

	assert.True(t, cfg.Verbose)
	assert.Equal(t, "from_env", cfg.Metrics.Namespace)
	assert.False(t, cfg.Console.Filter.IgnoreCall)
	assert.False(t, cfg.Stream.Filter.AlwaysVerbose)
	assert.True(t, cfg.Stream.Filter.IgnoreChain)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "/tmp/relay.log", cfg.YAMLLog.Path)
	assert.Equal(t, relay.Filter{IgnoreChain: true, AlwaysVerbose: true}, cfg.Metrics.Filter)

	level, err := cfg.Slog.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		environ map[string]string
	}{
		{name: "bad color", data: "console:\n  color: rainbow\n"},
		{name: "bad slog level", data: "slog:\n  level: loud\n"},
		{name: "empty namespace", data: "metrics:\n  namespace: \"\"\n"},
		{name: "bad env bool", environ: map[string]string{"RELAY_VERBOSE": "maybe"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data), tc.environ)
			require.Error(t, err)
		})
	}
}

func TestParse_ValidationErrorsWrapErrInvalid(t *testing.T) {
	_, err := Parse([]byte("console:\n  color: rainbow\n"), nil)

	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("console: [unclosed"), nil)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream:\n  enabled: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Stream.Enabled)
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("RELAY_CONSOLE_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.Console.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSlogLevel_EmptyIsInfo(t *testing.T) {
	level, err := SlogConfig{}.SlogLevel()

	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}
