package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/unfold/engine"
	"github.com/hupe1980/unfold/logging"
	"github.com/hupe1980/unfold/telemetry"
)

func TestDefaultIsValid(t *testing.T) {
	f := Default()
	require.NoError(t, f.Validate())

	cfg := f.EngineConfig()
	assert.Equal(t, engine.AlternativesComb, cfg.Alternatives)
	assert.Equal(t, engine.DefaultConfig.StateCacheSize, cfg.StateCacheSize)
	assert.Zero(t, cfg.MaxSteps)
}

func TestParse(t *testing.T) {
	doc := `
engine:
  max_steps: 500
  time_limit: 2s
  alternatives: exhaustive
  stop_on_first_defect: true
runner:
  max_concurrent_runs: 8
logging:
  level: debug
  format: json
reports:
  dir: /tmp/reports
metrics:
  addr: "localhost:9090"
tracing:
  exporter: stdout
server:
  addr: "0.0.0.0:8081"
  rate_limit: 0
`
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	cfg := f.EngineConfig()
	assert.Equal(t, 500, cfg.MaxSteps)
	assert.Equal(t, 2*time.Second, cfg.TimeLimit)
	assert.Equal(t, engine.AlternativesExhaustive, cfg.Alternatives)
	assert.True(t, cfg.StopOnFirstDefect)
	assert.Equal(t, int64(4096), cfg.StateCacheSize, "unset fields keep defaults")

	assert.Equal(t, 8, f.Runner.MaxConcurrentRuns)
	assert.Equal(t, "/tmp/reports", f.Reports.Dir)
	assert.Equal(t, "localhost:9090", f.Metrics.Addr)
	assert.Equal(t, "0.0.0.0:8081", f.Server.Addr)
	assert.Zero(t, f.Server.RateLimit)
	assert.Equal(t, 20, f.Server.Burst)

	tc := f.TelemetryConfig("v1", &bytes.Buffer{})
	assert.Equal(t, telemetry.ExporterStdout, tc.Exporter)
	assert.Equal(t, "v1", tc.ServiceVersion)

	var buf bytes.Buffer
	lc, err := f.LoggerConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, logging.LogLevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestParseEmpty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "engine:\n  max_stepz: 1\n"},
		{"bad strategy", "engine:\n  alternatives: random\n"},
		{"negative steps", "engine:\n  max_steps: -1\n"},
		{"zero concurrency", "runner:\n  max_concurrent_runs: 0\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"bad metrics addr", "metrics:\n  addr: nope\n"},
		{"malformed", "engine: [\n"},
		{"bad exporter", "tracing:\n  exporter: jaeger\n"},
		{"zero retention", "server:\n  retain_runs: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unfold.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  max_steps: 7\n"), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, f.Engine.MaxSteps)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
