// Package config loads unfold configuration files.
//
// A configuration file is YAML:
//
//	engine:
//	  max_steps: 100000
//	  time_limit: 30s
//	  alternatives: comb
//	  stop_on_first_defect: false
//	  state_cache_size: 4096
//	runner:
//	  max_concurrent_runs: 4
//	logging:
//	  level: info
//	  format: json
//	reports:
//	  dir: ./reports
//	metrics:
//	  addr: ":9090"
//	tracing:
//	  exporter: stdout
//	server:
//	  addr: "localhost:8080"
//	  rate_limit: 10
//	  burst: 20
//
// Omitted fields keep the defaults of Default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/unfold/engine"
	"github.com/hupe1980/unfold/logging"
	"github.com/hupe1980/unfold/telemetry"
)

// ErrInvalidConfig is returned for files that fail to decode or validate.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Engine mirrors engine.Config.
type Engine struct {
	MaxSteps          int           `yaml:"max_steps" validate:"gte=0"`
	TimeLimit         time.Duration `yaml:"time_limit" validate:"gte=0"`
	Alternatives      string        `yaml:"alternatives" validate:"oneof=comb exhaustive"`
	CheckInvariants   bool          `yaml:"check_invariants"`
	StopOnFirstDefect bool          `yaml:"stop_on_first_defect"`
	StateCacheSize    int64         `yaml:"state_cache_size" validate:"gte=0"`
}

// Runner configures batch verification.
type Runner struct {
	MaxConcurrentRuns int  `yaml:"max_concurrent_runs" validate:"gte=1,lte=1024"`
	FailFast          bool `yaml:"fail_fast"`
}

// Logging configures the structured logger.
type Logging struct {
	Level     string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format    string `yaml:"format" validate:"oneof=json text"`
	AddSource bool   `yaml:"add_source"`
}

// Reports configures where findings are persisted. An empty Dir keeps them
// in memory.
type Reports struct {
	Dir string `yaml:"dir"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Tracing configures OpenTelemetry span export.
type Tracing struct {
	Exporter string `yaml:"exporter" validate:"oneof=none stdout"`
	Pretty   bool   `yaml:"pretty"`
}

// Server configures the HTTP API of "unfold serve".
type Server struct {
	Addr string `yaml:"addr" validate:"hostname_port"`

	// RateLimit is the sustained number of run submissions per second.
	// Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`

	// Burst is the number of submissions allowed above RateLimit.
	Burst int `yaml:"burst" validate:"gte=0"`

	// RetainRuns bounds how many finished runs the server remembers.
	RetainRuns int `yaml:"retain_runs" validate:"gte=1"`
}

// File is the top level configuration document.
type File struct {
	Engine  Engine  `yaml:"engine"`
	Runner  Runner  `yaml:"runner"`
	Logging Logging `yaml:"logging"`
	Reports Reports `yaml:"reports"`
	Metrics Metrics `yaml:"metrics"`
	Tracing Tracing `yaml:"tracing"`
	Server  Server  `yaml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		Engine: Engine{
			Alternatives:   string(engine.DefaultConfig.Alternatives),
			StateCacheSize: engine.DefaultConfig.StateCacheSize,
		},
		Runner:  Runner{MaxConcurrentRuns: 4},
		Logging: Logging{Level: "info", Format: "text"},
		Tracing: Tracing{Exporter: "none"},
		Server:  Server{Addr: "localhost:8080", RateLimit: 10, Burst: 20, RetainRuns: 1000},
	}
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(r io.Reader) (File, error) {
	f := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := f.Validate(); err != nil {
		return File{}, err
	}

	return f, nil
}

// Load reads a configuration file.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config: %w", err)
	}

	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}

	return f, nil
}

// Validate checks field constraints.
func (f File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// EngineConfig maps the engine section onto engine.Config.
func (f File) EngineConfig() engine.Config {
	return engine.Config{
		MaxSteps:          f.Engine.MaxSteps,
		TimeLimit:         f.Engine.TimeLimit,
		Alternatives:      engine.AlternativeStrategy(f.Engine.Alternatives),
		CheckInvariants:   f.Engine.CheckInvariants,
		StopOnFirstDefect: f.Engine.StopOnFirstDefect,
		StateCacheSize:    f.Engine.StateCacheSize,
	}
}

// LoggerConfig maps the logging section onto a logging.LoggerConfig writing
// to out.
func (f File) LoggerConfig(out io.Writer) (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(f.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &logging.LoggerConfig{
		Level:       level,
		Format:      f.Logging.Format,
		Output:      out,
		AddSource:   f.Logging.AddSource,
		Component:   "unfold",
		CustomAttrs: map[string]any{},
	}, nil
}

// TelemetryConfig maps the tracing section onto a telemetry.Config writing
// to out.
func (f File) TelemetryConfig(version string, out io.Writer) telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Exporter = f.Tracing.Exporter
	cfg.PrettyPrint = f.Tracing.Pretty
	cfg.Output = out
	return cfg
}
