// Package telemetry configures OpenTelemetry tracing for unfold processes.
//
// The engine creates its spans through the global tracer provider; Setup
// installs a provider that exports them, and the returned shutdown function
// flushes pending spans.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// ExporterNone disables span export.
	ExporterNone = "none"

	// ExporterStdout writes spans as JSON.
	ExporterStdout = "stdout"
)

// ErrUnknownExporter is returned for unsupported exporter names.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// Config selects the exporter and the service identity.
type Config struct {
	// ServiceName identifies the process in exported spans.
	ServiceName string

	// ServiceVersion is the version string for this service.
	ServiceVersion string

	// Exporter is ExporterNone or ExporterStdout.
	Exporter string

	// Output receives stdout spans. Defaults to os.Stderr.
	Output io.Writer

	// PrettyPrint indents exported spans.
	PrettyPrint bool
}

// DefaultConfig returns a config with tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "unfold",
		ServiceVersion: "dev",
		Exporter:       ExporterNone,
	}
}

// Setup builds a tracer provider for cfg, installs it globally and returns
// it together with a shutdown function.
func Setup(ctx context.Context, cfg Config) (trace.TracerProvider, func(context.Context) error, error) {
	if ctx == nil {
		return nil, nil, errors.New("nil context")
	}

	switch cfg.Exporter {
	case ExporterNone, "":
		tp := noop.NewTracerProvider()
		return tp, func(context.Context) error { return nil }, nil
	case ExporterStdout:
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownExporter, cfg.Exporter)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(out)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return tp, tp.Shutdown, nil
}
