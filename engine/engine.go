package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/logging"
)

// AlternativeStrategy selects how alternatives to explored events are searched.
type AlternativeStrategy string

const (
	// AlternativesComb picks one immediately conflicting event per explored
	// event. It is the default.
	AlternativesComb AlternativeStrategy = "comb"

	// AlternativesExhaustive enumerates subsets of the possibly useful events.
	// It is exponential and meant for small programs and cross-checking.
	AlternativesExhaustive AlternativeStrategy = "exhaustive"
)

// Config defines tuning parameters for a verification run.
//
// Example:
//
//	cfg := Config{
//	    MaxSteps:     100000,
//	    TimeLimit:    time.Minute,
//	    Alternatives: AlternativesComb,
//	}
type Config struct {
	// MaxSteps bounds the number of explore frames entered per run. Zero
	// means unbounded. A run that reaches the bound returns an incomplete
	// result.
	MaxSteps int

	// TimeLimit bounds the wall clock duration of a run. Zero means unbounded.
	TimeLimit time.Duration

	// Alternatives selects the alternative search strategy.
	Alternatives AlternativeStrategy

	// CheckInvariants validates every configuration and alternative the
	// search produces. Violations abort the run with a *core.InvariantError.
	// Expensive; intended for tests and debugging.
	CheckInvariants bool

	// StopOnFirstDefect ends the run at the first defect. The result is then
	// marked incomplete.
	StopOnFirstDefect bool

	// StateCacheSize is the number of configuration states kept to shorten
	// state replays. Zero disables the cache.
	StateCacheSize int64
}

// DefaultConfig provides the default run configuration:
//   - MaxSteps: 0 (unbounded)
//   - TimeLimit: 0 (unbounded)
//   - Alternatives: AlternativesComb
//   - StateCacheSize: 4096
var DefaultConfig = Config{
	Alternatives:   AlternativesComb,
	StateCacheSize: 4096,
}

// Options configures an Engine instance using the functional options pattern.
//
// Example:
//
//	e := New(func(o *Options) {
//	    o.Config.MaxSteps = 10000
//	    o.Logger = logger
//	})
type Options struct {
	// Config contains operational parameters for runs.
	// Defaults to DefaultConfig if not specified.
	Config Config

	// Reporter receives maximal configurations and defects as they are found.
	// Optional; the Result of Check always summarises them.
	Reporter core.Reporter

	// Callbacks are registered on every run.
	Callbacks []Callback

	// Logger provides structured logging for debugging and monitoring.
	// Defaults to NoOp logger if nil.
	Logger logging.Logger

	// TracerProvider creates the tracer for run spans. Defaults to the global
	// OpenTelemetry provider; set Tracing to false to disable spans.
	TracerProvider trace.TracerProvider

	// Tracing enables OpenTelemetry spans.
	Tracing bool
}

// Engine verifies programs by unfolding-based partial order reduction.
//
// An Engine holds configuration only; every call to Check builds a fresh
// event structure, so one Engine may verify several programs concurrently.
type Engine struct {
	opts      Options
	callbacks *CallbackManager
	tracer    trace.Tracer
}

var _ core.Checker = (*Engine)(nil)

// New creates an engine with optional configuration.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:  DefaultConfig,
		Tracing: true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config.Alternatives == "" {
		opts.Config.Alternatives = AlternativesComb
	}

	callbacks := NewCallbackManager()
	for _, cb := range opts.Callbacks {
		callbacks.RegisterCallback(cb)
	}

	var tp trace.TracerProvider = noop.NewTracerProvider()
	if opts.Tracing {
		tp = opts.TracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
	}

	return &Engine{
		opts:      opts,
		callbacks: callbacks,
		tracer:    tp.Tracer("github.com/hupe1980/unfold/engine"),
	}
}

// Config returns the run configuration.
func (e *Engine) Config() Config {
	return e.opts.Config
}

// Check explores every behaviourally distinct maximal execution of p.
//
// Defects of the program are part of the Result; the returned error is
// reserved for failures of the checker itself (session initialisation, a
// reporter or callback error, an internal invariant violation). A run that
// exhausts its budget or is cancelled returns an incomplete Result and a nil
// error.
//
// The run id is taken from the context (core.WithRunID) or generated.
func (e *Engine) Check(ctx context.Context, p core.Program) (*core.Result, error) {
	runID, ok := core.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
	}

	if e.opts.Config.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Config.TimeLimit)
		defer cancel()
	}

	ctx, span := e.tracer.Start(ctx, "unfold.check",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("unfold.run_id", runID),
			attribute.String("unfold.program", p.Name()),
			attribute.String("unfold.alternatives", string(e.opts.Config.Alternatives)),
		),
	)
	defer span.End()

	logger := newLoggerAdapter(e.opts.Logger, runID, p.Name())
	start := time.Now()

	res, err := e.check(ctx, runID, p, logger)
	if res != nil {
		res.Duration = time.Since(start)
		span.SetAttributes(
			attribute.Int("unfold.maximal_configurations", res.MaximalConfigurations),
			attribute.Int("unfold.defects", len(res.Defects)),
			attribute.Int("unfold.steps", res.Steps),
			attribute.Bool("unfold.incomplete", res.Incomplete),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	recordRun(res, err)
	if res != nil {
		logger.LogRun(res.MaximalConfigurations, len(res.Defects), res.Steps, res.Duration, res.Incomplete, err)
	} else {
		logger.LogRun(0, 0, 0, time.Since(start), false, err)
	}
	return res, err
}

func (e *Engine) check(ctx context.Context, runID string, p core.Program, logger *loggerAdapter) (*core.Result, error) {
	session := p.NewSession()
	if session == nil {
		return nil, fmt.Errorf("program %s: nil session", p.Name())
	}

	initial, err := session.Initial(ctx)
	if err != nil {
		return nil, fmt.Errorf("program %s: initial state: %w", p.Name(), err)
	}

	x, err := newExplorer(explorerParams{
		runID:     runID,
		program:   p.Name(),
		session:   session,
		initial:   initial,
		cfg:       e.opts.Config,
		reporter:  e.opts.Reporter,
		callbacks: e.callbacks,
		logger:    logger,
		tracer:    e.tracer,
	})
	if err != nil {
		return nil, err
	}
	defer x.close()

	return x.run(ctx)
}

// isInterruption reports whether err comes from cancellation or a deadline.
func isInterruption(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
