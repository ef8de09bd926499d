// Package unfold provides a high-level façade over the verification engine,
// the runner and the report stores. Most applications interact with this
// package by:
//  1. Creating an Unfold via New() (optionally overriding the in-memory report store)
//  2. Loading programs (program.Load) or implementing core.Program directly
//  3. Verifying them synchronously (Check, CheckAll) or asynchronously (Start)
//
// Every finding is persisted in the report store, so a run can be inspected
// after the fact with Reports.
package unfold

import (
	"context"

	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/engine"
	"github.com/hupe1980/unfold/logging"
	"github.com/hupe1980/unfold/report"
	"github.com/hupe1980/unfold/runner"
)

// Options configures the Unfold instance.
type Options struct {
	// EngineConfig holds the per-run exploration parameters.
	EngineConfig engine.Config

	// MaxConcurrentRuns limits the number of programs verified simultaneously.
	MaxConcurrentRuns int

	// FailFast stops CheckAll at the first checker error.
	FailFast bool

	// ReportStore receives every maximal configuration and defect. Defaults
	// to an in-memory store.
	ReportStore core.ReportStore

	// Callbacks are attached to every run.
	Callbacks []engine.Callback

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Unfold is the high-level façade aggregating the engine, runner and store.
type Unfold struct {
	opts     Options
	recorder *report.Recorder
	engine   *engine.Engine
	runner   *runner.Runner
}

// New creates a new Unfold instance with optional overrides.
func New(optFns ...func(o *Options)) *Unfold {
	opts := Options{
		EngineConfig:      engine.DefaultConfig,
		MaxConcurrentRuns: 4,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ReportStore == nil {
		opts.ReportStore = report.NewInMemoryStore()
	}

	recorder := report.NewRecorder(opts.ReportStore)

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Reporter = recorder
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})

	r := runner.New(e, func(o *runner.Options) {
		o.MaxConcurrentRuns = opts.MaxConcurrentRuns
		o.FailFast = opts.FailFast
		o.Logger = opts.Logger
	})

	return &Unfold{opts: opts, recorder: recorder, engine: e, runner: r}
}

// Check verifies a single program and waits for the result.
func (u *Unfold) Check(ctx context.Context, p core.Program) (*core.Result, error) {
	return u.runner.Check(ctx, p)
}

// CheckAll verifies programs concurrently; results follow input order.
func (u *Unfold) CheckAll(ctx context.Context, programs ...core.Program) ([]*core.Result, error) {
	return u.runner.CheckAll(ctx, programs)
}

// Start begins an asynchronous run and returns its id with result and
// error channels.
func (u *Unfold) Start(ctx context.Context, p core.Program) (string, <-chan *core.Result, <-chan error, error) {
	return u.runner.Run(ctx, p)
}

// Cancel stops a run started with Start, Check or CheckAll.
func (u *Unfold) Cancel(runID string) error {
	return u.runner.Cancel(runID)
}

// Reports returns the stored findings of a run.
func (u *Unfold) Reports(runID string) ([]core.Report, error) {
	return u.opts.ReportStore.List(runID)
}

// Engine exposes the underlying engine.
func (u *Unfold) Engine() *engine.Engine { return u.engine }
