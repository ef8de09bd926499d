package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/logging"
)

// ErrRunNotFound is returned by Cancel for unknown or finished runs.
var ErrRunNotFound = errors.New("run not found")

// Options holds configuration overrides passed to New().
type Options struct {
	// MaxConcurrentRuns limits how many checks execute at the same time.
	// Runs beyond the limit wait for a slot.
	MaxConcurrentRuns int

	// FailFast makes CheckAll stop the remaining programs after the first
	// checker error. Defects found in a program are not checker errors.
	FailFast bool

	// Logging services.
	Logger logging.Logger
}

// Runner schedules verification runs on a checker. Public methods are safe
// for concurrent use.
type Runner struct {
	checker core.Checker

	maxConcurrentRuns int
	failFast          bool
	logger            logging.Logger

	slots chan struct{}

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(checker core.Checker, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 4,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxConcurrentRuns <= 0 {
		opts.MaxConcurrentRuns = 1
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Runner{
		checker:           checker,
		maxConcurrentRuns: opts.MaxConcurrentRuns,
		failFast:          opts.FailFast,
		logger:            opts.Logger,
		slots:             make(chan struct{}, opts.MaxConcurrentRuns),
		activeRuns:        make(map[string]context.CancelFunc),
	}
}

// Run starts an asynchronous check of p. Exactly one value is delivered on
// either the result or the error channel, after which both are closed.
func (r *Runner) Run(ctx context.Context, p core.Program) (string, <-chan *core.Result, <-chan error, error) {
	if p == nil {
		return "", nil, nil, errors.New("program is nil")
	}

	runID := uuid.NewString()

	resultCh := make(chan *core.Result, 1)
	errorsCh := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)
	r.register(runID, cancel)

	go func() {
		defer func() { close(resultCh); close(errorsCh) }()

		res, err := r.check(ctx, runID, p)

		// The run is no longer cancellable once its outcome is visible.
		cancel()
		r.unregister(runID)

		if err != nil {
			errorsCh <- err
			return
		}

		resultCh <- res
	}()

	return runID, resultCh, errorsCh, nil
}

// Check runs p synchronously under a fresh run id. Cancel works on the id
// while the check is executing.
func (r *Runner) Check(ctx context.Context, p core.Program) (*core.Result, error) {
	if p == nil {
		return nil, errors.New("program is nil")
	}

	runID := uuid.NewString()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.register(runID, cancel)
	defer r.unregister(runID)

	return r.check(ctx, runID, p)
}

// CheckAll verifies programs with at most MaxConcurrentRuns in flight and
// returns their results in input order. Programs whose check failed have a
// nil result; the errors are joined. With FailFast the first error cancels
// the remaining programs.
func (r *Runner) CheckAll(ctx context.Context, programs []core.Program) ([]*core.Result, error) {
	results := make([]*core.Result, len(programs))
	errs := make([]error, len(programs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrentRuns)

	for i, p := range programs {
		g.Go(func() error {
			res, err := r.Check(gctx, p)
			results[i] = res
			errs[i] = err

			if err != nil && r.failFast {
				return err
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	return results, errors.Join(errs...)
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	cancel()

	return nil
}

// Active returns the ids of runs that have not finished, sorted.
func (r *Runner) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.activeRuns))
	for id := range r.activeRuns {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

func (r *Runner) register(runID string, cancel context.CancelFunc) {
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()
}

func (r *Runner) unregister(runID string) {
	r.mu.Lock()
	delete(r.activeRuns, runID)
	r.mu.Unlock()
}

func (r *Runner) check(ctx context.Context, runID string, p core.Program) (*core.Result, error) {
	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		// nothing was explored yet
		reason := "canceled"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "time limit exceeded"
		}
		r.logger.Debug("runner check canceled while queued", "run_id", runID, "program", p.Name(), "reason", reason)
		return &core.Result{RunID: runID, Program: p.Name(), Incomplete: true, IncompleteReason: reason}, nil
	}
	defer func() { <-r.slots }()

	r.logger.Debug("runner starting check", "run_id", runID, "program", p.Name())

	res, err := r.checker.Check(core.WithRunID(ctx, runID), p)
	if err != nil {
		r.logger.Error("runner check failed", "run_id", runID, "program", p.Name(), "error", err)
		return res, fmt.Errorf("check %s: %w", p.Name(), err)
	}

	r.logger.Debug("runner finished check",
		"run_id", runID,
		"program", p.Name(),
		"maximal", res.MaximalConfigurations,
		"defects", len(res.Defects),
		"incomplete", res.Incomplete,
	)

	return res, nil
}
