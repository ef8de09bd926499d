package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/unfolding"
)

type phase uint8

const (
	// phaseEnter computes the extensions and descends into C ∪ {e}.
	phaseEnter phase = iota
	// phaseAlternative searches an alternative to D ∪ {e}.
	phaseAlternative
	// phaseRemove retires what the explored event left behind.
	phaseRemove
	// phaseDone pops the frame.
	phaseDone
)

// frame is one explore(C, D, A) call. ex accumulates ex(C); last is the
// event C grew by and whose extensions are still to be built.
type frame struct {
	conf   unfolding.Configuration
	done   unfolding.EventSet
	alt    unfolding.EventSet
	state  core.State
	ex     unfolding.EventSet
	last   *unfolding.Event
	chosen *unfolding.Event
	phase  phase
}

type explorerParams struct {
	runID     string
	program   string
	session   core.Session
	initial   core.State
	cfg       Config
	reporter  core.Reporter
	callbacks *CallbackManager
	logger    *loggerAdapter
	tracer    trace.Tracer
}

// explorer holds the state of one verification run. It is single-threaded.
type explorer struct {
	explorerParams

	final   core.FinalStateChecker
	store   *unfolding.Store
	oracle  *stateOracle
	limiter *core.StepLimiter
	result  *core.Result

	// failing events already reported as defects
	reported map[unfolding.EventID]bool
	stopped  bool
}

func newExplorer(p explorerParams) (*explorer, error) {
	store := unfolding.NewStore(p.initial)
	oracle, err := newStateOracle(store, p.session, p.cfg.StateCacheSize)
	if err != nil {
		return nil, err
	}
	final, _ := p.session.(core.FinalStateChecker)
	return &explorer{
		explorerParams: p,
		final:          final,
		store:          store,
		oracle:         oracle,
		limiter:        core.NewStepLimiter(p.cfg.MaxSteps),
		result:         &core.Result{RunID: p.runID, Program: p.program},
		reported:       map[unfolding.EventID]bool{},
	}, nil
}

func (x *explorer) close() {
	x.oracle.close()
}

// run explores from the configuration holding only the root.
func (x *explorer) run(ctx context.Context) (*core.Result, error) {
	stack := []*frame{{
		conf:  unfolding.NewConfiguration(),
		state: x.initial,
		last:  x.store.Root(),
		phase: phaseEnter,
	}}

	var err error
	for len(stack) > 0 && !x.stopped {
		if cerr := ctx.Err(); cerr != nil {
			x.interrupt(cerr)
			break
		}

		top := stack[len(stack)-1]
		var child *frame
		switch top.phase {
		case phaseEnter:
			child, err = x.enter(ctx, top)
		case phaseAlternative:
			child, err = x.alternative(ctx, top)
		case phaseRemove:
			err = x.remove(ctx, top.chosen, top.conf, top.done)
			top.phase = phaseDone
		case phaseDone:
			stack = stack[:len(stack)-1]
		}

		if err != nil {
			if isInterruption(err) {
				x.interrupt(err)
				break
			}
			if errors.Is(err, core.ErrBudgetExhausted) {
				x.incomplete(err.Error())
				break
			}
			x.finish()
			return x.result, err
		}
		if child != nil {
			stack = append(stack, child)
		}
	}

	x.finish()
	return x.result, nil
}

func (x *explorer) finish() {
	stats := x.store.Stats()
	x.result.EventsCreated = stats.Created
	x.result.EventsRetired = stats.Retirements
	x.result.Steps = x.limiter.Count()
}

func (x *explorer) interrupt(err error) {
	reason := "canceled"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "time limit exceeded"
	}
	x.incomplete(reason)
}

func (x *explorer) incomplete(reason string) {
	x.result.Incomplete = true
	x.result.IncompleteReason = reason
	x.logger.LogWarn("Exploration incomplete", "reason", reason, "steps", x.limiter.Count())
}

// enter performs steps 1 to 5 of explore(C, D, A): budget check, extension,
// maximality, choice and execution. It returns the frame of C ∪ {e}.
func (x *explorer) enter(ctx context.Context, f *frame) (*frame, error) {
	if err := x.limiter.Increment(); err != nil {
		return nil, err
	}
	exploreStepsTotal.Inc()

	if x.cfg.CheckInvariants {
		if err := x.checkConfiguration("explore", f); err != nil {
			return nil, err
		}
	}

	enC, err := x.extend(ctx, f)
	if err != nil {
		return nil, err
	}

	if enC.IsEmpty() {
		f.phase = phaseDone
		return nil, x.reportMaximal(ctx, f)
	}

	e, err := x.choose(f, enC)
	if err != nil {
		return nil, err
	}
	if e == nil {
		// sleep-blocked: everything enabled was explored from here already
		f.phase = phaseDone
		return nil, nil
	}
	f.chosen = e
	f.phase = phaseAlternative

	next, err := x.execute(ctx, f, e)
	if err != nil {
		// only a failed session execution is a defect of the program
		if failure := e.Failure(); failure != nil {
			return nil, x.reportFailure(ctx, e, failure)
		}
		return nil, err
	}

	return &frame{
		conf:  f.conf.Plus(e),
		done:  f.done,
		alt:   f.alt.Without(e.ID()),
		state: next,
		ex:    f.ex,
		last:  e,
		phase: phaseEnter,
	}, nil
}

// choose picks the next event: the smallest of enC ∩ A when an alternative is
// being followed, otherwise the smallest of enC \ D. A nil event means the
// branch is sleep-blocked.
func (x *explorer) choose(f *frame, enC unfolding.EventSet) (*unfolding.Event, error) {
	if !f.alt.IsEmpty() {
		id, ok := enC.Intersect(f.alt).Min()
		if !ok {
			return nil, &core.InvariantError{
				Op:            "choose",
				Detail:        "no enabled event of the alternative",
				Configuration: f.conf.Events().Ints(),
				Done:          f.done.Ints(),
				Alternative:   f.alt.Ints(),
			}
		}
		return x.store.Event(id), nil
	}

	id, ok := enC.Minus(f.done).Min()
	if !ok {
		return nil, nil
	}
	return x.store.Event(id), nil
}

// alternative performs steps 6 and 7: J = computeAlt(C, D ∪ {e}) and, when
// J exists, the frame of explore(C, D ∪ {e}, J \ C).
func (x *explorer) alternative(ctx context.Context, f *frame) (*frame, error) {
	f.phase = phaseRemove
	done := f.done.With(f.chosen.ID())

	j, err := x.computeAlt(ctx, f.conf, done)
	if err != nil || j.IsEmpty() {
		return nil, err
	}

	if x.cfg.CheckInvariants && !x.store.IsConfig(f.conf.Events().Union(j)) {
		return nil, &core.InvariantError{
			Op:            "alternative",
			Detail:        "C ∪ J is not a configuration",
			Configuration: f.conf.Events().Ints(),
			Done:          done.Ints(),
			Alternative:   j.Ints(),
		}
	}

	return &frame{
		conf:  f.conf,
		done:  done,
		alt:   j.Minus(f.conf.Events()),
		state: f.state,
		ex:    f.ex,
		phase: phaseEnter,
	}, nil
}

func (x *explorer) checkConfiguration(op string, f *frame) error {
	if x.store.IsConfig(f.conf.Events()) && f.conf.Frontier().Equal(x.store.Maximal(f.conf.Events())) {
		return nil
	}
	return &core.InvariantError{
		Op:            op,
		Detail:        "not a configuration",
		Configuration: f.conf.Events().Ints(),
		Done:          f.done.Ints(),
		Alternative:   f.alt.Ints(),
	}
}

// execute returns the state of C ∪ {e}. The first time e is chosen it is
// executed through the session; afterwards the state is rebuilt by replay.
func (x *explorer) execute(ctx context.Context, f *frame, e *unfolding.Event) (core.State, error) {
	if err := e.Failure(); err != nil {
		return nil, err
	}

	next := f.conf.Events().With(e.ID())
	st, ok := x.oracle.lookup(next)
	if !ok {
		var err error
		if e.IsExecuted() {
			st, err = x.replay(ctx, f, e)
		} else {
			st, err = x.executeOnce(ctx, f, e)
		}
		if err != nil {
			return nil, err
		}
		x.oracle.remember(next, st)
	}

	if next.Equal(e.Local()) && !e.IsBound() {
		if err := e.Bind(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// executeOnce runs the one session execution of e, from the state of C.
func (x *explorer) executeOnce(ctx context.Context, f *frame, e *unfolding.Event) (core.State, error) {
	if err := e.MarkExecuted(); err != nil {
		return nil, err
	}

	cc := &CallbackContext{RunID: x.runID, Program: x.program, Event: e, Configuration: f.conf.Events()}
	if err := x.callbacks.ExecuteCallbacks(ctx, CallbackBeforeExecute, cc); err != nil {
		return nil, err
	}

	start := time.Now()
	st, err := x.session.Execute(ctx, f.state, e.Transition())
	transitionsExecutedTotal.Inc()
	x.logger.LogExecution(e.TransitionID(), int(e.ID()), time.Since(start), err)
	if err != nil {
		if !isInterruption(err) {
			e.Fail(err)
		}
		return nil, err
	}

	cc.Configuration = f.conf.Events().With(e.ID())
	if err := x.callbacks.ExecuteCallbacks(ctx, CallbackAfterExecute, cc); err != nil {
		return nil, err
	}
	return st, nil
}

// replay rebuilds the state of C ∪ {e} for an event executed before. An
// event that once succeeded must succeed again.
func (x *explorer) replay(ctx context.Context, f *frame, e *unfolding.Event) (core.State, error) {
	st, err := x.oracle.replay(ctx, f.state, e)
	if err == nil || isInterruption(err) {
		return st, err
	}
	return nil, &core.InvariantError{
		Op:            "replay",
		Detail:        fmt.Sprintf("%s failed after succeeding once: %v", e, err),
		Configuration: f.conf.Events().Ints(),
		Done:          f.done.Ints(),
		Alternative:   f.alt.Ints(),
	}
}

// trace renders the events of set, root excluded, in id order. Causes always
// carry smaller ids than their effects, so the order respects causality.
func (x *explorer) trace(set unfolding.EventSet) core.Trace {
	t := core.Trace{RunID: x.runID, Program: x.program, Steps: make([]core.Step, 0, set.Len())}
	for id := range set.All() {
		e := x.store.Event(id)
		if e.IsRoot() {
			continue
		}
		t.Steps = append(t.Steps, core.Step{
			Event:      int(id),
			Transition: e.TransitionID(),
			Causes:     e.Causes().Without(unfolding.Root).Ints(),
		})
	}
	return t
}

func (x *explorer) reportMaximal(ctx context.Context, f *frame) error {
	if x.final != nil && !x.final.IsFinal(f.state) {
		return x.reportDefect(ctx, x.trace(f.conf.Events()), f.conf.Events(), core.ErrDeadlock)
	}

	tr := x.trace(f.conf.Events())
	x.result.MaximalConfigurations++
	maximalConfigurationsTotal.Inc()
	x.logger.LogDebug("Maximal configuration", "trace", tr.String(), "length", tr.Len())

	if x.reporter != nil {
		if err := x.reporter.ReportMaximal(ctx, tr); err != nil {
			return fmt.Errorf("report maximal configuration: %w", err)
		}
	}
	return x.callbacks.ExecuteCallbacks(ctx, CallbackOnMaximal, &CallbackContext{
		RunID: x.runID, Program: x.program, Configuration: f.conf.Events(), Trace: &tr,
	})
}

// reportFailure reports the failed execution of e with the causal trace
// [e]. A failing event is reported once, however many configurations it is
// enabled in.
func (x *explorer) reportFailure(ctx context.Context, e *unfolding.Event, err error) error {
	if x.reported[e.ID()] {
		return nil
	}
	x.reported[e.ID()] = true
	local := e.Local()
	return x.reportDefect(ctx, x.trace(local), local, err)
}

func (x *explorer) reportDefect(ctx context.Context, tr core.Trace, set unfolding.EventSet, cause error) error {
	x.result.Defects = append(x.result.Defects, core.Defect{Trace: tr, Cause: cause})
	defectsTotal.WithLabelValues(defectKind(cause)).Inc()
	x.logger.LogDefect(tr.String(), tr.Len(), cause)
	trace.SpanFromContext(ctx).AddEvent("defect", trace.WithAttributes(
		attribute.String("unfold.trace", tr.String()),
		attribute.Int("unfold.trace_length", tr.Len()),
		attribute.String("unfold.cause", cause.Error()),
	))

	if x.reporter != nil {
		if err := x.reporter.ReportDefect(ctx, tr, cause); err != nil {
			return fmt.Errorf("report defect: %w", err)
		}
	}
	if err := x.callbacks.ExecuteCallbacks(ctx, CallbackOnDefect, &CallbackContext{
		RunID: x.runID, Program: x.program, Configuration: set, Trace: &tr, Err: cause,
	}); err != nil {
		return err
	}

	if x.cfg.StopOnFirstDefect {
		x.stopped = true
		x.incomplete("stopped at first defect")
	}
	return nil
}
