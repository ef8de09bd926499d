package program

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/unfold/core"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Program is a validated model program. It is safe for concurrent use; every
// session it hands out is independent.
type Program struct {
	spec        Spec
	varNames    []string
	transitions [][]*Transition
}

var _ core.Program = (*Program)(nil)

// New validates spec and compiles it into a program.
func New(spec Spec) (*Program, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	if err := spec.check(); err != nil {
		return nil, err
	}

	varNames := slices.Sorted(maps.Keys(spec.Variables))
	p := &Program{spec: spec, varNames: varNames}

	for pi, proc := range spec.Processes {
		ts := make([]*Transition, len(proc.Steps))
		for i, st := range proc.Steps {
			ts[i] = &Transition{
				id:      fmt.Sprintf("%s#%d", proc.Name, i),
				process: pi,
				index:   i,
				step:    st,
				varIdx:  indexOf(varNames, st.Var),
				mutex:   indexOf(spec.Mutexes, st.Mutex),
			}
		}
		p.transitions = append(p.transitions, ts)
	}
	return p, nil
}

func indexOf(names []string, name string) int {
	if name == "" {
		return -1
	}
	return slices.Index(names, name)
}

// Name implements core.Program.
func (p *Program) Name() string { return p.spec.Name }

// Spec returns the description the program was built from.
func (p *Program) Spec() Spec { return p.spec }

// Transition returns the transition of step index of process proc.
func (p *Program) Transition(proc, index int) *Transition {
	return p.transitions[proc][index]
}

// NewSession implements core.Program.
func (p *Program) NewSession() core.Session {
	return &Session{program: p}
}

// Session executes a Program. States are immutable, so a session may branch
// from any state it produced.
type Session struct {
	program *Program
}

var (
	_ core.Session           = (*Session)(nil)
	_ core.Replayer          = (*Session)(nil)
	_ core.FinalStateChecker = (*Session)(nil)
)

// Initial implements core.Session.
func (s *Session) Initial(ctx context.Context) (core.State, error) {
	spec := s.program.spec
	vars := make([]int, len(s.program.varNames))
	for i, name := range s.program.varNames {
		vars[i] = spec.Variables[name]
	}
	owners := make([]int, len(spec.Mutexes))
	for i := range owners {
		owners[i] = free
	}
	regs := make([]map[string]int, len(spec.Processes))
	return newState(make([]int, len(spec.Processes)), vars, owners, regs), nil
}

// EnabledTransitions implements core.Session. A lock is enabled only while
// its mutex is free.
func (s *Session) EnabledTransitions(ctx context.Context, cs core.State) ([]core.Transition, error) {
	st, err := s.state(cs)
	if err != nil {
		return nil, err
	}
	var out []core.Transition
	for p, ts := range s.program.transitions {
		pc := st.pcs[p]
		if pc >= len(ts) {
			continue
		}
		t := ts[pc]
		if t.step.Op == OpLock && st.owners[t.mutex] != free {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Execute implements core.Session.
func (s *Session) Execute(ctx context.Context, cs core.State, ct core.Transition) (core.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := s.state(cs)
	if err != nil {
		return nil, err
	}
	t, ok := ct.(*Transition)
	if !ok {
		return nil, fmt.Errorf("%w: foreign transition %s", ErrNotEnabled, ct.ID())
	}
	if st.pcs[t.process] != t.index {
		return nil, fmt.Errorf("%w: %s", ErrNotEnabled, t.id)
	}

	next := st.clone()
	switch t.step.Op {
	case OpWrite:
		next.vars[t.varIdx] = t.step.Value
	case OpAdd:
		next.vars[t.varIdx] += t.step.Value
	case OpRead:
		regs := maps.Clone(next.regs[t.process])
		if regs == nil {
			regs = map[string]int{}
		}
		regs[t.step.Reg] = next.vars[t.varIdx]
		next.regs[t.process] = regs
	case OpAssert:
		if got := st.vars[t.varIdx]; got != t.step.Value {
			return nil, fmt.Errorf("%w: %s: %s is %d, want %d", core.ErrAssertionFailed, t.id, t.step.Var, got, t.step.Value)
		}
	case OpLock:
		if next.owners[t.mutex] != free {
			return nil, fmt.Errorf("%w: %s", ErrNotEnabled, t.id)
		}
		next.owners[t.mutex] = t.process
	case OpUnlock:
		if next.owners[t.mutex] != t.process {
			return nil, fmt.Errorf("%w: %s on %s", ErrUnlockNotHeld, t.id, t.step.Mutex)
		}
		next.owners[t.mutex] = free
	}
	next.pcs[t.process]++
	next.key = next.computeKey()
	return next, nil
}

// Replay implements core.Replayer. Steps have no effect outside the state, so
// replaying is executing.
func (s *Session) Replay(ctx context.Context, cs core.State, t core.Transition) (core.State, error) {
	return s.Execute(ctx, cs, t)
}

// IsFinal implements core.FinalStateChecker: every process ran to completion.
func (s *Session) IsFinal(cs core.State) bool {
	st, err := s.state(cs)
	if err != nil {
		return false
	}
	for p, ts := range s.program.transitions {
		if st.pcs[p] < len(ts) {
			return false
		}
	}
	return true
}

func (s *Session) state(cs core.State) (*State, error) {
	st, ok := cs.(*State)
	if !ok {
		return nil, fmt.Errorf("program %s: foreign state %T", s.program.Name(), cs)
	}
	return st, nil
}
