package testutil

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/hupe1980/unfold/core"
)

// ScriptedSession runs independent threads, each a fixed sequence of
// transitions. Transitions listed in failures return their error when executed.
//
// Example:
//
//	s := NewScriptedSession().
//	    Thread(T("a", "x")).
//	    Thread(T("b", "x")).
//	    Fail("b", core.ErrAssertionFailed)
type ScriptedSession struct {
	threads  [][]Transition
	failures map[string]error

	mu       sync.Mutex
	executed map[string]int
	replayed map[string]int
}

var (
	_ core.Session           = (*ScriptedSession)(nil)
	_ core.Replayer          = (*ScriptedSession)(nil)
	_ core.FinalStateChecker = (*ScriptedSession)(nil)
	_ core.Program           = (*ScriptedSession)(nil)
)

// NewScriptedSession creates an empty session.
func NewScriptedSession() *ScriptedSession {
	return &ScriptedSession{failures: map[string]error{}, executed: map[string]int{}, replayed: map[string]int{}}
}

// Thread appends a thread running ts in order (chainable). Steps of one
// thread share a per-thread resource, so they are mutually dependent.
func (s *ScriptedSession) Thread(ts ...Transition) *ScriptedSession {
	own := "thread:" + strconv.Itoa(len(s.threads))
	th := make([]Transition, len(ts))
	for i, t := range ts {
		th[i] = Transition{Name: t.Name, Resources: append(slices.Clone(t.Resources), own)}
	}
	s.threads = append(s.threads, th)
	return s
}

// Fail makes the named transition fail with err (chainable).
func (s *ScriptedSession) Fail(name string, err error) *ScriptedSession {
	s.failures[name] = err
	return s
}

// Executions returns how often the named transition was executed.
func (s *ScriptedSession) Executions(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executed[name]
}

// TotalExecutions returns how many Execute calls the session served.
func (s *ScriptedSession) TotalExecutions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.executed {
		n += c
	}
	return n
}

// Replays returns how often the named transition was replayed.
func (s *ScriptedSession) Replays(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replayed[name]
}

// Name implements core.Program.
func (s *ScriptedSession) Name() string { return "scripted" }

// NewSession implements core.Program. The session is shared, so execution
// counts accumulate across runs.
func (s *ScriptedSession) NewSession() core.Session { return s }

// ScriptedState holds the program counter of every thread.
type ScriptedState []int

// Key implements core.State.
func (st ScriptedState) Key() string {
	parts := make([]string, len(st))
	for i, pc := range st {
		parts[i] = strconv.Itoa(pc)
	}
	return strings.Join(parts, ",")
}

// Initial implements core.Session.
func (s *ScriptedSession) Initial(context.Context) (core.State, error) {
	return make(ScriptedState, len(s.threads)), nil
}

// EnabledTransitions implements core.Session.
func (s *ScriptedSession) EnabledTransitions(_ context.Context, cs core.State) ([]core.Transition, error) {
	st := cs.(ScriptedState)
	var out []core.Transition
	for i, th := range s.threads {
		if st[i] < len(th) {
			out = append(out, th[st[i]])
		}
	}
	return out, nil
}

// Execute implements core.Session.
func (s *ScriptedSession) Execute(ctx context.Context, cs core.State, t core.Transition) (core.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.executed[t.ID()]++
	s.mu.Unlock()

	if err := s.failures[t.ID()]; err != nil {
		if _, serr := s.step(cs, t); serr != nil {
			return nil, serr
		}
		return nil, fmt.Errorf("%s: %w", t.ID(), err)
	}
	return s.step(cs, t)
}

// Replay implements core.Replayer.
func (s *ScriptedSession) Replay(ctx context.Context, cs core.State, t core.Transition) (core.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.replayed[t.ID()]++
	s.mu.Unlock()

	if err := s.failures[t.ID()]; err != nil {
		return nil, fmt.Errorf("%s: %w", t.ID(), err)
	}
	return s.step(cs, t)
}

func (s *ScriptedSession) step(cs core.State, t core.Transition) (core.State, error) {
	st := cs.(ScriptedState)
	for i, th := range s.threads {
		if st[i] < len(th) && th[st[i]].ID() == t.ID() {
			next := make(ScriptedState, len(st))
			copy(next, st)
			next[i]++
			return next, nil
		}
	}
	return nil, fmt.Errorf("transition %s not enabled in %s", t.ID(), st.Key())
}

// IsFinal implements core.FinalStateChecker.
func (s *ScriptedSession) IsFinal(cs core.State) bool {
	st := cs.(ScriptedState)
	for i, th := range s.threads {
		if st[i] < len(th) {
			return false
		}
	}
	return true
}
