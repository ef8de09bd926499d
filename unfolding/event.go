package unfolding

import (
	"fmt"

	"github.com/hupe1980/unfold/core"
)

// Root is the id of the event standing for the initial state.
const Root EventID = 0

// Event is a transition together with the events it directly depends on.
//
// Events are created and owned by a Store. Their transition and causes never
// change. An event is executed at most once per run; its local state is a
// cache bound at most once while the event is in U.
type Event struct {
	id         EventID
	transition core.Transition
	causes     EventSet
	history    EventSet

	state    core.State
	bound    bool
	executed bool
	failure  error
}

// ID returns the event id.
func (e *Event) ID() EventID { return e.id }

// Transition returns the transition fired by e, or nil for the root.
func (e *Event) Transition() core.Transition { return e.transition }

// TransitionID returns the transition id, or "⊥" for the root.
func (e *Event) TransitionID() string {
	if e.transition == nil {
		return "⊥"
	}
	return e.transition.ID()
}

// IsRoot reports whether e is the root event.
func (e *Event) IsRoot() bool { return e.transition == nil }

// Causes returns the immediate causal predecessors of e.
func (e *Event) Causes() EventSet { return e.causes }

// History returns every event that causally precedes e, excluding e.
func (e *Event) History() EventSet { return e.history }

// Local returns the local configuration [e], History ∪ {e}.
func (e *Event) Local() EventSet { return e.history.With(e.id) }

// State returns the state of [e], if it was bound.
func (e *Event) State() (core.State, bool) { return e.state, e.bound }

// IsBound reports whether the local state of e is known.
func (e *Event) IsBound() bool { return e.bound }

// Bind records the state of [e]. A live event is bound at most once.
func (e *Event) Bind(s core.State) error {
	if e.bound {
		return &core.InvariantError{Op: "bind", Detail: fmt.Sprintf("event %d bound twice", e.id)}
	}
	e.state = s
	e.bound = true
	return nil
}

// IsExecuted reports whether e was executed.
func (e *Event) IsExecuted() bool { return e.executed }

// MarkExecuted records the execution of e. Retirement does not reset it, so
// a revived event is never executed again.
func (e *Event) MarkExecuted() error {
	if e.executed {
		return &core.InvariantError{Op: "execute", Detail: fmt.Sprintf("event %d executed twice", e.id)}
	}
	e.executed = true
	return nil
}

// Failure returns the defect observed when executing e, if any.
func (e *Event) Failure() error { return e.failure }

// Fail records a defect observed when executing e.
func (e *Event) Fail(err error) { e.failure = err }

// release drops the bound state of a retired event.
func (e *Event) release() {
	e.state = nil
	e.bound = false
}

// String implements fmt.Stringer.
func (e *Event) String() string {
	return fmt.Sprintf("e%d<%s,%s>", e.id, e.TransitionID(), e.causes)
}
