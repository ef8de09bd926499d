package core

import "context"

// State is an immutable snapshot of the program under test.
type State interface {
	// Key returns a stable identity of the snapshot.
	Key() string
}

// Session drives the program under test.
//
// Sessions have value semantics: Execute returns a new State and never
// mutates its input, so the explorer may branch from any state it has seen.
type Session interface {
	// Initial returns the state before any transition ran.
	Initial(ctx context.Context) (State, error)

	// EnabledTransitions lists the transitions that may fire in s.
	EnabledTransitions(ctx context.Context, s State) ([]Transition, error)

	// Execute fires t in s. A returned error is a defect of the program
	// (assertion failure, illegal operation) unless it is a context error.
	Execute(ctx context.Context, s State, t Transition) (State, error)
}

// Replayer is implemented by sessions that can rebuild a state by firing a
// transition that was already executed once. The explorer executes every
// event through Execute exactly once and rebuilds the states of other
// configurations through Replay. Sessions without it are replayed through
// Execute.
type Replayer interface {
	Replay(ctx context.Context, s State, t Transition) (State, error)
}

// FinalStateChecker is implemented by sessions that can tell a terminated
// state from a stuck one. When a maximal configuration ends in a state that is
// not final the explorer reports a deadlock.
type FinalStateChecker interface {
	IsFinal(s State) bool
}

// Program is something that can be verified.
type Program interface {
	// Name identifies the program in logs and reports.
	Name() string

	// NewSession returns a fresh session for one verification run.
	NewSession() Session
}
