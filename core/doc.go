// Package core provides the foundational domain types and interfaces used by
// unfold. It defines the abstractions the explorer is written against:
//
//   - Transitions (opaque units of program progress with a dependency relation)
//   - Sessions (the program under test: initial state, enabled transitions, execution)
//   - Traces, defects and results (what a verification run reports)
//   - Reporters and report stores (where those findings go)
//
// The package keeps implementation concerns (the event structure, search,
// persistence) out of scope and exposes small interfaces so that custom
// programs, reporters and backends can be plugged in.
package core
