// Package engine implements the unfolding-based explorer at the heart of unfold.
//
// The Engine verifies a core.Program by exploring its executions as an event
// structure rather than as a tree of interleavings. Two executions that only
// differ in the order of independent transitions share one configuration, so
// each behaviourally distinct maximal execution is visited once.
//
// # Exploration
//
// A run keeps an explicit stack of frames (C, D, A): the current configuration,
// the events already explored from it (the sleep set) and the alternative the
// search was asked to follow. For every frame the explorer
//
//  1. computes the extensions of C (exact extensions from the state of C and
//     conflicting extensions attached to the frontier),
//  2. reports C when no extension exists (as a deadlock when the program is
//     not in a final state),
//  3. chooses an extension e, executes it and descends into C ∪ {e},
//  4. searches an alternative J to D ∪ {e} and, when one exists, explores it,
//  5. retires events that can no longer serve as alternatives.
//
// # Alternatives
//
// Two strategies find alternatives: AlternativesComb (default) builds one
// spike of immediately conflicting events per explored event and picks a
// compatible combination, AlternativesExhaustive enumerates subsets of the
// possibly useful events. Both return the first alternative they find.
//
// # Budgets
//
// Config.MaxSteps and Config.TimeLimit bound a run. A run that hits a budget,
// or whose context is cancelled, returns a Result marked Incomplete and a nil
// error.
//
// # Observability
//
// Runs log through logging.Logger, export Prometheus metrics under the
// "unfold_engine" prefix and emit OpenTelemetry spans when a tracer provider
// is configured. Callbacks hook into execution, reporting and retirement.
package engine
