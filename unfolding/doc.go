// Package unfolding implements the event structure explored by the engine.
//
// An event is a transition together with the minimal set of earlier events it
// causally depends on. Events are owned by a Store that assigns monotonic ids,
// interns structurally equal events and partitions them into possibly useful
// (U) and retired (G) events. EventSet is a small immutable-by-default set of
// event ids, and Configuration is a causally closed, conflict-free EventSet
// with a cached frontier.
package unfolding
