package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/unfold/unfolding"
)

// computeAlt searches J ⊆ U such that C ∪ J is a configuration and every
// event of D is in immediate conflict with some event of C ∪ J in U. It
// returns the first J found, or an empty set when none exists.
func (x *explorer) computeAlt(ctx context.Context, c unfolding.Configuration, d unfolding.EventSet) (unfolding.EventSet, error) {
	ctx, span := x.tracer.Start(ctx, "unfold.compute_alt",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("unfold.configuration_size", c.Len()),
			attribute.Int("unfold.done_size", d.Len()),
		),
	)
	defer span.End()

	var j unfolding.EventSet
	switch x.cfg.Alternatives {
	case AlternativesExhaustive:
		j = x.exhaustiveAlt(c, d)
	default:
		j = x.combAlt(c, d)
	}

	outcome := "none"
	if !j.IsEmpty() {
		outcome = "found"
		if err := x.callbacks.ExecuteCallbacks(ctx, CallbackOnAlternative, &CallbackContext{
			RunID: x.runID, Program: x.program, Configuration: c.Events(), Alternative: j,
		}); err != nil {
			return unfolding.EventSet{}, err
		}
	}
	alternativesTotal.WithLabelValues(string(x.cfg.Alternatives), outcome).Inc()
	span.SetAttributes(attribute.Int("unfold.alternative_size", j.Len()))
	return j, nil
}

// satisfied reports whether some event of set in U is in immediate conflict with d.
func (x *explorer) satisfied(set unfolding.EventSet, d unfolding.EventID) bool {
	for id := range set.All() {
		if x.store.IsUseful(id) && x.store.ImmediateConflict(id, d) {
			return true
		}
	}
	return false
}

// combAlt builds, for every event of D not already satisfied by C, the spike
// of U-events in immediate conflict with it and compatible with C, and picks
// one event per spike so that C plus their local configurations stays
// conflict-free.
func (x *explorer) combAlt(c unfolding.Configuration, d unfolding.EventSet) unfolding.EventSet {
	events := c.Events()
	useful := x.store.Useful()

	var spikes [][]unfolding.EventID
	for di := range d.All() {
		if x.satisfied(events, di) {
			continue
		}
		var spike []unfolding.EventID
		for u := range useful.All() {
			if events.Contains(u) || !x.store.ImmediateConflict(u, di) || x.store.ConflictsWith(u, events) {
				continue
			}
			spike = append(spike, u)
		}
		if len(spike) == 0 {
			return unfolding.EventSet{}
		}
		spikes = append(spikes, spike)
	}
	if len(spikes) == 0 {
		return unfolding.EventSet{}
	}

	// Depth-first over the comb. Every spike event is compatible with C and
	// conflict is inherited along causality, so only the chosen local
	// configurations need checking against each other.
	type tooth struct {
		level int
		next  int
		acc   unfolding.EventSet
	}
	stack := []tooth{{}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.level == len(spikes) {
			// History events of a spike may have been retired meanwhile.
			for id := range top.acc.All() {
				x.store.Revive(id)
			}
			return top.acc
		}
		spike := spikes[top.level]
		if top.next == len(spike) {
			stack = stack[:len(stack)-1]
			continue
		}
		u := spike[top.next]
		top.next++

		local := x.store.Event(u).Local().Minus(events)
		if x.store.ConflictsAcross(local.Minus(top.acc), top.acc) {
			continue
		}
		stack = append(stack, tooth{level: top.level + 1, acc: top.acc.Union(local)})
	}
	return unfolding.EventSet{}
}

// exhaustiveAlt enumerates subsets of the U-events compatible with C,
// including before excluding each candidate, and prunes subsets that stop
// being conflict-free.
func (x *explorer) exhaustiveAlt(c unfolding.Configuration, d unfolding.EventSet) unfolding.EventSet {
	events := c.Events()

	var candidates []unfolding.EventID
	for u := range x.store.Useful().All() {
		if !events.Contains(u) && !x.store.ConflictsWith(u, events) {
			candidates = append(candidates, u)
		}
	}

	type node struct {
		next  int
		tempJ unfolding.EventSet
	}
	stack := []node{{}}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		union := events.Union(n.tempJ)
		if x.covers(union, d) && x.store.IsConfig(union) {
			return n.tempJ
		}
		if n.next == len(candidates) {
			continue
		}

		a := candidates[n.next]
		stack = append(stack, node{next: n.next + 1, tempJ: n.tempJ})
		if !x.store.ConflictsWith(a, n.tempJ) {
			stack = append(stack, node{next: n.next + 1, tempJ: n.tempJ.With(a)})
		}
	}
	return unfolding.EventSet{}
}

// covers reports whether every event of d is in immediate conflict with some
// event of set in U.
func (x *explorer) covers(set, d unfolding.EventSet) bool {
	for di := range d.All() {
		if !x.satisfied(set, di) {
			return false
		}
	}
	return true
}
