package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/unfolding"
)

// maxCauseSets bounds the antichains examined when a configuration grows by
// one event. Exceeding it ends the run as incomplete.
const maxCauseSets = 1 << 16

// extend computes the extensions of the configuration of f and returns enC.
//
// ex(C) holds every event whose history is contained in C. It is built along
// the path from the root: when C grew by an event last, the new members of
// ex(C) are the events whose maximal causes are an antichain of C containing
// last. A frame inherits the extensions of its parent and adds those, and
// every member of ex(C) is put back in U. Exact extensions, fired from the
// state of C, are added as well. enC keeps the members of ex(C) that are not
// in C and conflict with nothing in C.
func (x *explorer) extend(ctx context.Context, f *frame) (unfolding.EventSet, error) {
	if f.last != nil {
		added, err := x.extensionsOf(ctx, f.conf, f.last)
		if err != nil {
			return unfolding.EventSet{}, err
		}
		f.ex = f.ex.Union(added)
		f.last = nil
	}

	enabled, err := x.session.EnabledTransitions(ctx, f.state)
	if err != nil {
		return unfolding.EventSet{}, fmt.Errorf("enabled transitions: %w", err)
	}
	for _, t := range enabled {
		e, err := x.intern(t, x.exactCauses(f.conf, t))
		if err != nil {
			return unfolding.EventSet{}, err
		}
		f.ex.Insert(e.ID())
	}

	c := f.conf.Events()
	var enC unfolding.EventSet
	for id := range f.ex.All() {
		x.store.Revive(id)
		if !c.Contains(id) && !x.store.ConflictsWith(id, c) {
			enC.Insert(id)
		}
	}
	return enC, nil
}

// exactCauses returns the maximal events of C dependent on t, or the root.
func (x *explorer) exactCauses(c unfolding.Configuration, t core.Transition) unfolding.EventSet {
	var dependent unfolding.EventSet
	for id := range c.Events().All() {
		if x.store.DependentTransitions(x.store.Event(id).Transition(), t) {
			dependent.Insert(id)
		}
	}
	if dependent.IsEmpty() {
		return unfolding.NewEventSet(unfolding.Root)
	}
	return x.store.Maximal(dependent)
}

// extensionsOf builds the events whose causes are an antichain K of C with
// last ∈ K: for every K, each transition enabled in the state of the causal
// closure of K and dependent on every member of K. last must be maximal in C.
func (x *explorer) extensionsOf(ctx context.Context, c unfolding.Configuration, last *unfolding.Event) (unfolding.EventSet, error) {
	var concurrent []unfolding.EventID
	if !last.IsRoot() {
		for id := range c.Events().All() {
			if id != unfolding.Root && id != last.ID() && !x.store.Precedes(id, last.ID()) {
				concurrent = append(concurrent, id)
			}
		}
	}

	// Antichains are grown in id order, so each one is visited once.
	type causeSet struct {
		causes unfolding.EventSet
		next   int
	}
	stack := []causeSet{{causes: unfolding.NewEventSet(last.ID())}}

	var built unfolding.EventSet
	for visited := 0; len(stack) > 0; visited++ {
		if visited == maxCauseSets {
			return unfolding.EventSet{}, fmt.Errorf("%w: more than %d cause sets after %s", core.ErrBudgetExhausted, maxCauseSets, last)
		}
		if err := ctx.Err(); err != nil {
			return unfolding.EventSet{}, err
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		added, err := x.extensionsAfter(ctx, top.causes)
		if err != nil {
			return unfolding.EventSet{}, err
		}
		built = built.Union(added)

		for i := top.next; i < len(concurrent); i++ {
			if x.concurrentWithAll(concurrent[i], top.causes) {
				stack = append(stack, causeSet{causes: top.causes.With(concurrent[i]), next: i + 1})
			}
		}
	}
	return built, nil
}

// extensionsAfter interns (t, causes) for every transition t enabled after
// the causal closure of causes and dependent on each cause.
func (x *explorer) extensionsAfter(ctx context.Context, causes unfolding.EventSet) (unfolding.EventSet, error) {
	st, err := x.oracle.stateOf(ctx, x.store.Closure(causes))
	if err != nil {
		return unfolding.EventSet{}, err
	}
	ts, err := x.session.EnabledTransitions(ctx, st)
	if err != nil {
		return unfolding.EventSet{}, fmt.Errorf("enabled transitions after %s: %w", causes, err)
	}

	var built unfolding.EventSet
	for _, t := range ts {
		if !x.dependsOnAll(t, causes) {
			continue
		}
		e, err := x.intern(t, causes)
		if err != nil {
			return unfolding.EventSet{}, err
		}
		built.Insert(e.ID())
	}
	return built, nil
}

// dependsOnAll reports whether t depends on every member of causes. The root
// counts as dependent on everything.
func (x *explorer) dependsOnAll(t core.Transition, causes unfolding.EventSet) bool {
	for id := range causes.All() {
		e := x.store.Event(id)
		if !e.IsRoot() && !x.store.DependentTransitions(e.Transition(), t) {
			return false
		}
	}
	return true
}

func (x *explorer) concurrentWithAll(id unfolding.EventID, set unfolding.EventSet) bool {
	for other := range set.All() {
		if x.store.Precedes(id, other) || x.store.Precedes(other, id) {
			return false
		}
	}
	return true
}

func (x *explorer) intern(t core.Transition, causes unfolding.EventSet) (*unfolding.Event, error) {
	e, _, err := x.store.Intern(t, causes)
	if err != nil {
		return nil, &core.InvariantError{Op: "extend", Detail: err.Error()}
	}
	return e, nil
}
