package engine

import (
	"context"

	"github.com/hupe1980/unfold/unfolding"
)

// remove retires the events that the exploration of e from (C, D) left with
// no use as future alternatives.
//
// Q is C ∪ D together with the local configurations of every U-event in
// immediate conflict with a member of C ∪ D. e is retired unless it is in Q,
// and so is every event outside Q in the local configuration of a U-event in
// immediate conflict with e.
func (x *explorer) remove(ctx context.Context, e *unfolding.Event, c unfolding.Configuration, d unfolding.EventSet) error {
	keep := c.Events().Union(d)
	useful := x.store.Useful()

	q := keep
	for u := range useful.All() {
		for k := range keep.All() {
			if x.store.ImmediateConflict(u, k) {
				q = q.Union(x.store.Event(u).Local())
				break
			}
		}
	}

	var retired unfolding.EventSet
	if !q.Contains(e.ID()) && x.store.Retire(e.ID()) {
		retired.Insert(e.ID())
	}
	for u := range useful.All() {
		if !x.store.ImmediateConflict(u, e.ID()) {
			continue
		}
		for y := range x.store.Event(u).Local().All() {
			if !q.Contains(y) && x.store.Retire(y) {
				retired.Insert(y)
			}
		}
	}

	if retired.IsEmpty() {
		return nil
	}
	x.logger.LogDebug("Events retired", "events", retired.String(), "explored", e.String())
	if !x.callbacks.HasCallbacks(CallbackOnRetire) {
		return nil
	}
	for id := range retired.All() {
		if err := x.callbacks.ExecuteCallbacks(ctx, CallbackOnRetire, &CallbackContext{
			RunID: x.runID, Program: x.program, Event: x.store.Event(id), Configuration: c.Events(),
		}); err != nil {
			return err
		}
	}
	return nil
}
