package engine

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/unfolding"
)

// stateOracle computes the program state of arbitrary configurations.
//
// A configuration is replayed in id order, which is a linearisation of
// causality, starting from the longest cached prefix. Replayed prefixes are
// cached by their key. Replays go through core.Replayer when the session
// implements it and through Execute otherwise.
type stateOracle struct {
	store    *unfolding.Store
	session  core.Session
	replayer core.Replayer
	cache    *ristretto.Cache[string, core.State]
}

func newStateOracle(store *unfolding.Store, session core.Session, size int64) (*stateOracle, error) {
	o := &stateOracle{store: store, session: session}
	o.replayer, _ = session.(core.Replayer)
	if size <= 0 {
		return o, nil
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, core.State]{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
		// every state costs 1, so MaxCost counts states
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("state cache: %w", err)
	}
	o.cache = cache
	return o, nil
}

func (o *stateOracle) close() {
	if o.cache != nil {
		o.cache.Close()
	}
}

func (o *stateOracle) lookup(set unfolding.EventSet) (core.State, bool) {
	if o.cache == nil {
		return nil, false
	}
	return o.cache.Get(set.Key())
}

func (o *stateOracle) remember(set unfolding.EventSet, s core.State) {
	if o.cache != nil {
		o.cache.Set(set.Key(), s, 1)
	}
}

// replay fires the already executed transition of e in s.
func (o *stateOracle) replay(ctx context.Context, s core.State, e *unfolding.Event) (core.State, error) {
	transitionsReplayedTotal.Inc()
	if o.replayer != nil {
		return o.replayer.Replay(ctx, s, e.Transition())
	}
	return o.session.Execute(ctx, s, e.Transition())
}

// stateOf returns the state reached by executing the configuration h.
func (o *stateOracle) stateOf(ctx context.Context, h unfolding.EventSet) (core.State, error) {
	ids := h.IDs()
	if len(ids) == 0 || ids[0] != unfolding.Root {
		return nil, &core.InvariantError{Op: "state", Detail: fmt.Sprintf("%s does not contain the root", h)}
	}

	root, _ := o.store.Root().State()
	if len(ids) == 1 {
		return root, nil
	}

	top := o.store.Event(ids[len(ids)-1])
	local := top.Local().Equal(h)
	if st, ok := top.State(); ok && local {
		return st, nil
	}
	if st, ok := o.lookup(h); ok {
		return st, nil
	}

	start, st := 1, root
	for k := len(ids) - 1; k > 1; k-- {
		if cached, ok := o.lookup(unfolding.NewEventSet(ids[:k]...)); ok {
			start, st = k, cached
			break
		}
	}

	for i := start; i < len(ids); i++ {
		e := o.store.Event(ids[i])
		next, err := o.replay(ctx, st, e)
		if err != nil {
			return nil, fmt.Errorf("replaying %s: %w", e.TransitionID(), err)
		}
		st = next
		o.remember(unfolding.NewEventSet(ids[:i+1]...), st)
	}

	if local && !top.IsBound() && o.store.IsUseful(top.ID()) {
		if err := top.Bind(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}
