package unfolding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/internal/testutil"
)

type fixture struct {
	store      *Store
	a, b, c, d *Event
}

// newFixture builds
//
//	a = (a on x, {⊥})   b = (b on x, {⊥})   c = (c on y, {⊥})   d = (d on x, {a})
func newFixture(t *testing.T) fixture {
	t.Helper()
	s := NewStore(nil)
	root := NewEventSet(Root)

	intern := func(name, res string, causes EventSet) *Event {
		e, created, err := s.Intern(testutil.T(name, res), causes)
		require.NoError(t, err)
		require.True(t, created)
		return e
	}

	a := intern("a", "x", root)
	b := intern("b", "x", root)
	c := intern("c", "y", root)
	d := intern("d", "x", NewEventSet(a.ID()))
	return fixture{store: s, a: a, b: b, c: c, d: d}
}

func TestStore_RootAndIDs(t *testing.T) {
	f := newFixture(t)

	root := f.store.Root()
	assert.True(t, root.IsRoot())
	assert.Equal(t, Root, root.ID())
	assert.True(t, root.IsBound())
	assert.Equal(t, "⊥", root.TransitionID())
	assert.Equal(t, 5, f.store.Len())
	assert.Equal(t, EventID(4), f.d.ID())
	assert.Nil(t, f.store.Event(99))
}

func TestStore_HistoryIsCausalClosure(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []EventID{Root}, f.a.History().IDs())
	assert.Equal(t, []EventID{Root, f.a.ID()}, f.d.History().IDs())
	assert.Equal(t, []EventID{Root, f.a.ID(), f.d.ID()}, f.d.Local().IDs())

	// every cause's history is contained in the event's history
	for _, e := range []*Event{f.a, f.b, f.c, f.d} {
		for c := range e.Causes().All() {
			assert.True(t, f.store.Event(c).History().SubsetOf(e.History()))
			assert.True(t, e.History().Contains(c))
		}
	}
	assert.True(t, f.store.Precedes(f.a.ID(), f.d.ID()))
	assert.False(t, f.store.Precedes(f.d.ID(), f.a.ID()))
}

func TestStore_InternMergesStructurallyEqualEvents(t *testing.T) {
	f := newFixture(t)

	again, created, err := f.store.Intern(testutil.T("d", "x"), NewEventSet(f.a.ID()))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, f.d, again)

	// Empty causes and causes containing the root beside other events are normalised.
	a2, created, err := f.store.Intern(testutil.T("a", "x"), EventSet{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, f.a, a2)

	d2, ok := f.store.Lookup(testutil.T("d", "x"), NewEventSet(Root, f.a.ID()))
	assert.True(t, ok)
	assert.Same(t, f.d, d2)

	_, _, err = f.store.Intern(testutil.T("z", "x"), NewEventSet(42))
	assert.Error(t, err)
}

func TestStore_RetireAndResurrect(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.d.Bind(nil))

	assert.True(t, f.store.Retire(f.d.ID()))
	assert.False(t, f.store.Retire(f.d.ID()), "already retired")
	assert.False(t, f.store.Retire(Root), "root stays useful")

	assert.True(t, f.store.IsRetired(f.d.ID()))
	assert.False(t, f.store.IsUseful(f.d.ID()))
	assert.False(t, f.d.IsBound(), "retired events drop their state")
	assert.True(t, f.store.Useful().Intersect(f.store.Retired()).IsEmpty())

	again, created, err := f.store.Intern(testutil.T("d", "x"), NewEventSet(f.a.ID()))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, f.d, again)
	assert.True(t, f.store.IsUseful(f.d.ID()))

	stats := f.store.Stats()
	assert.Equal(t, 4, stats.Created)
	assert.Equal(t, 0, stats.Retired)
	assert.Equal(t, 1, stats.Resurrected)
}

func TestEvent_BindOnce(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.a.Bind(nil))
	assert.Error(t, f.a.Bind(nil))
}

func TestEvent_ExecutedOnceAcrossRetirement(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.d.MarkExecuted())
	assert.True(t, f.d.IsExecuted())

	require.True(t, f.store.Retire(f.d.ID()))
	require.True(t, f.store.Revive(f.d.ID()))
	assert.True(t, f.d.IsExecuted(), "revived events keep their execution")
	assert.ErrorIs(t, f.d.MarkExecuted(), core.ErrInvariant)
}

func TestStore_ClosureAndMaximal(t *testing.T) {
	f := newFixture(t)

	closure := f.store.Closure(NewEventSet(f.d.ID(), f.c.ID()))
	assert.Equal(t, []EventID{Root, f.a.ID(), f.c.ID(), f.d.ID()}, closure.IDs())
	assert.Equal(t, []EventID{f.c.ID(), f.d.ID()}, f.store.Maximal(closure).IDs())
}
