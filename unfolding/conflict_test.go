package unfolding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflict(t *testing.T) {
	f := newFixture(t)
	s := f.store
	a, b, c, d := f.a.ID(), f.b.ID(), f.c.ID(), f.d.ID()

	assert.True(t, s.Conflict(a, b), "same causes, dependent transitions")
	assert.False(t, s.Conflict(a, c), "same causes, independent transitions")
	assert.False(t, s.Conflict(a, d), "causally related")
	assert.True(t, s.Conflict(d, b), "conflict is inherited through history")
	assert.False(t, s.Conflict(a, a), "irreflexive")
	assert.False(t, s.Conflict(Root, b), "the root conflicts with nothing")
}

func TestConflict_Symmetric(t *testing.T) {
	f := newFixture(t)
	ids := []EventID{Root, f.a.ID(), f.b.ID(), f.c.ID(), f.d.ID()}

	for _, x := range ids {
		for _, y := range ids {
			assert.Equal(t, f.store.Conflict(x, y), f.store.Conflict(y, x), "conflict %d %d", x, y)
			assert.Equal(t, f.store.ImmediateConflict(x, y), f.store.ImmediateConflict(y, x), "immediate %d %d", x, y)
		}
	}
}

func TestImmediateConflict(t *testing.T) {
	f := newFixture(t)
	s := f.store
	a, b, c, d := f.a.ID(), f.b.ID(), f.c.ID(), f.d.ID()

	assert.True(t, s.ImmediateConflict(a, b))
	assert.False(t, s.ImmediateConflict(d, b), "b already conflicts with a in the history of d")
	assert.False(t, s.ImmediateConflict(a, c))
	assert.Equal(t, []EventID{b}, s.ImmediateConflicts(a).IDs())

	s.Retire(b)
	assert.True(t, s.ImmediateConflicts(a).IsEmpty(), "only events of U are reported")
}

func TestIsConfig(t *testing.T) {
	f := newFixture(t)
	s := f.store
	a, b, c, d := f.a.ID(), f.b.ID(), f.c.ID(), f.d.ID()

	assert.True(t, s.IsConfig(NewEventSet(Root)))
	assert.True(t, s.IsConfig(NewEventSet(Root, a, c, d)))
	assert.False(t, s.IsConfig(NewEventSet(Root, a, b)), "conflicting members")
	assert.False(t, s.IsConfig(NewEventSet(Root, d)), "missing cause")
	assert.False(t, s.IsConfig(NewEventSet(Root, 99)), "unknown event")

	assert.True(t, s.ConflictsWith(b, NewEventSet(Root, a, c)))
	assert.False(t, s.ConflictsWith(c, NewEventSet(Root, a, d)))
	assert.True(t, s.IsConflictFree(NewEventSet(a, c)))
	assert.True(t, s.ConflictsAcross(NewEventSet(a), NewEventSet(b, c)))
}

func TestConfiguration_Frontier(t *testing.T) {
	f := newFixture(t)

	c := NewConfiguration()
	assert.Equal(t, []EventID{Root}, c.Frontier().IDs())

	c1 := c.Plus(f.a)
	c2 := c1.Plus(f.c)
	c3 := c2.Plus(f.d)

	assert.Equal(t, []EventID{f.a.ID()}, c1.Frontier().IDs())
	assert.Equal(t, []EventID{f.a.ID(), f.c.ID()}, c2.Frontier().IDs())
	assert.Equal(t, []EventID{f.c.ID(), f.d.ID()}, c3.Frontier().IDs())
	assert.Equal(t, 1, c.Len(), "Plus leaves the receiver untouched")
	assert.True(t, c3.Contains(f.d.ID()))
	assert.True(t, f.store.IsConfig(c3.Events()))

	rebuilt := f.store.Configuration(c3.Events())
	assert.True(t, rebuilt.Frontier().Equal(c3.Frontier()))
	assert.Equal(t, c3.Key(), rebuilt.Key())
}
