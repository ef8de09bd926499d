package unfolding

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEventSet_SortsAndDeduplicates(t *testing.T) {
	s := NewEventSet(5, 1, 3, 1)
	assert.Equal(t, []EventID{1, 3, 5}, s.IDs())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "{1,3,5}", s.String())
	assert.True(t, EventSet{}.IsEmpty())
}

func TestEventSet_Algebra(t *testing.T) {
	a := NewEventSet(1, 2, 3, 4)
	b := NewEventSet(3, 4, 5)
	c := NewEventSet(2, 5, 7)

	assert.Equal(t, []EventID{1, 2, 3, 4, 5}, a.Union(b).IDs())
	assert.Equal(t, []EventID{3, 4}, a.Intersect(b).IDs())
	assert.Equal(t, []EventID{1, 2}, a.Minus(b).IDs())

	// commutativity and associativity
	assert.True(t, a.Union(b).Equal(b.Union(a)))
	assert.True(t, a.Intersect(b).Equal(b.Intersect(a)))
	assert.True(t, a.Union(b).Union(c).Equal(a.Union(b.Union(c))))
	assert.True(t, a.Intersect(b).Intersect(c).Equal(a.Intersect(b.Intersect(c))))

	// distributivity and difference
	assert.True(t, a.Intersect(b.Union(c)).Equal(a.Intersect(b).Union(a.Intersect(c))))
	assert.True(t, a.Minus(b).Intersect(b).IsEmpty())
	assert.True(t, a.Minus(b).Union(a.Intersect(b)).Equal(a))

	// identities
	var empty EventSet
	assert.True(t, a.Union(empty).Equal(a))
	assert.True(t, a.Intersect(empty).IsEmpty())
	assert.True(t, a.Minus(empty).Equal(a))
	assert.True(t, a.Minus(a).IsEmpty())
}

func TestEventSet_NonMutatingOpsLeaveReceiver(t *testing.T) {
	a := NewEventSet(1, 2, 3)
	_ = a.Union(NewEventSet(9))
	_ = a.With(7)
	_ = a.Without(2)
	_ = a.Minus(NewEventSet(1))
	assert.Equal(t, []EventID{1, 2, 3}, a.IDs())
}

func TestEventSet_InsertErase(t *testing.T) {
	a := NewEventSet(1, 3)
	derived := a.Union(EventSet{})

	a.Insert(2)
	a.Insert(2)
	assert.Equal(t, []EventID{1, 2, 3}, a.IDs())
	assert.Equal(t, []EventID{1, 3}, derived.IDs(), "sets sharing storage are unaffected")

	a.Erase(1)
	a.Erase(42)
	assert.Equal(t, []EventID{2, 3}, a.IDs())
}

func TestEventSet_Queries(t *testing.T) {
	a := NewEventSet(2, 4, 6)

	assert.True(t, a.Contains(4))
	assert.False(t, a.Contains(5))
	assert.True(t, NewEventSet(2, 6).SubsetOf(a))
	assert.False(t, NewEventSet(2, 5).SubsetOf(a))
	assert.True(t, EventSet{}.SubsetOf(a))

	lo, ok := a.Min()
	assert.True(t, ok)
	assert.Equal(t, EventID(2), lo)
	hi, _ := a.Max()
	assert.Equal(t, EventID(6), hi)
	_, ok = EventSet{}.Min()
	assert.False(t, ok)

	assert.Equal(t, []int{2, 4, 6}, a.Ints())
	assert.Equal(t, []EventID{2, 4, 6}, slices.Collect(a.All()))
	assert.Equal(t, "2,4,6", a.Key())
}
