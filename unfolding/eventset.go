package unfolding

import (
	"iter"
	"slices"
	"strconv"
	"strings"
)

// EventID identifies an event within one Store. Ids are assigned in creation
// order, so every event has a larger id than all events in its history.
type EventID int

// EventSet is a set of event ids kept as a sorted slice.
//
// Union, Intersect, Minus, With and Without return new sets and never modify
// their receiver. Insert and Erase modify the set in place.
type EventSet struct {
	ids []EventID
}

// NewEventSet returns the set of the given ids.
func NewEventSet(ids ...EventID) EventSet {
	if len(ids) == 0 {
		return EventSet{}
	}
	s := slices.Clone(ids)
	slices.Sort(s)
	return EventSet{ids: slices.Compact(s)}
}

// Len returns the number of events in s.
func (s EventSet) Len() int { return len(s.ids) }

// IsEmpty reports whether s has no events.
func (s EventSet) IsEmpty() bool { return len(s.ids) == 0 }

// Contains reports whether id is in s.
func (s EventSet) Contains(id EventID) bool {
	_, ok := slices.BinarySearch(s.ids, id)
	return ok
}

// IDs returns the members of s in ascending order.
func (s EventSet) IDs() []EventID {
	return slices.Clone(s.ids)
}

// Ints returns the members of s as plain ints.
func (s EventSet) Ints() []int {
	out := make([]int, len(s.ids))
	for i, id := range s.ids {
		out[i] = int(id)
	}
	return out
}

// All iterates over the members of s in ascending order.
func (s EventSet) All() iter.Seq[EventID] {
	return func(yield func(EventID) bool) {
		for _, id := range s.ids {
			if !yield(id) {
				return
			}
		}
	}
}

// Min returns the smallest member of s.
func (s EventSet) Min() (EventID, bool) {
	if len(s.ids) == 0 {
		return 0, false
	}
	return s.ids[0], true
}

// Max returns the largest member of s.
func (s EventSet) Max() (EventID, bool) {
	if len(s.ids) == 0 {
		return 0, false
	}
	return s.ids[len(s.ids)-1], true
}

// Equal reports whether s and o have the same members.
func (s EventSet) Equal(o EventSet) bool {
	return slices.Equal(s.ids, o.ids)
}

// SubsetOf reports whether every member of s is in o.
func (s EventSet) SubsetOf(o EventSet) bool {
	if len(s.ids) > len(o.ids) {
		return false
	}
	j := 0
	for _, id := range s.ids {
		for j < len(o.ids) && o.ids[j] < id {
			j++
		}
		if j == len(o.ids) || o.ids[j] != id {
			return false
		}
	}
	return true
}

// Union returns s ∪ o.
func (s EventSet) Union(o EventSet) EventSet {
	switch {
	case len(o.ids) == 0:
		return s
	case len(s.ids) == 0:
		return o
	}
	out := make([]EventID, 0, len(s.ids)+len(o.ids))
	i, j := 0, 0
	for i < len(s.ids) && j < len(o.ids) {
		switch {
		case s.ids[i] < o.ids[j]:
			out = append(out, s.ids[i])
			i++
		case s.ids[i] > o.ids[j]:
			out = append(out, o.ids[j])
			j++
		default:
			out = append(out, s.ids[i])
			i++
			j++
		}
	}
	out = append(out, s.ids[i:]...)
	out = append(out, o.ids[j:]...)
	return EventSet{ids: out}
}

// Intersect returns s ∩ o.
func (s EventSet) Intersect(o EventSet) EventSet {
	var out []EventID
	i, j := 0, 0
	for i < len(s.ids) && j < len(o.ids) {
		switch {
		case s.ids[i] < o.ids[j]:
			i++
		case s.ids[i] > o.ids[j]:
			j++
		default:
			out = append(out, s.ids[i])
			i++
			j++
		}
	}
	return EventSet{ids: out}
}

// Minus returns s \ o.
func (s EventSet) Minus(o EventSet) EventSet {
	if len(o.ids) == 0 {
		return s
	}
	var out []EventID
	j := 0
	for _, id := range s.ids {
		for j < len(o.ids) && o.ids[j] < id {
			j++
		}
		if j < len(o.ids) && o.ids[j] == id {
			continue
		}
		out = append(out, id)
	}
	return EventSet{ids: out}
}

// With returns s ∪ {id}.
func (s EventSet) With(id EventID) EventSet {
	i, ok := slices.BinarySearch(s.ids, id)
	if ok {
		return s
	}
	out := make([]EventID, 0, len(s.ids)+1)
	out = append(out, s.ids[:i]...)
	out = append(out, id)
	return EventSet{ids: append(out, s.ids[i:]...)}
}

// Without returns s \ {id}.
func (s EventSet) Without(id EventID) EventSet {
	i, ok := slices.BinarySearch(s.ids, id)
	if !ok {
		return s
	}
	out := make([]EventID, 0, len(s.ids)-1)
	out = append(out, s.ids[:i]...)
	out = append(out, s.ids[i+1:]...)
	return EventSet{ids: out}
}

// Insert adds id to s.
func (s *EventSet) Insert(id EventID) {
	// The backing array may be shared with sets derived from s.
	*s = s.With(id)
}

// Erase removes id from s.
func (s *EventSet) Erase(id EventID) {
	*s = s.Without(id)
}

// Key returns a canonical string form of s, usable as a map key.
func (s EventSet) Key() string {
	var b strings.Builder
	for i, id := range s.ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(id)))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (s EventSet) String() string {
	return "{" + s.Key() + "}"
}
