package unfolding

import (
	"fmt"

	"github.com/hupe1980/unfold/core"
)

type status uint8

const (
	statusUseful status = iota
	statusRetired
)

type pairKey struct {
	a, b EventID
}

func newPairKey(a, b EventID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// Stats counts store activity.
type Stats struct {
	Created     int
	Useful      int
	Retired     int
	Retirements int
	Resurrected int
}

// Store owns the events of one exploration.
//
// Every event is either possibly useful (U) or retired (G); the partition is a
// per-event status so an event can never be in both. Store is not safe for
// concurrent use.
type Store struct {
	events []*Event
	status []status
	index  map[string]EventID

	dependency map[[2]string]bool
	conflict   map[pairKey]bool
	immediate  map[pairKey]bool

	retired     int
	retirements int
	resurrected int
}

// NewStore creates a store holding only the root event, bound to initial.
func NewStore(initial core.State) *Store {
	root := &Event{id: Root, state: initial, bound: true}
	return &Store{
		events:     []*Event{root},
		status:     []status{statusUseful},
		index:      map[string]EventID{},
		dependency: map[[2]string]bool{},
		conflict:   map[pairKey]bool{},
		immediate:  map[pairKey]bool{},
	}
}

// Root returns the root event.
func (s *Store) Root() *Event { return s.events[Root] }

// Event returns the event with the given id, or nil if it does not exist.
func (s *Store) Event(id EventID) *Event {
	if id < 0 || int(id) >= len(s.events) {
		return nil
	}
	return s.events[id]
}

// Len returns the number of events ever created, root included.
func (s *Store) Len() int { return len(s.events) }

func internKey(t core.Transition, causes EventSet) string {
	return t.ID() + "|" + causes.Key()
}

func normalizeCauses(causes EventSet) EventSet {
	if causes.IsEmpty() {
		return NewEventSet(Root)
	}
	if causes.Len() > 1 {
		return causes.Without(Root)
	}
	return causes
}

// Lookup returns the event firing t with the given causes, live or retired.
func (s *Store) Lookup(t core.Transition, causes EventSet) (*Event, bool) {
	id, ok := s.index[internKey(t, normalizeCauses(causes))]
	if !ok {
		return nil, false
	}
	return s.events[id], true
}

// Intern returns the event firing t after causes, creating it if needed. The
// returned event is always in U: a retired event is resurrected. The boolean
// reports whether the event was created by this call.
func (s *Store) Intern(t core.Transition, causes EventSet) (*Event, bool, error) {
	if t == nil {
		return nil, false, fmt.Errorf("intern: nil transition")
	}
	causes = normalizeCauses(causes)
	key := internKey(t, causes)
	if id, ok := s.index[key]; ok {
		s.Revive(id)
		return s.events[id], false, nil
	}

	var history EventSet
	for c := range causes.All() {
		ce := s.Event(c)
		if ce == nil {
			return nil, false, fmt.Errorf("intern %s: unknown cause %d", t.ID(), c)
		}
		history = history.Union(ce.Local())
	}

	e := &Event{
		id:         EventID(len(s.events)),
		transition: t,
		causes:     causes,
		history:    history,
	}
	s.events = append(s.events, e)
	s.status = append(s.status, statusUseful)
	s.index[key] = e.id
	return e, true, nil
}

// IsUseful reports whether id is in U.
func (s *Store) IsUseful(id EventID) bool {
	return int(id) < len(s.status) && s.status[id] == statusUseful
}

// IsRetired reports whether id is in G.
func (s *Store) IsRetired(id EventID) bool {
	return int(id) < len(s.status) && s.status[id] == statusRetired
}

// Useful returns U.
func (s *Store) Useful() EventSet {
	return s.withStatus(statusUseful)
}

// Retired returns G.
func (s *Store) Retired() EventSet {
	return s.withStatus(statusRetired)
}

func (s *Store) withStatus(want status) EventSet {
	ids := make([]EventID, 0, len(s.status))
	for i, st := range s.status {
		if st == want {
			ids = append(ids, EventID(i))
		}
	}
	return EventSet{ids: ids}
}

// Retire moves id from U to G and drops its bound state. The root is never
// retired. Retire reports whether the event changed partition.
func (s *Store) Retire(id EventID) bool {
	if id == Root || !s.IsUseful(id) {
		return false
	}
	s.status[id] = statusRetired
	s.events[id].release()
	s.retired++
	s.retirements++
	return true
}

// Revive moves a retired event back to U. It reports whether the event
// changed partition.
func (s *Store) Revive(id EventID) bool {
	if !s.IsRetired(id) {
		return false
	}
	s.status[id] = statusUseful
	s.retired--
	s.resurrected++
	return true
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	return Stats{
		Created:     len(s.events) - 1,
		Useful:      len(s.events) - s.retired,
		Retired:     s.retired,
		Retirements: s.retirements,
		Resurrected: s.resurrected,
	}
}

// Dependent reports whether the transitions of a and b are dependent. The
// root is dependent on nothing, and two events firing the same transition
// always are. Results are cached per transition pair.
func (s *Store) Dependent(a, b EventID) bool {
	return s.DependentTransitions(s.events[a].transition, s.events[b].transition)
}

// DependentTransitions is the cached dependency predicate.
func (s *Store) DependentTransitions(a, b core.Transition) bool {
	if a == nil || b == nil {
		return false
	}
	ka, kb := a.ID(), b.ID()
	if ka == kb {
		return true
	}
	if ka > kb {
		ka, kb = kb, ka
	}
	key := [2]string{ka, kb}
	if v, ok := s.dependency[key]; ok {
		return v
	}
	v := core.Dependent(a, b)
	s.dependency[key] = v
	return v
}

// Closure returns the causal closure of set: every member with its history.
func (s *Store) Closure(set EventSet) EventSet {
	out := set
	for id := range set.All() {
		out = out.Union(s.events[id].history)
	}
	return out
}

// Maximal returns the members of set that precede no other member.
func (s *Store) Maximal(set EventSet) EventSet {
	var below EventSet
	for id := range set.All() {
		below = below.Union(s.events[id].history)
	}
	return set.Minus(below)
}

// Precedes reports whether a is in the history of b.
func (s *Store) Precedes(a, b EventID) bool {
	return s.events[b].history.Contains(a)
}
