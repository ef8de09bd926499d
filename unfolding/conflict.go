package unfolding

// Conflict reports whether a and b can never occur in the same execution.
//
// Distinct, causally unrelated events conflict when some event only in [a] is
// dependent on some event only in [b]. Results are memoised per pair.
func (s *Store) Conflict(a, b EventID) bool {
	if a == b {
		return false
	}
	key := newPairKey(a, b)
	if v, ok := s.conflict[key]; ok {
		return v
	}
	v := s.computeConflict(s.events[a], s.events[b])
	s.conflict[key] = v
	return v
}

func (s *Store) computeConflict(a, b *Event) bool {
	if a.IsRoot() || b.IsRoot() {
		return false
	}
	if a.history.Contains(b.id) || b.history.Contains(a.id) {
		return false
	}
	if a.causes.Equal(b.causes) {
		return s.Dependent(a.id, b.id)
	}
	la, lb := a.Local(), b.Local()
	return s.crossDependent(la.Minus(lb), lb.Minus(la))
}

func (s *Store) crossDependent(xs, ys EventSet) bool {
	for x := range xs.All() {
		for y := range ys.All() {
			if s.Dependent(x, y) {
				return true
			}
		}
	}
	return false
}

// ImmediateConflict reports whether a and b are conflicting alternatives that
// are not separated by another conflict. The checks run in order: a # b, the
// union of both histories is conflict-free, a conflicts with nothing in the
// history of b and b with nothing in the history of a.
func (s *Store) ImmediateConflict(a, b EventID) bool {
	if a == b {
		return false
	}
	key := newPairKey(a, b)
	if v, ok := s.immediate[key]; ok {
		return v
	}
	v := s.computeImmediateConflict(s.events[a], s.events[b])
	s.immediate[key] = v
	return v
}

func (s *Store) computeImmediateConflict(a, b *Event) bool {
	if !s.Conflict(a.id, b.id) {
		return false
	}
	// Each history is a configuration, so only pairs across them can conflict.
	if s.crossConflict(a.history.Minus(b.history), b.history.Minus(a.history)) {
		return false
	}
	if s.ConflictsWith(a.id, b.history) || s.ConflictsWith(b.id, a.history) {
		return false
	}
	return true
}

func (s *Store) crossConflict(xs, ys EventSet) bool {
	for x := range xs.All() {
		for y := range ys.All() {
			if s.Conflict(x, y) {
				return true
			}
		}
	}
	return false
}

// ConflictsWith reports whether e conflicts with any member of set.
func (s *Store) ConflictsWith(e EventID, set EventSet) bool {
	for x := range set.All() {
		if s.Conflict(e, x) {
			return true
		}
	}
	return false
}

// ConflictsAcross reports whether some member of xs conflicts with some member of ys.
func (s *Store) ConflictsAcross(xs, ys EventSet) bool {
	return s.crossConflict(xs, ys)
}

// IsConflictFree reports whether no two members of set conflict.
func (s *Store) IsConflictFree(set EventSet) bool {
	ids := set.ids
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if s.Conflict(ids[i], ids[j]) {
				return false
			}
		}
	}
	return true
}

// IsConfig reports whether set is a configuration: causally closed and
// conflict-free. It stops at the first failure.
func (s *Store) IsConfig(set EventSet) bool {
	for id := range set.All() {
		e := s.Event(id)
		if e == nil || !e.causes.SubsetOf(set) {
			return false
		}
	}
	return s.IsConflictFree(set)
}

// ImmediateConflicts returns the events of U in immediate conflict with e.
func (s *Store) ImmediateConflicts(e EventID) EventSet {
	var out []EventID
	for i, st := range s.status {
		if st == statusUseful && s.ImmediateConflict(EventID(i), e) {
			out = append(out, EventID(i))
		}
	}
	return EventSet{ids: out}
}
