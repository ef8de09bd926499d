package core

// Transition is one atomic step of the program under test.
//
// Two transitions are dependent when executing them in different orders may
// lead to different states, or when one can enable or disable the other.
// DependsOn must be symmetric and irreflexive; the explorer relies on both
// properties without checking them.
type Transition interface {
	// ID returns a stable identity. Transitions with equal ids are treated as
	// the same step of the program.
	ID() string

	// DependsOn reports whether t and other are dependent.
	DependsOn(other Transition) bool
}

// Dependent reports whether a and b are dependent. A nil transition stands for
// the initial state and is dependent on nothing.
func Dependent(a, b Transition) bool {
	if a == nil || b == nil {
		return false
	}
	return a.DependsOn(b)
}

// TransitionIDs returns the ids of ts in order.
func TransitionIDs(ts []Transition) []string {
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.ID()
	}
	return ids
}
