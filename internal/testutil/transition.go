package testutil

import (
	"slices"

	"github.com/hupe1980/unfold/core"
)

// Transition is a test transition that is dependent on every other transition
// sharing one of its resources.
type Transition struct {
	Name      string
	Resources []string
}

var _ core.Transition = Transition{}

// T returns a transition touching the given resources.
func T(name string, resources ...string) Transition {
	return Transition{Name: name, Resources: resources}
}

// ID implements core.Transition.
func (t Transition) ID() string { return t.Name }

// DependsOn implements core.Transition.
func (t Transition) DependsOn(other core.Transition) bool {
	o, ok := other.(Transition)
	if !ok || o.Name == t.Name {
		return false
	}
	for _, r := range t.Resources {
		if slices.Contains(o.Resources, r) {
			return true
		}
	}
	return false
}
