package program

import (
	"fmt"

	"github.com/hupe1980/unfold/core"
)

// Transition is one step of one process.
type Transition struct {
	id      string
	process int
	index   int
	step    Step
	varIdx  int
	mutex   int
}

var _ core.Transition = (*Transition)(nil)

// ID implements core.Transition.
func (t *Transition) ID() string { return t.id }

// Process returns the index of the process taking the step.
func (t *Transition) Process() int { return t.process }

// Step returns the instruction.
func (t *Transition) Step() Step { return t.step }

// DependsOn implements core.Transition.
func (t *Transition) DependsOn(other core.Transition) bool {
	o, ok := other.(*Transition)
	if !ok || o.id == t.id {
		return false
	}
	if o.process == t.process {
		return true
	}
	if t.varIdx >= 0 && t.varIdx == o.varIdx {
		return !t.step.reads() || !o.step.reads()
	}
	return t.mutex >= 0 && t.mutex == o.mutex
}

func (t *Transition) String() string {
	return fmt.Sprintf("%s: %s", t.id, t.step)
}
