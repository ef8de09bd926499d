package testutil

import (
	"github.com/hupe1980/unfold/program"
)

// ProgramBuilder provides a fluent helper for constructing model programs.
// Example:
//
//	p := NewProgramBuilder("race").Var("x", 0).
//	    Process("p1", Write("x", 1)).
//	    Process("p2", Write("x", 2)).
//	    MustBuild()
type ProgramBuilder struct {
	spec program.Spec
}

// NewProgramBuilder creates a builder for a program with the given name.
func NewProgramBuilder(name string) *ProgramBuilder {
	return &ProgramBuilder{spec: program.Spec{Name: name, Variables: map[string]int{}}}
}

// Var declares a shared variable with its initial value (chainable).
func (b *ProgramBuilder) Var(name string, initial int) *ProgramBuilder {
	b.spec.Variables[name] = initial
	return b
}

// Mutex declares mutexes (chainable).
func (b *ProgramBuilder) Mutex(names ...string) *ProgramBuilder {
	b.spec.Mutexes = append(b.spec.Mutexes, names...)
	return b
}

// Process appends a process (chainable).
func (b *ProgramBuilder) Process(name string, steps ...program.Step) *ProgramBuilder {
	b.spec.Processes = append(b.spec.Processes, program.ProcessSpec{Name: name, Steps: steps})
	return b
}

// Build compiles the program.
func (b *ProgramBuilder) Build() (*program.Program, error) {
	return program.New(b.spec)
}

// MustBuild compiles the program and panics on error.
func (b *ProgramBuilder) MustBuild() *program.Program {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

// Write returns a write step.
func Write(v string, n int) program.Step { return program.Step{Op: program.OpWrite, Var: v, Value: n} }

// Add returns an add step.
func Add(v string, n int) program.Step { return program.Step{Op: program.OpAdd, Var: v, Value: n} }

// Read returns a read step into reg.
func Read(v, reg string) program.Step { return program.Step{Op: program.OpRead, Var: v, Reg: reg} }

// Assert returns an assertion step.
func Assert(v string, n int) program.Step { return program.Step{Op: program.OpAssert, Var: v, Value: n} }

// Lock returns a lock step.
func Lock(m string) program.Step { return program.Step{Op: program.OpLock, Mutex: m} }

// Unlock returns an unlock step.
func Unlock(m string) program.Step { return program.Step{Op: program.OpUnlock, Mutex: m} }

// Local returns a step touching no shared resource.
func Local() program.Step { return program.Step{Op: program.OpLocal} }
