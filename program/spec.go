package program

import (
	"fmt"
	"slices"
)

// Op is the kind of a step.
type Op string

const (
	OpWrite  Op = "write"
	OpAdd    Op = "add"
	OpRead   Op = "read"
	OpAssert Op = "assert"
	OpLock   Op = "lock"
	OpUnlock Op = "unlock"
	OpLocal  Op = "local"
)

// Step is one instruction of a process.
type Step struct {
	Op    Op     `yaml:"op" json:"op" validate:"required,oneof=write add read assert lock unlock local"`
	Var   string `yaml:"var,omitempty" json:"var,omitempty" validate:"required_if=Op write,required_if=Op add,required_if=Op read,required_if=Op assert"`
	Mutex string `yaml:"mutex,omitempty" json:"mutex,omitempty" validate:"required_if=Op lock,required_if=Op unlock"`
	Value int    `yaml:"value,omitempty" json:"value,omitempty"`
	Reg   string `yaml:"reg,omitempty" json:"reg,omitempty" validate:"required_if=Op read"`
}

// reads reports whether the step only observes its variable.
func (s Step) reads() bool {
	return s.Op == OpRead || s.Op == OpAssert
}

func (s Step) String() string {
	switch s.Op {
	case OpWrite:
		return fmt.Sprintf("write %s %d", s.Var, s.Value)
	case OpAdd:
		return fmt.Sprintf("add %s %d", s.Var, s.Value)
	case OpRead:
		return fmt.Sprintf("read %s -> %s", s.Var, s.Reg)
	case OpAssert:
		return fmt.Sprintf("assert %s == %d", s.Var, s.Value)
	case OpLock, OpUnlock:
		return fmt.Sprintf("%s %s", s.Op, s.Mutex)
	default:
		return string(s.Op)
	}
}

// ProcessSpec is a named sequence of steps.
type ProcessSpec struct {
	Name  string `yaml:"name" json:"name" validate:"required"`
	Steps []Step `yaml:"steps" json:"steps" validate:"dive"`
}

// Spec describes a model program.
type Spec struct {
	Name      string         `yaml:"name" json:"name" validate:"required"`
	Variables map[string]int `yaml:"variables,omitempty" json:"variables,omitempty"`
	Mutexes   []string       `yaml:"mutexes,omitempty" json:"mutexes,omitempty" validate:"dive,required"`
	Processes []ProcessSpec  `yaml:"processes" json:"processes" validate:"required,min=1,dive"`
}

// check verifies the references the struct tags cannot express.
func (s *Spec) check() error {
	seen := map[string]bool{}
	for _, p := range s.Processes {
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate process %q", ErrInvalidProgram, p.Name)
		}
		seen[p.Name] = true

		for i, st := range p.Steps {
			if st.Var != "" {
				if _, ok := s.Variables[st.Var]; !ok {
					return fmt.Errorf("%w: %s#%d uses undeclared variable %q", ErrInvalidProgram, p.Name, i, st.Var)
				}
			}
			if st.Mutex != "" && !slices.Contains(s.Mutexes, st.Mutex) {
				return fmt.Errorf("%w: %s#%d uses undeclared mutex %q", ErrInvalidProgram, p.Name, i, st.Mutex)
			}
		}
	}
	return nil
}
