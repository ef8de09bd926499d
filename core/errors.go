package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDefect is the root of every error that describes a bug in the program
	// under test rather than a failure of the checker.
	ErrDefect = errors.New("defect")

	// ErrAssertionFailed reports a violated program assertion.
	ErrAssertionFailed = fmt.Errorf("%w: assertion failed", ErrDefect)

	// ErrDeadlock reports a maximal execution that ends in a non-final state.
	ErrDeadlock = fmt.Errorf("%w: deadlock", ErrDefect)

	// ErrIllegalOperation reports a transition the program is not allowed to take.
	ErrIllegalOperation = fmt.Errorf("%w: illegal operation", ErrDefect)

	// ErrInvariant is wrapped by every InvariantError.
	ErrInvariant = errors.New("internal invariant violated")

	// ErrBudgetExhausted is returned by limiters once their budget is spent.
	ErrBudgetExhausted = errors.New("exploration budget exhausted")

	// ErrNotFound is returned by stores for unknown keys.
	ErrNotFound = errors.New("not found")
)

// IsDefect reports whether err describes a bug in the program under test.
func IsDefect(err error) bool {
	return errors.Is(err, ErrDefect)
}

// InvariantError is a fatal violation of an explorer contract. It carries the
// sets involved so that the failure can be reproduced.
type InvariantError struct {
	Op            string
	Detail        string
	Configuration []int
	Done          []int
	Alternative   []int
}

func (e *InvariantError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Op, e.Detail)
	if len(e.Configuration) > 0 {
		fmt.Fprintf(&b, " (C=%v", e.Configuration)
		fmt.Fprintf(&b, " D=%v A=%v)", e.Done, e.Alternative)
	}
	return b.String()
}

// Unwrap returns ErrInvariant.
func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}
