package program

import (
	"errors"
	"fmt"

	"github.com/hupe1980/unfold/core"
)

var (
	// ErrInvalidProgram is returned for specs that fail validation.
	ErrInvalidProgram = errors.New("invalid program")

	// ErrNotEnabled is returned when executing a transition that cannot fire.
	ErrNotEnabled = errors.New("transition not enabled")

	// ErrUnlockNotHeld reports an unlock of a mutex the process does not own.
	ErrUnlockNotHeld = fmt.Errorf("%w: unlock of a mutex not held", core.ErrIllegalOperation)
)
