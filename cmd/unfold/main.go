// Command unfold verifies concurrent model programs by exploring every
// behaviourally distinct interleaving.
//
// Usage:
//
//	unfold check program.yaml [more.yaml...] [flags]
//	unfold serve [--addr host:port] [flags]
//	unfold version
//
// Exit codes:
//
//   - 0: no defect found
//   - 1: at least one program has a defect
//   - 2: usage, configuration or checker error
package main

import (
	"errors"
	"fmt"
	"os"
)

const (
	exitOK     = 0
	exitDefect = 1
	exitError  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)

	err := cmd.Execute()

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errDefectsFound):
		return exitDefect
	default:
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return exitError
	}
}
