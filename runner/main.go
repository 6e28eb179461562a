// Command benchtrend keeps a bounded history of Go benchmark results and
// flags regressions between consecutive CI runs.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitRegressions = 2
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the command line and maps its outcome to an exit code
func execute(args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)

	err := cmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errRegressions):
		return exitRegressions
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return exitFailure
	}
}
