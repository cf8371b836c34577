package cmd

import (
	"errors"
	"fmt"
)

// matchExit is returned by match to signal a specific exit code.
// Like grep: 0=found, 1=nothing found, 2=error.
type matchExit struct{ code int }

func (e matchExit) Error() string {
	switch e.code {
	case 0:
		return ""
	case 1:
		return "no license found"
	default:
		return fmt.Sprintf("match error (exit %d)", e.code)
	}
}

// ExitCode extracts the exit code from a matchExit error.
// Returns -1 if the error is not a matchExit.
func ExitCode(err error) int {
	var me matchExit
	if errors.As(err, &me) {
		return me.code
	}
	return -1
}
