package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
)

// isStdoutTTY reports whether stdout is a terminal.
func isStdoutTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// isStdinPipe reports whether stdin carries input: a pipe or a redirected
// file. Terminals and /dev/null do not.
func isStdinPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	m := fi.Mode()
	return m&os.ModeNamedPipe != 0 || m.IsRegular()
}

// resolveColor maps the --color value ("auto", "always" or "never") to a
// yes/no. Auto colors terminals unless NO_COLOR is set.
func resolveColor(colorFlag string) bool {
	switch colorFlag {
	case "always":
		return true
	case "never":
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		return isStdoutTTY()
	}
}
