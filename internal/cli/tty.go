package cli

import (
	"os"

	"github.com/mattn/go-isatty"
)

// isTerminalFn is swapped out by tests.
var isTerminalFn = func(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// isInteractiveTTY is true when a person is likely at the keyboard.
func isInteractiveTTY() bool {
	return isTerminalFn(os.Stdin) && isTerminalFn(os.Stdout)
}

// colorWanted applies --no-color, NO_COLOR and terminal detection.
func colorWanted(noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminalFn(os.Stdout)
}
