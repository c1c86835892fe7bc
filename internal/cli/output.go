package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// statusf prints a user-facing status line, with a small decoration
// when stdout is an interactive terminal.
func statusf(icon string, format string, args ...any) {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		fmt.Printf(icon+" "+format+"\n", args...)
		return
	}
	fmt.Printf(format+"\n", args...)
}
