// Package spawn builds the platform-safe command line used to launch
// the dev server child process. Windows shell-based process creation
// re-tokenizes the command line, so every token must be pre-quoted
// there, while POSIX exec-style spawning must pass tokens untouched.
// That asymmetry is isolated here, in one pure function with no I/O.
package spawn

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/agentkit-ai/agentkit/internal/runtimeid"
)

// HarnessCommand is the internal sub-command the child runs to start
// the actual dev server.
const HarnessCommand = "server-harness"

// ErrInvalidInput marks configuration errors: a bad port, log path or
// runtime identity handed to Build. These indicate a programming
// mistake and are signaled distinctly from spawn failures.
var ErrInvalidInput = errors.New("invalid spawn input")

const StdioIgnore = "ignore"

// Config is a ready-to-execute invocation, produced fresh per launch.
type Config struct {
	Command  string
	Args     []string
	UseShell bool
	Detached bool
	Stdio    [3]string
}

// Build produces the invocation for a dev server listening on port and
// logging to logPath, re-invoking the interpreter or binary named by
// the identity.
func Build(id runtimeid.Identity, port int, logPath string) (Config, error) {
	if strings.TrimSpace(id.ExecPath) == "" {
		return Config{}, fmt.Errorf("%w: runtime identity is missing an executable path", ErrInvalidInput)
	}
	if port < 0 || port > 65535 {
		return Config{}, fmt.Errorf("%w: port %d is outside [0, 65535]", ErrInvalidInput, port)
	}
	if strings.TrimSpace(logPath) == "" {
		return Config{}, fmt.Errorf("%w: log path is required", ErrInvalidInput)
	}

	args := make([]string, 0, 4)
	switch id.Kind {
	case runtimeid.KindNode, runtimeid.KindBun:
		if id.ScriptPath != "" {
			args = append(args, id.ScriptPath)
		}
	case runtimeid.KindBinary:
		// The binary re-executes itself, no script argument.
	}
	args = append(args, HarnessCommand, strconv.Itoa(port), logPath)

	cfg := Config{
		Command: id.ExecPath,
		Args:    args,
		Stdio:   [3]string{StdioIgnore, StdioIgnore, StdioIgnore},
	}
	if id.Platform == runtimeid.PlatformWindows {
		cfg.UseShell = true
		cfg.Command = quote(cfg.Command)
		for i, arg := range cfg.Args {
			cfg.Args[i] = quote(arg)
		}
	}
	return cfg, nil
}

func quote(token string) string {
	return `"` + token + `"`
}

// Cmd materializes the config into an exec.Cmd. Stdio stays detached
// from the parent (the child logs to its own log file), and the command
// carries no context: once health-checked the child outlives the CLI.
func (c Config) Cmd() *exec.Cmd {
	if c.UseShell {
		shellArgs := append([]string{"/C", c.Command}, c.Args...)
		return exec.Command("cmd", shellArgs...)
	}
	return exec.Command(c.Command, c.Args...)
}
