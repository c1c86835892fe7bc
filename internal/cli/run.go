package cli

import (
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/agentkit-ai/agentkit/internal/config"
	"github.com/agentkit-ai/agentkit/internal/runtimes"
)

type runOptions struct {
	runtimeID string
	timeout   time.Duration
}

func parseRunArgs(args []string) (runOptions, []string) {
	opts := runOptions{timeout: 30 * time.Second}
	command := make([]string, 0, len(args))
	for i, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--id="):
			opts.runtimeID = strings.TrimSpace(strings.TrimPrefix(arg, "--id="))
		case strings.HasPrefix(arg, "--timeout="):
			raw := strings.TrimSpace(strings.TrimPrefix(arg, "--timeout="))
			seconds, err := strconv.Atoi(raw)
			if err != nil || seconds <= 0 {
				log.Fatalf("invalid --timeout value %q", raw)
			}
			opts.timeout = time.Duration(seconds) * time.Second
		case arg == "--":
			command = append(command, args[i+1:]...)
			return opts, command
		default:
			// First non-flag token starts the user command verbatim.
			command = append(command, args[i:]...)
			return opts, command
		}
	}
	return opts, command
}

// runApp launches a user application process and waits for it to
// announce a runtime, racing the announcement against the process's own
// lifetime.
func runApp(ctx context.Context, args []string) {
	opts, command := parseRunArgs(args)
	if len(command) == 0 {
		log.Fatal("usage: run [--id=runtime] [--timeout=seconds] <command ...>")
	}

	if err := config.LoadDotenv("."); err != nil {
		log.Printf("project .env unavailable: %v", err)
	}

	registry := runtimes.NewRegistry()
	watcher, err := runtimes.WatchDir(config.RuntimesDir(config.StateDir()), registry)
	if err != nil {
		log.Fatalf("failed to watch runtime announcements: %v", err)
	}
	defer func() { _ = watcher.Close() }()

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Start(); err != nil {
		log.Fatalf("failed to start %q: %v", command[0], err)
	}

	proc := make(chan error, 1)
	go func() { proc <- cmd.Wait() }()

	if err := runtimes.WaitForRegistration(ctx, registry, opts.runtimeID, proc, opts.timeout); err != nil {
		if errors.Is(err, runtimes.ErrWaitTimeout) {
			_ = cmd.Process.Kill()
		}
		log.Fatalf("runtime did not register: %v", err)
	}

	if opts.runtimeID != "" {
		statusf("✅", "Runtime %q registered", opts.runtimeID)
	} else if listed := registry.List(); len(listed) > 0 {
		statusf("✅", "Runtime %q registered", listed[0].ID)
	}

	// Stay attached until the application exits.
	if err := <-proc; err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		log.Fatalf("application failed: %v", err)
	}
}
