package cli

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/agentkit-ai/agentkit/internal/config"
	"github.com/agentkit-ai/agentkit/internal/devserver"
)

// runHarness is the internal sub-command the supervisor spawns. It runs
// the actual Developer UI server in the foreground of the child
// process.
func runHarness(ctx context.Context, args []string) {
	if len(args) < 2 {
		log.Fatal("usage: server-harness <port> <log-path>")
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port < 0 || port > 65535 {
		log.Fatalf("invalid harness port %q", args[0])
	}
	logPath := args[1]

	harness := devserver.NewHarness(port, logPath, config.StateDir())
	if err := harness.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("dev server failed: %v", err)
	}
}
