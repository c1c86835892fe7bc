package cli

import (
	"context"
	"log"
	"strings"

	"github.com/agentkit-ai/agentkit/internal/spawn"
)

func Run(ctx context.Context, args []string) {
	if len(args) < 1 {
		printUsage()
		return
	}

	switch strings.TrimSpace(args[0]) {
	case "ui:start":
		runUIStart(ctx, args[1:])
	case "ui:stop":
		runUIStop(ctx, args[1:])
	case "ui:history":
		runUIHistory(ctx, args[1:])
	case "run":
		runApp(ctx, args[1:])
	case spawn.HarnessCommand:
		runHarness(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage()
	default:
		log.Fatalf("unknown command %q (see `agentkit help`)", args[0])
	}
}
