package cli

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agentkit-ai/agentkit/internal/config"
	"github.com/agentkit-ai/agentkit/internal/devserver"
	"github.com/agentkit-ai/agentkit/internal/history"
)

type uiStartOptions struct {
	port int
	open bool
}

func parseUIStartArgs(args []string) uiStartOptions {
	opts := uiStartOptions{
		port: config.ParseIntEnv("AGENTKIT_UI_PORT", 0),
		open: config.ParseBoolEnv("AGENTKIT_UI_OPEN", false),
	}
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--port="):
			raw := strings.TrimSpace(strings.TrimPrefix(arg, "--port="))
			port, err := strconv.Atoi(raw)
			if err != nil {
				log.Fatalf("invalid --port value %q", raw)
			}
			opts.port = port
		case arg == "--open":
			opts.open = true
		case strings.HasPrefix(arg, "--open="):
			opts.open = config.ParseBoolString(strings.TrimPrefix(arg, "--open="), opts.open)
		default:
			log.Fatalf("unknown ui:start flag %q", arg)
		}
	}
	return opts
}

func runUIStart(ctx context.Context, args []string) {
	opts := parseUIStartArgs(args)
	stateDir := config.StateDir()

	sup := devserver.NewSupervisor(
		config.ServerRecordPath(stateDir),
		filepath.Join(stateDir, "devui.log"),
	)
	sup.OnStarting = func() {
		statusf("⏳", "Starting Developer UI...")
	}

	startedAt := time.Now()
	res, err := sup.Start(ctx, devserver.StartOptions{Port: opts.port, Open: opts.open})
	recordLaunch(ctx, stateDir, opts.port, res, err, time.Since(startedAt))

	if err != nil {
		log.Fatalf("%v", err)
	}
	switch res.Outcome {
	case devserver.OutcomeReused:
		statusf("✅", "Developer UI already running at %s", res.URL)
	case devserver.OutcomeStarted:
		statusf("✅", "Developer UI ready at %s", res.URL)
	}
	if !res.FlowsVisible {
		statusf("💡", "No flows visible yet. Enable dev mode in your application so the Developer UI can inspect it.")
	}
}

// recordLaunch appends a launch-history row. History is a convenience:
// any failure here is logged and discarded.
func recordLaunch(ctx context.Context, stateDir string, requestedPort int, res devserver.Result, startErr error, elapsed time.Duration) {
	store, err := history.New(config.HistoryDBPath(stateDir))
	if err != nil {
		log.Printf("launch history unavailable: %v", err)
		return
	}
	defer func() { _ = store.Close() }()

	launch := history.Launch{
		URL:        res.URL,
		Port:       requestedPort,
		Outcome:    string(res.Outcome),
		DurationMs: elapsed.Milliseconds(),
	}
	if startErr != nil {
		launch.Outcome = string(devserver.OutcomeFailed)
		launch.Detail = startErr.Error()
	}
	if err := store.SaveLaunch(ctx, launch); err != nil {
		log.Printf("launch history write failed: %v", err)
	}
}

func runUIStop(ctx context.Context, args []string) {
	if len(args) > 0 {
		log.Fatalf("unknown ui:stop flag %q", args[0])
	}
	recordPath := config.ServerRecordPath(config.StateDir())
	rec, ok := devserver.LoadRecord(recordPath)
	if !ok {
		statusf("ℹ️", "No Developer UI is running")
		return
	}

	client := &http.Client{Timeout: 2 * time.Second}
	if !devserver.Probe(ctx, client, rec.URL) {
		if err := devserver.ClearRecord(recordPath); err != nil {
			log.Printf("stale record cleanup failed: %v", err)
		}
		statusf("ℹ️", "No Developer UI is running (cleared a stale record)")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rec.URL+"/api/v1/shutdown", nil)
	if err != nil {
		log.Fatalf("failed to stop Developer UI: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("failed to stop Developer UI: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Fatalf("failed to stop Developer UI: server answered %d", resp.StatusCode)
	}
	if err := devserver.ClearRecord(recordPath); err != nil {
		log.Printf("record cleanup failed: %v", err)
	}
	statusf("✅", "Developer UI at %s stopped", rec.URL)
}

func runUIHistory(ctx context.Context, args []string) {
	limit := 20
	for _, arg := range args {
		if strings.HasPrefix(arg, "--limit=") {
			raw := strings.TrimSpace(strings.TrimPrefix(arg, "--limit="))
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				log.Fatalf("invalid --limit value %q", raw)
			}
			limit = parsed
		} else {
			log.Fatalf("unknown ui:history flag %q", arg)
		}
	}

	store, err := history.New(config.HistoryDBPath(config.StateDir()))
	if err != nil {
		log.Fatalf("launch history unavailable: %v", err)
	}
	defer func() { _ = store.Close() }()

	launches, err := store.ListLaunches(ctx, limit)
	if err != nil {
		log.Fatalf("failed to list launch history: %v", err)
	}
	if len(launches) == 0 {
		statusf("ℹ️", "No Developer UI launches recorded yet")
		return
	}
	for _, launch := range launches {
		line := launch.CreatedAt.Local().Format("2006-01-02 15:04:05") + "  " + launch.Outcome
		if launch.URL != "" {
			line += "  " + launch.URL
		}
		if launch.Detail != "" {
			line += "  (" + launch.Detail + ")"
		}
		statusf("•", "%s", line)
	}
}
