package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/agentkit-ai/agentkit/internal/config"
	"github.com/agentkit-ai/agentkit/internal/runtimes"
)

// FlowsPath is the application-introspection endpoint the supervisor
// probes after a successful start.
const FlowsPath = "/api/v1/flows"

// Harness is the embedded dev server the spawned child process runs via
// the server-harness sub-command. It serves the health and
// introspection API and mirrors runtime announcements from the
// project's state directory.
type Harness struct {
	port     int
	logPath  string
	stateDir string
	registry *runtimes.Registry
	mux      *http.ServeMux
	http     *http.Server
	logger   *log.Logger
	shutdown chan struct{}
	once     sync.Once
}

func NewHarness(port int, logPath string, stateDir string) *Harness {
	h := &Harness{
		port:     port,
		logPath:  logPath,
		stateDir: stateDir,
		registry: runtimes.NewRegistry(),
		mux:      http.NewServeMux(),
		logger:   log.Default(),
		shutdown: make(chan struct{}),
	}
	h.registerRoutes()
	h.http = &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", port), Handler: h.mux}
	return h
}

func (h *Harness) Handler() http.Handler {
	return h.mux
}

func (h *Harness) Registry() *runtimes.Registry {
	return h.registry
}

func (h *Harness) registerRoutes() {
	h.mux.HandleFunc(HealthPath, h.handleHealth)
	h.mux.HandleFunc("/api/v1/runtimes", h.handleRuntimes)
	h.mux.HandleFunc(FlowsPath, h.handleFlows)
	h.mux.HandleFunc("/api/v1/shutdown", h.handleShutdown)
}

// Run serves until ctx is cancelled or a shutdown request arrives. The
// harness logs to its own log file; its stdio is detached from the CLI
// that spawned it.
func (h *Harness) Run(ctx context.Context) error {
	if h.logPath != "" {
		logFile, err := os.OpenFile(h.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open dev server log: %w", err)
		}
		defer logFile.Close()
		h.logger = log.New(logFile, "", log.LstdFlags)
	}

	watcher, err := runtimes.WatchDir(config.RuntimesDir(h.stateDir), h.registry)
	if err != nil {
		h.logger.Printf("runtime announcements unavailable: %v", err)
	} else {
		defer func() { _ = watcher.Close() }()
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Printf("Developer UI listening on http://%s", h.http.Addr)
		err := h.http.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		h.stop()
		return ctx.Err()
	case <-h.shutdown:
		h.logger.Printf("shutdown requested")
		h.stop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (h *Harness) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.http.Shutdown(shutdownCtx); err != nil {
		h.logger.Printf("shutdown error: %v", err)
	}
}

func (h *Harness) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Harness) handleRuntimes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, h.registry.List())
}

func (h *Harness) handleFlows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	flows := make([]map[string]any, 0)
	for _, rt := range h.registry.List() {
		flows = append(flows, map[string]any{
			"runtimeId":     rt.ID,
			"name":          rt.Name,
			"reflectionUrl": rt.ReflectionURL,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"flows": flows})
}

func (h *Harness) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	h.once.Do(func() { close(h.shutdown) })
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, map[string]any{"error": msg})
}
