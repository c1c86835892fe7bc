package devserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/agentkit-ai/agentkit/internal/config"
	"github.com/agentkit-ai/agentkit/internal/runtimeid"
	"github.com/agentkit-ai/agentkit/internal/spawn"
)

// ErrStartFailed is the one failure users see. Pre-flight, spawn and
// health failures all converge on it; the distinguishing cause is kept
// in debug logging only.
var ErrStartFailed = errors.New("failed to start Developer UI")

type Outcome string

const (
	OutcomeReused  Outcome = "reused"
	OutcomeStarted Outcome = "started"
	OutcomeFailed  Outcome = "failed"
)

type StartOptions struct {
	Port int
	Open bool
}

type Result struct {
	URL     string
	Outcome Outcome
	// FlowsVisible is the best-effort content probe result. When false
	// the CLI prints a hint about enabling dev mode; it never changes
	// the overall outcome.
	FlowsVisible bool
}

// Supervisor decides whether an already-running dev server can be
// reused or a new one must be started, and walks a new server through
// spawn, health check and registration. Collaborators are fields so
// tests can substitute them; zero fields fall back to the real thing.
type Supervisor struct {
	RecordPath string
	LogPath    string
	Health     HealthChecker
	Client     *http.Client

	Identify    func() (runtimeid.Identity, error)
	CanExecute  func(string) bool
	Spawn       func(spawn.Config) error
	FreePort    func() (int, error)
	BaseURL     func(port int) string
	OpenBrowser func(string) error

	// OnStarting fires once the reuse check has failed and a new server
	// is about to be spawned. The CLI uses it for its "Starting" line.
	OnStarting func()
}

func NewSupervisor(recordPath, logPath string) *Supervisor {
	return &Supervisor{RecordPath: recordPath, LogPath: logPath}
}

// Start runs the ui:start protocol: reuse a healthy server if the
// project record points at one, otherwise spawn a new server, wait for
// health, and persist the record. Configuration errors (a broken
// runtime identity or spawn input) propagate as-is; every runtime
// failure converges on ErrStartFailed.
func (s *Supervisor) Start(ctx context.Context, opts StartOptions) (Result, error) {
	if rec, ok := LoadRecord(s.RecordPath); ok {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		healthy := Probe(probeCtx, s.client(), rec.URL)
		cancel()
		if healthy {
			return Result{URL: rec.URL, Outcome: OutcomeReused, FlowsVisible: s.probeFlows(ctx, rec.URL)}, nil
		}
		debugf("recorded dev server %s is not answering, starting a new one", rec.URL)
	}

	if s.OnStarting != nil {
		s.OnStarting()
	}

	port := opts.Port
	if port <= 0 {
		allocated, err := s.freePort()
		if err != nil {
			debugf("free port allocation failed: %v", err)
			return Result{Outcome: OutcomeFailed}, ErrStartFailed
		}
		port = allocated
	}

	id, err := s.identify()
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	cfg, err := spawn.Build(id, port, s.LogPath)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}

	if canExec := s.canExecute(); !canExec(id.ExecPath) {
		debugf("executable check failed for %s", id.ExecPath)
		return Result{Outcome: OutcomeFailed}, ErrStartFailed
	}
	if err := s.spawnFn()(cfg); err != nil {
		debugf("spawn failed: %v", err)
		return Result{Outcome: OutcomeFailed}, ErrStartFailed
	}

	url := s.baseURL(port)
	if err := s.Health.Wait(ctx, url); err != nil {
		debugf("health check failed: %v", err)
		return Result{Outcome: OutcomeFailed}, ErrStartFailed
	}

	// The server is usable even if the CLI cannot remember it.
	if err := SaveRecord(s.RecordPath, Record{URL: url, Timestamp: time.Now().UTC()}); err != nil {
		log.Printf("metadata write failed, server will continue running: %v", err)
	}

	if opts.Open {
		if err := s.openBrowser()(url); err != nil {
			debugf("browser open failed: %v", err)
		}
	}

	return Result{URL: url, Outcome: OutcomeStarted, FlowsVisible: s.probeFlows(ctx, url)}, nil
}

// probeFlows checks the application-introspection endpoint. Any failure
// is silent; the result only decides which hint the CLI prints.
func (s *Supervisor) probeFlows(ctx context.Context, baseURL string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, baseURL+FlowsPath, nil)
	if err != nil {
		return false
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (s *Supervisor) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: 2 * time.Second}
}

func (s *Supervisor) identify() (runtimeid.Identity, error) {
	if s.Identify != nil {
		return s.Identify()
	}
	return runtimeid.Identify(runtimeid.CurrentProcess())
}

func (s *Supervisor) canExecute() func(string) bool {
	if s.CanExecute != nil {
		return s.CanExecute
	}
	return runtimeid.CanExecute
}

func (s *Supervisor) spawnFn() func(spawn.Config) error {
	if s.Spawn != nil {
		return s.Spawn
	}
	return func(cfg spawn.Config) error {
		cmd := cfg.Cmd()
		if err := cmd.Start(); err != nil {
			return err
		}
		// Reap the child if it exits while the CLI is still around.
		go func() { _ = cmd.Wait() }()
		return nil
	}
}

func (s *Supervisor) freePort() (int, error) {
	if s.FreePort != nil {
		return s.FreePort()
	}
	return FreePort()
}

func (s *Supervisor) baseURL(port int) string {
	if s.BaseURL != nil {
		return s.BaseURL(port)
	}
	return fmt.Sprintf("http://localhost:%d", port)
}

func (s *Supervisor) openBrowser() func(string) error {
	if s.OpenBrowser != nil {
		return s.OpenBrowser
	}
	return OpenBrowser
}

// FreePort asks the kernel for an ephemeral port. No retry policy; the
// listener's own result is the answer.
func FreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to allocate a free port: %w", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

func debugf(format string, args ...any) {
	if config.ParseBoolEnv("AGENTKIT_DEBUG", false) {
		log.Printf("debug: "+format, args...)
	}
}
