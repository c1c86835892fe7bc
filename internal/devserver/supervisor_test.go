package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentkit-ai/agentkit/internal/runtimeid"
	"github.com/agentkit-ai/agentkit/internal/spawn"
)

func healthyHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(FlowsPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func testIdentity() runtimeid.Identity {
	return runtimeid.Identity{
		Kind:     runtimeid.KindBinary,
		ExecPath: "/usr/local/bin/agentkit",
		Platform: runtimeid.PlatformPosix,
	}
}

func testSupervisor(t *testing.T, serverURL string) (*Supervisor, string) {
	t.Helper()
	recordPath := filepath.Join(t.TempDir(), "devui.json")
	sup := &Supervisor{
		RecordPath: recordPath,
		LogPath:    filepath.Join(t.TempDir(), "devui.log"),
		Health:     HealthChecker{Interval: 10 * time.Millisecond, Budget: time.Second},
		Identify:   func() (runtimeid.Identity, error) { return testIdentity(), nil },
		CanExecute: func(string) bool { return true },
		Spawn:      func(spawn.Config) error { return nil },
		FreePort:   func() (int, error) { return 4100, nil },
		BaseURL:    func(int) string { return serverURL },
	}
	return sup, recordPath
}

func TestStart_ReusesHealthyRecordedServer(t *testing.T) {
	ts := httptest.NewServer(healthyHandler())
	defer ts.Close()

	sup, recordPath := testSupervisor(t, ts.URL)
	if err := SaveRecord(recordPath, Record{URL: ts.URL, Timestamp: time.Now()}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	sup.Spawn = func(spawn.Config) error {
		t.Fatal("a healthy recorded server must not be respawned")
		return nil
	}

	res, err := sup.Start(context.Background(), StartOptions{Port: 4100})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Outcome != OutcomeReused || res.URL != ts.URL {
		t.Fatalf("result = %+v", res)
	}
}

func TestStart_StaleRecordStartsNewServerAndOverwritesRecord(t *testing.T) {
	ts := httptest.NewServer(healthyHandler())
	defer ts.Close()

	sup, recordPath := testSupervisor(t, ts.URL)
	// Points at a dead server; the probe gets connection refused.
	if err := SaveRecord(recordPath, Record{URL: "http://127.0.0.1:1", Timestamp: time.Now()}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	spawned := false
	sup.Spawn = func(spawn.Config) error { spawned = true; return nil }

	res, err := sup.Start(context.Background(), StartOptions{Port: 4100})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !spawned {
		t.Fatal("expected a new server to be spawned")
	}
	if res.Outcome != OutcomeStarted {
		t.Fatalf("outcome = %q", res.Outcome)
	}
	rec, ok := LoadRecord(recordPath)
	if !ok || rec.URL != ts.URL {
		t.Fatalf("record = %+v ok=%v, want url %q", rec, ok, ts.URL)
	}
}

func TestStart_AllocatesPortWhenUnset(t *testing.T) {
	ts := httptest.NewServer(healthyHandler())
	defer ts.Close()

	sup, _ := testSupervisor(t, ts.URL)
	allocated := false
	sup.FreePort = func() (int, error) { allocated = true; return 4321, nil }

	var builtFor spawn.Config
	sup.Spawn = func(cfg spawn.Config) error { builtFor = cfg; return nil }

	if _, err := sup.Start(context.Background(), StartOptions{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !allocated {
		t.Fatal("expected the free-port allocator to run")
	}
	if len(builtFor.Args) < 2 || builtFor.Args[1] != "4321" {
		t.Fatalf("spawn args = %v, want allocated port", builtFor.Args)
	}
}

func TestStart_ValidatorFailureIsAggregated(t *testing.T) {
	sup, recordPath := testSupervisor(t, "http://127.0.0.1:1")
	sup.CanExecute = func(string) bool { return false }
	sup.Spawn = func(spawn.Config) error {
		t.Fatal("spawn must not run when the executable check fails")
		return nil
	}

	_, err := sup.Start(context.Background(), StartOptions{Port: 4100})
	if !errors.Is(err, ErrStartFailed) {
		t.Fatalf("expected ErrStartFailed, got %v", err)
	}
	if _, ok := LoadRecord(recordPath); ok {
		t.Fatal("no record may be written on failure")
	}
}

func TestStart_SpawnErrorIsAggregated(t *testing.T) {
	sup, _ := testSupervisor(t, "http://127.0.0.1:1")
	sup.Spawn = func(spawn.Config) error { return errors.New("fork/exec: no such file or directory") }

	_, err := sup.Start(context.Background(), StartOptions{Port: 4100})
	if !errors.Is(err, ErrStartFailed) {
		t.Fatalf("expected ErrStartFailed, got %v", err)
	}
}

func TestStart_HealthTimeoutIsAggregatedAndWritesNoRecord(t *testing.T) {
	sup, recordPath := testSupervisor(t, "http://127.0.0.1:1")
	sup.Health = HealthChecker{Interval: 10 * time.Millisecond, Budget: 50 * time.Millisecond}

	_, err := sup.Start(context.Background(), StartOptions{Port: 4100})
	if !errors.Is(err, ErrStartFailed) {
		t.Fatalf("expected ErrStartFailed, got %v", err)
	}
	if _, ok := LoadRecord(recordPath); ok {
		t.Fatal("no record may be written when health never confirms")
	}
}

func TestStart_ConfigurationErrorsPropagateUnmodified(t *testing.T) {
	sup, _ := testSupervisor(t, "http://127.0.0.1:1")
	sup.Identify = func() (runtimeid.Identity, error) {
		return runtimeid.Identity{Kind: runtimeid.KindBinary, Platform: runtimeid.PlatformPosix}, nil
	}

	_, err := sup.Start(context.Background(), StartOptions{Port: 4100})
	if !errors.Is(err, spawn.ErrInvalidInput) {
		t.Fatalf("expected spawn.ErrInvalidInput, got %v", err)
	}
	if errors.Is(err, ErrStartFailed) {
		t.Fatal("configuration errors must not be masked by the aggregated message")
	}
}

func TestStart_MetadataWriteFailureIsNonFatal(t *testing.T) {
	ts := httptest.NewServer(healthyHandler())
	defer ts.Close()

	sup, _ := testSupervisor(t, ts.URL)
	// A record path whose parent is a regular file cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := SaveRecord(blocker, Record{URL: "x", Timestamp: time.Now()}); err != nil {
		t.Fatalf("seed blocker: %v", err)
	}
	sup.RecordPath = filepath.Join(blocker, "devui.json")

	res, err := sup.Start(context.Background(), StartOptions{Port: 4100})
	if err != nil {
		t.Fatalf("start should succeed despite the metadata failure: %v", err)
	}
	if res.Outcome != OutcomeStarted {
		t.Fatalf("outcome = %q", res.Outcome)
	}
}

func TestStart_FlowsProbeFailureNeverChangesOutcome(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(FlowsPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	sup, _ := testSupervisor(t, ts.URL)
	res, err := sup.Start(context.Background(), StartOptions{Port: 4100})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Outcome != OutcomeStarted {
		t.Fatalf("outcome = %q", res.Outcome)
	}
	if res.FlowsVisible {
		t.Fatal("flows probe should report not visible")
	}
}

func TestStart_OpenBrowserFailureIsSwallowed(t *testing.T) {
	ts := httptest.NewServer(healthyHandler())
	defer ts.Close()

	sup, _ := testSupervisor(t, ts.URL)
	sup.OpenBrowser = func(string) error { return errors.New("no display") }

	res, err := sup.Start(context.Background(), StartOptions{Port: 4100, Open: true})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Outcome != OutcomeStarted {
		t.Fatalf("outcome = %q", res.Outcome)
	}
}

func TestFreePort(t *testing.T) {
	port, err := FreePort()
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	if port <= 0 || port > 65535 {
		t.Fatalf("port %d out of range", port)
	}
}
