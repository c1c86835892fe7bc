package config

import (
	"os"
	"path/filepath"
	"strings"
)

// StateDir returns the per-project tool-state directory. Everything the
// CLI persists (the dev server record, runtime announcements, launch
// history) lives under it.
func StateDir() string {
	if dir := strings.TrimSpace(os.Getenv("AGENTKIT_STATE_DIR")); dir != "" {
		return dir
	}
	return "./.agentkit"
}

// ServerRecordPath is the JSON document naming the last known dev server.
func ServerRecordPath(stateDir string) string {
	return filepath.Join(stateDir, "devui.json")
}

// RuntimesDir is where user application processes announce their
// runtimes by writing <id>.json files.
func RuntimesDir(stateDir string) string {
	return filepath.Join(stateDir, "runtimes")
}

// HistoryDBPath is the sqlite launch-history database.
func HistoryDBPath(stateDir string) string {
	return filepath.Join(stateDir, "history.db")
}
