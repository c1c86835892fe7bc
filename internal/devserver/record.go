package devserver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record names the currently-running dev server for a project. It is
// written only after a new server is confirmed healthy and is always
// overwritten wholesale, never patched in place.
type Record struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// LoadRecord reads the record at path. A missing or unparsable file
// means "no server", not an error.
func LoadRecord(path string) (Record, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false
	}
	if rec.URL == "" {
		return Record{}, false
	}
	return rec, true
}

// SaveRecord overwrites the record at path, creating parent directories
// as needed.
func SaveRecord(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode server record: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write server record: %w", err)
	}
	return nil
}

// ClearRecord removes the record file. A missing file is not an error.
func ClearRecord(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove server record: %w", err)
	}
	return nil
}
