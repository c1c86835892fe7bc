package runtimes

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher feeds a Registry from a directory of runtime announcement
// files. A user application process announces itself by writing
// <id>.json into the directory on startup and removing it on exit.
type Watcher struct {
	dir      string
	registry *Registry
	fs       *fsnotify.Watcher
	done     chan struct{}
}

// WatchDir creates the directory if needed, loads announcements already
// present, and then follows filesystem events.
func WatchDir(dir string, registry *Registry) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runtimes dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create runtimes watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch runtimes dir: %w", err)
	}
	w := &Watcher{dir: dir, registry: registry, fs: fsw, done: make(chan struct{})}
	w.scan()
	go w.loop()
	return w, nil
}

func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		w.load(filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			switch {
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				w.load(event.Name)
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				w.registry.Remove(idFromPath(event.Name))
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("runtimes watcher error: %v", err)
		}
	}
}

func (w *Watcher) load(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		// Create events can race the writer; the follow-up Write event
		// will retry.
		return
	}
	var rt Runtime
	if err := json.Unmarshal(raw, &rt); err != nil {
		log.Printf("runtime file %s skipped: %v", path, err)
		return
	}
	if rt.ID == "" {
		rt.ID = idFromPath(path)
	}
	w.registry.Add(rt)
}

func idFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".json")
}
