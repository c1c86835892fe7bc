// Package history records dev server launches in a small sqlite
// database so `ui:history` can show what the supervisor did on past
// runs. Writes are best-effort: the CLI never fails a start because the
// history could not be recorded.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const defaultLimit = 20

type Launch struct {
	ID         string
	URL        string
	Port       int
	Outcome    string
	Detail     string
	DurationMs int64
	CreatedAt  time.Time
}

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable wal: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) SaveLaunch(ctx context.Context, launch Launch) error {
	if s == nil || s.db == nil {
		return nil
	}
	if launch.ID == "" {
		launch.ID = uuid.NewString()
	}
	if launch.CreatedAt.IsZero() {
		launch.CreatedAt = time.Now().UTC()
	}
	if strings.TrimSpace(launch.Outcome) == "" {
		return fmt.Errorf("launch outcome is required")
	}
	const q = `
INSERT INTO launches (launch_id, url, port, outcome, detail, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(
		ctx,
		q,
		launch.ID,
		launch.URL,
		launch.Port,
		launch.Outcome,
		launch.Detail,
		launch.DurationMs,
		launch.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save launch: %w", err)
	}
	return nil
}

// ListLaunches returns the most recent launches, newest first.
func (s *Store) ListLaunches(ctx context.Context, limit int) ([]Launch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	const q = `
SELECT launch_id, url, port, outcome, detail, duration_ms, created_at
FROM launches
ORDER BY created_at DESC
LIMIT ?;
`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list launches: %w", err)
	}
	defer rows.Close()

	out := make([]Launch, 0, limit)
	for rows.Next() {
		var (
			launch Launch
			tsRaw  string
		)
		if err := rows.Scan(
			&launch.ID,
			&launch.URL,
			&launch.Port,
			&launch.Outcome,
			&launch.Detail,
			&launch.DurationMs,
			&tsRaw,
		); err != nil {
			return nil, fmt.Errorf("failed to scan launch: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, tsRaw); err == nil {
			launch.CreatedAt = ts
		}
		out = append(out, launch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate launches: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
