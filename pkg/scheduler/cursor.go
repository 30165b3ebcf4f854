package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Cursor persists the next window start of recurring runs, one row per
// key. It is backed by a single-writer SQLite database.
type Cursor struct {
	db   *sql.DB
	path string
}

// OpenCursor opens or creates the cursor database at path.
func OpenCursor(path string, busyTimeout time.Duration) (*Cursor, error) {
	if path == "" {
		return nil, fmt.Errorf("cursor path cannot be empty")
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cursor directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	c := &Cursor{db: db, path: path}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cursor schema: %w", err)
	}
	return c, nil
}

func (c *Cursor) initSchema() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS window_cursor (
		key TEXT PRIMARY KEY,
		next_start INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`)
	return err
}

// Next returns the stored start for key, or 0 when none is stored.
func (c *Cursor) Next(ctx context.Context, key string) (int, error) {
	var next int
	err := c.db.QueryRowContext(ctx, `SELECT next_start FROM window_cursor WHERE key = ?`, key).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cursor %q: %w", key, err)
	}
	return next, nil
}

// Advance stores next as the start of the following window for key.
func (c *Cursor) Advance(ctx context.Context, key string, next int) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO window_cursor (key, next_start, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			next_start = excluded.next_start,
			updated_at = excluded.updated_at
	`, key, next, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to advance cursor %q: %w", key, err)
	}
	return nil
}

// Reset deletes the stored start for key.
func (c *Cursor) Reset(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM window_cursor WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to reset cursor %q: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (c *Cursor) Close() error {
	return c.db.Close()
}
