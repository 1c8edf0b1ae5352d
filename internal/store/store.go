// Package store persists the demo server's users, content, game states and
// event log in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Store holds the database handle and the event sequence.
type Store struct {
	db  *sql.DB
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and runs migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas are per connection; one connection keeps them in force and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// applyPragmas configures SQLite for a small single-process server.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS problems (
		id                  INTEGER PRIMARY KEY,
		problem_type_bitmap INTEGER NOT NULL DEFAULT 0,
		expression          TEXT NOT NULL,
		answer              TEXT NOT NULL,
		difficulty          REAL NOT NULL DEFAULT 0,
		disabled            INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		id           INTEGER PRIMARY KEY,
		title        TEXT NOT NULL,
		url          TEXT NOT NULL,
		thumbnailurl TEXT NOT NULL DEFAULT '',
		disabled     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS user_has_video (
		user_id  INTEGER NOT NULL REFERENCES users(id),
		video_id INTEGER NOT NULL REFERENCES videos(id),
		PRIMARY KEY (user_id, video_id)
	)`,
	`CREATE TABLE IF NOT EXISTS gamestates (
		user_id    INTEGER PRIMARY KEY REFERENCES users(id),
		problem_id INTEGER NOT NULL,
		video_id   INTEGER NOT NULL,
		solved     INTEGER NOT NULL DEFAULT 0,
		target     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id         INTEGER PRIMARY KEY,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		timestamp  INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		value      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS events_user_id ON events (user_id, id)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDBPath resolves the demo database path:
// 1. MATHGAME_DEMO_DB environment variable
// 2. $XDG_DATA_HOME/mathgame/demo.db
// 3. ~/.local/share/mathgame/demo.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("MATHGAME_DEMO_DB"); p != "" {
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "mathgame", "demo.db")
	return p, ensureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return ensureDir(path)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
