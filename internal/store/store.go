// Package store persists answer history, learning profiles, insights and the
// question bank in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/examprep/internal/model"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed Repository.
type Store struct {
	db  *sql.DB
	seq *sequence
}

var _ Repository = (*Store)(nil)

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas, creates missing tables and seeds the
// default domain catalog.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := openSequence(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, seq: seq}
	if err := s.seedDomains(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed domains: %w", err)
	}
	return s, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// builder returns an ent SQL builder for the SQLite dialect.
func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// applyPragmas configures SQLite for a single writer with concurrent readers.
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
	`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS answer_events (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		domain_id TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		methodology TEXT NOT NULL DEFAULT '',
		is_correct INTEGER NOT NULL,
		time_spent_ms INTEGER NOT NULL,
		answered_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS answer_events_user_seq ON answer_events (user_id, seq)`,
	`CREATE INDEX IF NOT EXISTS answer_events_user_time ON answer_events (user_id, answered_at)`,
	`CREATE TABLE IF NOT EXISTS learning_profiles (
		user_id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		last_calculated_at INTEGER NOT NULL,
		total_answered INTEGER NOT NULL,
		masteries TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS insights (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		priority TEXT NOT NULL,
		domain_id TEXT NOT NULL DEFAULT '',
		action_url TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS insights_user_seq ON insights (user_id, seq)`,
	`CREATE TABLE IF NOT EXISTS domains (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		weight REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		domain_id TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		methodology TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		choices TEXT NOT NULL,
		correct_index INTEGER NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS questions_domain ON questions (domain_id, difficulty)`,
}

func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) seedDomains(ctx context.Context) error {
	var n int
	query, args := builder().Select(entsql.Count("*")).From(entsql.Table("domains")).Query()
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.UpsertDomains(ctx, model.DefaultDomains())
}

// DefaultDBPath resolves the database file path in priority order:
// 1. EXAMPREP_DB environment variable
// 2. $XDG_DATA_HOME/examprep/examprep.db
// 3. ~/.local/share/examprep/examprep.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("EXAMPREP_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "examprep", "examprep.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
