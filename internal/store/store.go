// Package store persists fund registry, daily quota and benchmark
// series records in a single SQLite file. All appends are upserts keyed
// on the record identity, so re-applying a period can never create
// duplicates. Resume points are derived from the stored data itself.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the store at path and ensures the
// schema exists. Use ":memory:" for tests. The connection pool is
// capped at one connection: the store is single-writer by design.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the schema. Idempotent.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS funds (
		cnpj       TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		status     TEXT NOT NULL,
		class      TEXT NOT NULL,
		manager    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_quotas (
		cnpj         TEXT NOT NULL,
		date         TEXT NOT NULL,
		quota_value  REAL NOT NULL,
		net_assets   REAL NOT NULL,
		total_assets REAL NOT NULL,
		shareholders INTEGER NOT NULL,
		PRIMARY KEY (cnpj, date)
	);
	CREATE INDEX IF NOT EXISTS idx_quotas_date ON daily_quotas (date);

	CREATE TABLE IF NOT EXISTS benchmark_series (
		series TEXT NOT NULL,
		date   TEXT NOT NULL,
		value  REAL NOT NULL,
		PRIMARY KEY (series, date)
	);

	CREATE TABLE IF NOT EXISTS target_funds (
		cnpj TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id              TEXT PRIMARY KEY,
		kind            TEXT NOT NULL,
		started_at      TEXT NOT NULL,
		finished_at     TEXT NOT NULL,
		periods_fetched INTEGER NOT NULL,
		periods_skipped INTEGER NOT NULL,
		rows_inserted   INTEGER NOT NULL,
		rows_dropped    INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const dateLayout = "2006-01-02"

func dateStr(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
