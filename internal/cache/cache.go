// Package cache keeps fetched months of records on disk in SQLite so
// completed months are not fetched again after a restart.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/jpalmerr/vitalboard/record"
)

// Observer receives cache hit and miss events.
type Observer interface {
	CacheLookup(hit bool)
}

// SQLite is a record cache backed by a single SQLite table of JSON blobs
// keyed by feed and period.
type SQLite struct {
	db       *sql.DB
	path     string
	observer Observer
}

// Option configures [SQLite].
type Option func(*SQLite)

// WithObserver sets the hit/miss instrumentation sink.
func WithObserver(o Observer) Option {
	return func(s *SQLite) {
		s.observer = o
	}
}

// Open opens or creates the cache database at path. Parent directories are
// created as needed. The special path ":memory:" keeps the cache in memory.
func Open(path string, opts ...Option) (*SQLite, error) {
	if path == "" {
		path = "vitalboard.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS months (
		feed TEXT NOT NULL,
		period TEXT NOT NULL,
		payload BLOB NOT NULL,
		stored_at INTEGER NOT NULL,
		PRIMARY KEY (feed, period)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create months table: %w", err)
	}

	s := &SQLite{db: db, path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the database path.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get returns the cached records for feed and period.
func (s *SQLite) Get(ctx context.Context, feed string, period record.Period) ([]record.Record, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM months WHERE feed = ? AND period = ?`,
		feed, period.String(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		s.lookup(false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select month: %w", err)
	}

	var records []record.Record
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, fmt.Errorf("decode month %s/%s: %w", feed, period, err)
	}
	s.lookup(true)
	return records, true, nil
}

// Put stores records for feed and period, replacing any previous entry.
func (s *SQLite) Put(ctx context.Context, feed string, period record.Period, records []record.Record) error {
	if records == nil {
		records = []record.Record{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode month %s/%s: %w", feed, period, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO months (feed, period, payload, stored_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(feed, period) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at`,
		feed, period.String(), payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert month: %w", err)
	}
	return nil
}

// Purge deletes every cached month for feed.
func (s *SQLite) Purge(ctx context.Context, feed string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM months WHERE feed = ?`, feed); err != nil {
		return fmt.Errorf("delete months: %w", err)
	}
	return nil
}

func (s *SQLite) lookup(hit bool) {
	if s.observer != nil {
		s.observer.CacheLookup(hit)
	}
}
