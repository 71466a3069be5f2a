// Package history keeps a ledger of webhook delivery outcomes in SQLite.
// The ledger is diagnostic only: a failed write never changes a webhook
// response.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one terminal webhook outcome.
type Record struct {
	ID        string
	Repo      string
	Event     string
	Status    string
	Detail    string
	CreatedAt time.Time
}

// Store wraps the ledger database. A nil *Store is a valid no-op ledger.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the ledger at path and ensures the
// table exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	if _, err := db.ExecContext(pctx, `CREATE TABLE IF NOT EXISTS delivery_log (
  id         TEXT PRIMARY KEY,
  repo       TEXT NOT NULL,
  event      TEXT NOT NULL,
  status     TEXT NOT NULL,
  detail     TEXT,
  created_at TEXT NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap delivery_log: %w", err)
	}

	return &Store{db: db}, nil
}

// Append records one outcome. Safe to call on a nil store.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if s == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO delivery_log(id, repo, event, status, detail, created_at) VALUES(?, ?, ?, ?, ?, ?);`,
		rec.ID, rec.Repo, rec.Event, rec.Status, rec.Detail,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}

// Recent returns up to n records, newest first. A nil store returns none.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	if s == nil {
		return nil, nil
	}
	if n <= 0 {
		n = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, repo, event, status, detail, created_at FROM delivery_log ORDER BY created_at DESC LIMIT ?;`, n)
	if err != nil {
		return nil, fmt.Errorf("query delivery_log: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var created string
		if err := rows.Scan(&rec.ID, &rec.Repo, &rec.Event, &rec.Status, &rec.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan delivery record: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.CreatedAt = ts
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery_log: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
