// Package auditlog keeps an append-only record of engine actions in a
// standalone SQLite file, kept apart from the order ledger so it can be
// shipped off or truncated independently.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded engine action.
type Entry struct {
	ID           int64   `json:"id"`
	TS           int64   `json:"ts"`
	Action       string  `json:"action"` // submit | reconcile | push
	Venue        string  `json:"venue"`
	OrderID      int64   `json:"order_id"`
	ExternalID   string  `json:"external_id"`
	Status       string  `json:"status"`
	FilledAmount float64 `json:"filled_amount"`
	Note         string  `json:"note,omitempty"`
}

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open initializes the SQLite-backed audit log at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("audit log path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS engine_audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			action TEXT NOT NULL,
			venue TEXT,
			order_id INTEGER,
			external_id TEXT,
			status TEXT,
			filled_amount REAL,
			note TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_engine_audit_log_ts_id ON engine_audit_log(ts DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_engine_audit_log_order ON engine_audit_log(order_id, ts DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record appends one entry. TS defaults to now when unset.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("audit log store is not initialized")
	}
	ts := e.TS
	if ts == 0 {
		ts = time.Now().UTC().UnixMilli()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engine_audit_log (ts, action, venue, order_id, external_id, status, filled_amount, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts, e.Action, e.Venue, e.OrderID, e.ExternalID, e.Status, e.FilledAmount, e.Note)
	return err
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("audit log store is not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, action, venue, order_id, external_id, status, filled_amount, note
		FROM engine_audit_log ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TS, &e.Action, &e.Venue, &e.OrderID, &e.ExternalID, &e.Status, &e.FilledAmount, &e.Note); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
