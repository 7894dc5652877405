// Package ledger records every generation attempt in an embedded SQLite
// database. It is a best-effort audit trail: ledger failures are logged and
// never fail the request that triggered them.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS generations (
		request_id  TEXT PRIMARY KEY,
		world       TEXT NOT NULL,
		x           INTEGER NOT NULL,
		y           INTEGER NOT NULL,
		provider    TEXT NOT NULL,
		mode        TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		detail      TEXT,
		latency_ms  INTEGER NOT NULL,
		image_bytes INTEGER NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_generations_world ON generations(world)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at)`)
	return err
}

// Outcome values recorded per generation attempt.
const (
	OutcomeGenerated = "generated"
	OutcomeFailed    = "failed"
)

// Entry is one generation attempt.
type Entry struct {
	RequestID  string    `json:"requestId"`
	World      string    `json:"world"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Provider   string    `json:"provider"`
	Mode       string    `json:"mode"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	LatencyMS  int64     `json:"latencyMs"`
	ImageBytes int       `json:"imageBytes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Ledger writes and queries generation entries. A nil *Ledger is a no-op.
type Ledger struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (or creates) the ledger database and its schema.
func Open(path string, log *zap.Logger) (*Ledger, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}
	return &Ledger{db: db, log: log}, nil
}

// Record inserts one generation entry.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if l == nil || l.db == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO generations
		 (request_id, world, x, y, provider, mode, outcome, detail, latency_ms, image_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.World, e.X, e.Y, e.Provider, e.Mode, e.Outcome, e.Detail,
		e.LatencyMS, e.ImageBytes, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT request_id, world, x, y, provider, mode, outcome, detail, latency_ms, image_bytes, created_at
		 FROM generations ORDER BY created_at DESC, request_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent generations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var detail sql.NullString
		if err := rows.Scan(&e.RequestID, &e.World, &e.X, &e.Y, &e.Provider, &e.Mode,
			&e.Outcome, &detail, &e.LatencyMS, &e.ImageBytes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generation row: %w", err)
		}
		e.Detail = detail.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generation rows: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
