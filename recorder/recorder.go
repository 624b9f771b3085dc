// Package recorder persists periodic loop statistics snapshots to SQLite for
// offline inspection of overlay health (flush rate, drops, datagram volume).
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"waybeam/sqliteutil"
)

// Snapshot is one row of accumulated loop counters.
type Snapshot struct {
	TakenAt        time.Time
	Datagrams      uint64
	Flushes        uint64
	Discarded      uint64
	Duplicates     uint64
	DroppedUpdates uint64
	Rate           float64
	Assets         int
}

// Recorder writes gated snapshots into SQLite and prunes old rows. One
// insert per interval; the write happens on the caller's goroutine, which is
// acceptable at minute granularity.
type Recorder struct {
	db       *sql.DB
	interval time.Duration
	retain   time.Duration
	last     time.Time
}

// New opens (or creates) the snapshot database at path. The file is
// preflight-checked first so a corrupted database cannot stall startup.
func New(path string, interval, retain time.Duration) (*Recorder, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("recorder: ensure dir: %w", err)
	}
	if _, err := sqliteutil.Preflight(path, "recorder", 2*time.Second); err != nil {
		return nil, fmt.Errorf("recorder: preflight: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Recorder{db: db, interval: interval, retain: retain}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS stat_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    taken_at INTEGER NOT NULL,
    datagrams INTEGER,
    flushes INTEGER,
    discarded INTEGER,
    duplicates INTEGER,
    dropped_updates INTEGER,
    rate REAL,
    assets INTEGER
);
CREATE INDEX IF NOT EXISTS idx_stat_snapshots_taken_at ON stat_snapshots(taken_at);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("recorder: init schema: %w", err)
	}
	return nil
}

// MaybeRecord inserts the snapshot when the interval since the last insert
// has elapsed, then prunes rows past retention. Reports whether a row was
// written.
func (r *Recorder) MaybeRecord(now time.Time, s Snapshot) (bool, error) {
	if r == nil || r.db == nil {
		return false, nil
	}
	if !r.last.IsZero() && now.Sub(r.last) < r.interval {
		return false, nil
	}
	r.last = now
	_, err := r.db.Exec(`
INSERT INTO stat_snapshots (
    taken_at, datagrams, flushes, discarded, duplicates, dropped_updates, rate, assets
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		now.Unix(), s.Datagrams, s.Flushes, s.Discarded, s.Duplicates,
		s.DroppedUpdates, s.Rate, s.Assets)
	if err != nil {
		return false, fmt.Errorf("recorder: insert: %w", err)
	}
	if r.retain > 0 {
		cutoff := now.Add(-r.retain).Unix()
		if _, err := r.db.Exec(`DELETE FROM stat_snapshots WHERE taken_at < ?`, cutoff); err != nil {
			return true, fmt.Errorf("recorder: prune: %w", err)
		}
	}
	return true, nil
}

// Recent returns up to n snapshots, newest first.
func (r *Recorder) Recent(n int) ([]Snapshot, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	rows, err := r.db.Query(`
SELECT taken_at, datagrams, flushes, discarded, duplicates, dropped_updates, rate, assets
FROM stat_snapshots ORDER BY taken_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recorder: query: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var at int64
		if err := rows.Scan(&at, &s.Datagrams, &s.Flushes, &s.Discarded,
			&s.Duplicates, &s.DroppedUpdates, &s.Rate, &s.Assets); err != nil {
			return nil, fmt.Errorf("recorder: scan: %w", err)
		}
		s.TakenAt = time.Unix(at, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
