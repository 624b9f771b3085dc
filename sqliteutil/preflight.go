// Package sqliteutil guards SQLite files opened at startup. A database left
// behind by a crashed run can stall the first real query for a long time; the
// preflight bounds that cost and moves damaged files out of the way so the
// owner can start fresh.
package sqliteutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// sidecars that may accompany a SQLite main file.
var sidecarSuffixes = []string{"-wal", "-shm", "-journal"}

// Preflight runs a bounded WAL checkpoint and quick_check on path before the
// caller opens it for real. When either fails the file and its sidecars are
// renamed to a timestamped .bad-* path and quarantined reports true; the
// caller then starts with a fresh database. A timeout is fatal for the file.
func Preflight(path, role string, timeout time.Duration) (quarantined bool, err error) {
	if strings.TrimSpace(path) == "" {
		return false, errors.New("preflight: empty path")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("preflight: ensure dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return false, fmt.Errorf("preflight: open %s db: %w", role, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("pragma busy_timeout=%d", timeout.Milliseconds())); err != nil {
		db.Close()
		return false, fmt.Errorf("preflight: busy_timeout %s: %w", role, err)
	}

	_, cpErr := db.ExecContext(ctx, "pragma wal_checkpoint(TRUNCATE)")
	qcErr := quickCheck(ctx, db)
	db.Close()

	if cpErr == nil && qcErr == nil {
		return false, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return false, fmt.Errorf("preflight: %s db timed out after %s", role, timeout)
	}

	dest, qerr := quarantine(path)
	if qerr != nil {
		return false, fmt.Errorf("preflight: %s db quarantine: %w (checkpoint=%v, quick_check=%v)",
			role, qerr, cpErr, qcErr)
	}
	if cpErr != nil {
		log.Printf("%s db preflight: checkpoint failed (%v); quarantined to %s", role, cpErr, dest)
	} else {
		log.Printf("%s db preflight: quick_check failed (%v); quarantined to %s", role, qcErr, dest)
	}
	return true, nil
}

func quickCheck(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "pragma quick_check")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return err
		}
		if strings.TrimSpace(status) != "ok" {
			return fmt.Errorf("quick_check reported %q", status)
		}
	}
	return rows.Err()
}

// quarantine renames the main file and any present sidecars under a shared
// timestamp suffix and returns the new main-file path.
func quarantine(path string) (string, error) {
	ts := time.Now().UTC().Format("20060102T150405Z")
	targets := append([]string{path}, sidecarPaths(path)...)
	for _, t := range targets {
		if _, err := os.Stat(t); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		if err := os.Rename(t, t+".bad-"+ts); err != nil {
			return "", err
		}
	}
	return path + ".bad-" + ts, nil
}

func sidecarPaths(path string) []string {
	out := make([]string, 0, len(sidecarSuffixes))
	for _, s := range sidecarSuffixes {
		out = append(out, path+s)
	}
	return out
}
