package sqliteutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestPreflightHealthy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "healthy.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, err := db.Exec("create table t (id integer)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	db.Close()

	quarantined, err := Preflight(path, "recorder", time.Second)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	if quarantined {
		t.Fatalf("expected healthy preflight, got quarantine")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected db to remain, stat failed: %v", err)
	}
}

func TestPreflightQuarantinesCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.db")
	if err := os.WriteFile(path, []byte("not a sqlite database"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	// Sidecars must move with the main file.
	sidecars := []string{path + "-wal", path + "-shm", path + "-journal"}
	for _, s := range sidecars {
		if err := os.WriteFile(s, []byte("sidecar"), 0o644); err != nil {
			t.Fatalf("write sidecar %s: %v", s, err)
		}
	}

	quarantined, err := Preflight(path, "recorder", time.Second)
	if err != nil {
		t.Fatalf("preflight expected quarantine, got error: %v", err)
	}
	if !quarantined {
		t.Fatalf("expected quarantine for corrupt file")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected original db to be renamed, stat err=%v", err)
	}
	moved, _ := filepath.Glob(path + ".bad-*")
	if len(moved) == 0 {
		t.Fatalf("expected a quarantined copy of the main file")
	}
	for _, s := range sidecars {
		if _, err := os.Stat(s); err == nil {
			t.Fatalf("expected sidecar %s to be moved or removed", s)
		}
	}
}

func TestPreflightEmptyPath(t *testing.T) {
	if _, err := Preflight("", "recorder", time.Second); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
