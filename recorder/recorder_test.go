package recorder

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestRecorder(t *testing.T, interval, retain time.Duration) *Recorder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats.db")
	r, err := New(path, interval, retain)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecorderGatesInterval(t *testing.T) {
	r := newTestRecorder(t, time.Minute, 0)
	base := time.Unix(100000, 0)

	wrote, err := r.MaybeRecord(base, Snapshot{Datagrams: 10, Rate: 29.5, Assets: 2})
	if err != nil || !wrote {
		t.Fatalf("expected the first snapshot to write; got wrote=%v err=%v", wrote, err)
	}
	wrote, err = r.MaybeRecord(base.Add(30*time.Second), Snapshot{Datagrams: 20})
	if err != nil || wrote {
		t.Fatalf("expected the gate to hold; got wrote=%v err=%v", wrote, err)
	}
	wrote, err = r.MaybeRecord(base.Add(time.Minute), Snapshot{Datagrams: 30})
	if err != nil || !wrote {
		t.Fatalf("expected the gate to open; got wrote=%v err=%v", wrote, err)
	}

	snaps, err := r.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 rows; got %d", len(snaps))
	}
	if snaps[0].Datagrams != 30 || snaps[1].Datagrams != 10 {
		t.Fatalf("expected newest first; got %+v", snaps)
	}
	if snaps[1].Rate != 29.5 || snaps[1].Assets != 2 {
		t.Fatalf("expected fields round-tripped; got %+v", snaps[1])
	}
}

func TestRecorderPrunesRetention(t *testing.T) {
	r := newTestRecorder(t, time.Minute, time.Hour)
	base := time.Unix(100000, 0)

	if _, err := r.MaybeRecord(base, Snapshot{Datagrams: 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Two hours later the first row is past retention.
	if _, err := r.MaybeRecord(base.Add(2*time.Hour), Snapshot{Datagrams: 2}); err != nil {
		t.Fatalf("record: %v", err)
	}
	snaps, err := r.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Datagrams != 2 {
		t.Fatalf("expected only the fresh row; got %+v", snaps)
	}
}

func TestRecorderNilSafe(t *testing.T) {
	var r *Recorder
	if wrote, err := r.MaybeRecord(time.Now(), Snapshot{}); wrote || err != nil {
		t.Fatalf("expected nil recorder to be inert")
	}
	if snaps, err := r.Recent(5); snaps != nil || err != nil {
		t.Fatalf("expected nil recorder to return nothing")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("expected nil close to succeed")
	}
}
