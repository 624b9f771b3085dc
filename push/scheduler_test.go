package push

import (
	"testing"
	"time"
)

func TestSchedulerDefaults(t *testing.T) {
	s := NewScheduler(0)
	if s.Window() != DefaultWindow {
		t.Fatalf("expected default window %v; got %v", DefaultWindow, s.Window())
	}
	if s.Dirty() {
		t.Fatalf("expected a new scheduler to start clean")
	}
}

func TestSchedulerCoalesces(t *testing.T) {
	base := time.Unix(1000, 0)
	s := NewScheduler(32 * time.Millisecond)

	// First flush after start is allowed immediately.
	s.MarkDirty(base)
	if !s.ShouldFlush(base) {
		t.Fatalf("expected the first flush to be allowed immediately")
	}
	s.Flushed(base)

	// Marks inside the window are held back.
	s.MarkDirty(base.Add(5 * time.Millisecond))
	s.MarkDirty(base.Add(10 * time.Millisecond))
	if s.ShouldFlush(base.Add(20 * time.Millisecond)) {
		t.Fatalf("expected no flush inside the window")
	}
	if !s.ShouldFlush(base.Add(32 * time.Millisecond)) {
		t.Fatalf("expected a flush once the window elapsed")
	}

	// The reported delay spans back to the first mark of the batch.
	if d := s.Flushed(base.Add(32 * time.Millisecond)); d != 27*time.Millisecond {
		t.Fatalf("expected 27ms coalescing delay; got %v", d)
	}
	if s.Dirty() {
		t.Fatalf("expected flush to clear the dirty flag")
	}
}

func TestSchedulerNextWait(t *testing.T) {
	base := time.Unix(1000, 0)
	idle := 250 * time.Millisecond
	s := NewScheduler(32 * time.Millisecond)

	if w := s.NextWait(base, idle); w != idle {
		t.Fatalf("expected idle cap %v when clean; got %v", idle, w)
	}

	s.MarkDirty(base)
	s.Flushed(base)
	s.MarkDirty(base.Add(10 * time.Millisecond))
	if w := s.NextWait(base.Add(10*time.Millisecond), idle); w != 22*time.Millisecond {
		t.Fatalf("expected 22ms remainder; got %v", w)
	}
	if w := s.NextWait(base.Add(time.Second), idle); w != 0 {
		t.Fatalf("expected zero wait for an overdue flush; got %v", w)
	}

	// A tiny idle cap wins over the window remainder.
	s.MarkDirty(base.Add(2 * time.Second))
	if w := s.NextWait(base.Add(2*time.Second), 5*time.Millisecond); w != 0 {
		t.Fatalf("expected zero wait when overdue regardless of cap; got %v", w)
	}
}
