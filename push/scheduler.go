// Package push implements the frame coalescing policy: a dirty flag plus a
// minimum spacing between renderer flushes, so a burst of datagrams collapses
// into one visual update. The scheduler is pure state; the owning loop asks
// it when to flush and how long to sleep.
package push

import "time"

// DefaultWindow is the minimum spacing between flushes (~30 updates/s).
const DefaultWindow = 32 * time.Millisecond

// Scheduler coalesces change notifications into rate-capped flushes. Owned
// by the single loop goroutine; no locking.
type Scheduler struct {
	window     time.Duration
	dirty      bool
	dirtySince time.Time
	lastFlush  time.Time
}

// NewScheduler builds a scheduler with the given window; non-positive
// windows fall back to DefaultWindow.
func NewScheduler(window time.Duration) *Scheduler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Scheduler{window: window}
}

// Window returns the configured flush spacing.
func (s *Scheduler) Window() time.Duration { return s.window }

// MarkDirty records that observable state changed. The first mark of a batch
// pins the coalescing start so flush latency can be measured.
func (s *Scheduler) MarkDirty(now time.Time) {
	if !s.dirty {
		s.dirty = true
		s.dirtySince = now
	}
}

// Dirty reports whether a flush is pending.
func (s *Scheduler) Dirty() bool { return s.dirty }

// ShouldFlush reports whether a pending flush is allowed now: something is
// dirty and the window since the last flush has elapsed.
func (s *Scheduler) ShouldFlush(now time.Time) bool {
	return s.dirty && now.Sub(s.lastFlush) >= s.window
}

// Flushed clears the dirty flag, restarts the window and returns how long
// the oldest coalesced change waited.
func (s *Scheduler) Flushed(now time.Time) time.Duration {
	delay := time.Duration(0)
	if s.dirty {
		delay = now.Sub(s.dirtySince)
	}
	s.dirty = false
	s.lastFlush = now
	return delay
}

// Purpose: Bound how long the loop may block waiting for input.
// Key aspects: Up to idleCap when clean; otherwise the remainder of the
// coalescing window, zero when a flush is already allowed.
// Upstream: the reconciliation loop before its socket wait.
// Downstream: none (pure computation).
func (s *Scheduler) NextWait(now time.Time, idleCap time.Duration) time.Duration {
	if !s.dirty {
		return idleCap
	}
	remain := s.window - now.Sub(s.lastFlush)
	if remain < 0 {
		remain = 0
	}
	if remain > idleCap {
		remain = idleCap
	}
	return remain
}
