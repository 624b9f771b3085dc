// Package ratelimit throttles repetitive log emission on hot paths: the
// caller counts every occurrence but is told to actually log only once per
// interval.
package ratelimit

import (
	"sync/atomic"
	"time"
)

// Counter counts events and gates log emission to one per interval. Safe for
// concurrent use.
type Counter struct {
	interval time.Duration
	emitted  atomic.Int64  // unix nanos of the last allowed emission
	count    atomic.Uint64 // total events since construction or Reset
}

// NewCounter returns a counter allowing one emission per interval. A
// non-positive interval never throttles.
func NewCounter(interval time.Duration) Counter {
	return Counter{interval: interval}
}

// Inc records one event and reports the running total plus whether the
// caller may log it.
func (c *Counter) Inc() (uint64, bool) {
	if c == nil {
		return 0, false
	}
	n := c.count.Add(1)
	if c.interval <= 0 {
		return n, true
	}
	now := time.Now().UnixNano()
	prev := c.emitted.Load()
	if now-prev < int64(c.interval) {
		return n, false
	}
	return n, c.emitted.CompareAndSwap(prev, now)
}

// Total returns the running event count.
func (c *Counter) Total() uint64 {
	if c == nil {
		return 0
	}
	return c.count.Load()
}

// Reset zeroes the running count; the emission gate is left alone so a reset
// cannot burst the log.
func (c *Counter) Reset() {
	if c != nil {
		c.count.Store(0)
	}
}
