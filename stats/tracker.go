// Package stats accumulates loop counters and renders the on-screen stats
// overlay text. The tracker is owned by the loop goroutine; collaborators
// hand their counters in at snapshot time instead of sharing state.
package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"waybeam/channel"
)

// latencyRing keeps a bounded ring of durations for percentile estimates.
// Loop-owned, so unguarded.
type latencyRing struct {
	samples []time.Duration
	count   int
	idx     int
}

func newLatencyRing(size int) *latencyRing {
	if size <= 0 {
		size = 256
	}
	return &latencyRing{samples: make([]time.Duration, size)}
}

func (r *latencyRing) observe(d time.Duration) {
	r.samples[r.idx] = d
	r.idx = (r.idx + 1) % len(r.samples)
	if r.count < len(r.samples) {
		r.count++
	}
}

// percentile returns the p-th percentile (0..1); the ring is small enough
// for an insertion sort over a scratch copy.
func (r *latencyRing) percentile(p float64) time.Duration {
	if r.count == 0 {
		return 0
	}
	scratch := make([]time.Duration, r.count)
	copy(scratch, r.samples[:r.count])
	for i := 1; i < len(scratch); i++ {
		for j := i; j > 0 && scratch[j] < scratch[j-1]; j-- {
			scratch[j], scratch[j-1] = scratch[j-1], scratch[j]
		}
	}
	i := int(float64(r.count-1) * p)
	return scratch[i]
}

// Tracker accumulates ingest and flush counters plus a rolling flush rate.
type Tracker struct {
	start time.Time

	datagrams uint64
	rxBytes   uint64
	flushes   uint64

	windowStart   time.Time
	windowFlushes int
	rate          float64

	work  *latencyRing
	delay *latencyRing
}

// NewTracker starts a tracker anchored at now.
func NewTracker(now time.Time) *Tracker {
	return &Tracker{
		start:       now,
		windowStart: now,
		work:        newLatencyRing(256),
		delay:       newLatencyRing(256),
	}
}

// RecordDatagram counts one accepted payload of n bytes.
func (t *Tracker) RecordDatagram(n int) {
	t.datagrams++
	t.rxBytes += uint64(n)
}

// RecordFlush counts one renderer flush with its coalescing delay and the
// loop work time spent producing it. The rolling rate advances once per
// second.
func (t *Tracker) RecordFlush(now time.Time, delay, work time.Duration) {
	t.flushes++
	t.windowFlushes++
	t.delay.observe(delay)
	t.work.observe(work)
	if elapsed := now.Sub(t.windowStart); elapsed >= time.Second {
		t.rate = float64(t.windowFlushes) / elapsed.Seconds()
		t.windowStart = now
		t.windowFlushes = 0
	}
}

// Rate returns the most recent flushes-per-second figure.
func (t *Tracker) Rate() float64 { return t.rate }

// Datagrams returns the accepted payload count.
func (t *Tracker) Datagrams() uint64 { return t.datagrams }

// Flushes returns the renderer flush count.
func (t *Tracker) Flushes() uint64 { return t.flushes }

// Reset rewinds every accumulator; used on hot reload.
func (t *Tracker) Reset(now time.Time) {
	*t = *NewTracker(now)
}

// LoopInfo is the per-snapshot state the loop hands in for the overlay.
type LoopInfo struct {
	Assets         int
	Discarded      uint64
	Duplicates     uint64
	DroppedUpdates uint64
	Wait           time.Duration

	// Channel dump, shown only when ShowChannels is set.
	ShowChannels bool
	Values       [channel.Count]float64
}

// Overlay renders the stats text block pushed through the normal text path.
func (t *Tracker) Overlay(now time.Time, info LoopInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "up %s  %.1f fps\n",
		humanize.RelTime(t.start, now, "", ""), t.rate)
	fmt.Fprintf(&b, "rx %s (%s)  drop %s  dup %s\n",
		humanize.Comma(int64(t.datagrams)),
		humanize.IBytes(t.rxBytes),
		humanize.Comma(int64(info.Discarded)),
		humanize.Comma(int64(info.Duplicates)))
	fmt.Fprintf(&b, "assets %d  lost %s  wait %dms\n",
		info.Assets,
		humanize.Comma(int64(info.DroppedUpdates)),
		info.Wait.Milliseconds())
	fmt.Fprintf(&b, "work p50 %.1fms p99 %.1fms  delay p50 %.1fms",
		ms(t.work.percentile(0.50)), ms(t.work.percentile(0.99)),
		ms(t.delay.percentile(0.50)))
	if info.ShowChannels {
		b.WriteByte('\n')
		for i, v := range info.Values {
			if i > 0 {
				if i%4 == 0 {
					b.WriteByte('\n')
				} else {
					b.WriteByte(' ')
				}
			}
			fmt.Fprintf(&b, "%d:%.2f", i, v)
		}
	}
	return b.String()
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
