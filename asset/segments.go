package asset

// SegmentLayout is the pure geometry of a segmented bar fill for a track of
// width w split into s segments at fill percentage pct. It is independent of
// any rendering backend and reproducible bit-for-bit for a given (w, s, pct).
type SegmentLayout struct {
	Widths []int // per-segment width; the remainder goes one pixel at a time to the leading segments
	Gap    int   // inter-segment gap, shrinking with segment width
	Filled int   // number of filled segments
}

// Segments computes the layout. A non-positive width or segment count yields
// a zero layout; s == 1 degenerates to a single full-width segment.
func Segments(w, s, pct int) SegmentLayout {
	if w <= 0 || s <= 0 {
		return SegmentLayout{}
	}
	base := w / s
	if base <= 0 {
		// Track narrower than the segment count: collapse to one segment.
		s = 1
		base = w
	}
	remainder := w - base*s

	widths := make([]int, s)
	for i := range widths {
		widths[i] = base
		if i < remainder {
			widths[i]++
		}
	}

	gap := 0
	switch {
	case base >= 14:
		gap = 3
	case base >= 8:
		gap = 2
	case base >= 5:
		gap = 1
	}

	pct = clampInt(pct, 0, 100)
	filled := (pct*s + 99) / 100 // ceil(pct*s/100)
	if pct == 0 {
		filled = 0
	}
	if filled > s {
		filled = s
	}

	return SegmentLayout{Widths: widths, Gap: gap, Filled: filled}
}
