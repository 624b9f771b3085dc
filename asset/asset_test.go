package asset

import (
	"testing"

	"waybeam/channel"
)

func TestPercentMapping(t *testing.T) {
	cases := []struct {
		min, max, v float64
		want        int
	}{
		{0, 1, 0.5, 50},
		{-100, -40, -70, 50},
		{0, 1, 2.0, 100},  // clamps above max before mapping
		{0, 1, -1.0, 0},   // clamps below min
		{0, 1, 0.905, 91}, // nearest-integer rounding
		{0, 100, 0, 0},
		{0, 100, 100, 100},
	}
	for _, tc := range cases {
		if got := Percent(tc.min, tc.max, tc.v); got != tc.want {
			t.Fatalf("Percent(%v,%v,%v): expected %d; got %d", tc.min, tc.max, tc.v, tc.want, got)
		}
	}
}

func TestPercentDegenerateRange(t *testing.T) {
	// max <= min substitutes max = min + 1.
	if got := Percent(5, 5, 5.5); got != 50 {
		t.Fatalf("expected degenerate range to behave as [5,6]; got %d", got)
	}
	if got := Percent(5, 2, 5.25); got != 25 {
		t.Fatalf("expected inverted range to behave as [5,6]; got %d", got)
	}
}

func TestSegmentsEvenSplit(t *testing.T) {
	l := Segments(100, 4, 100)
	if len(l.Widths) != 4 {
		t.Fatalf("expected 4 segments; got %d", len(l.Widths))
	}
	for i, w := range l.Widths {
		if w != 25 {
			t.Fatalf("segment %d: expected width 25; got %d", i, w)
		}
	}
	if l.Gap != 3 || l.Filled != 4 {
		t.Fatalf("expected gap 3 filled 4; got gap %d filled %d", l.Gap, l.Filled)
	}
}

func TestSegmentsRemainderDistribution(t *testing.T) {
	l := Segments(102, 4, 100)
	want := []int{26, 26, 25, 25}
	for i, w := range want {
		if l.Widths[i] != w {
			t.Fatalf("segment %d: expected width %d; got %d", i, w, l.Widths[i])
		}
	}
}

func TestSegmentsGapThresholds(t *testing.T) {
	cases := []struct {
		w, s, gap int
	}{
		{140, 10, 3}, // base 14
		{130, 10, 2}, // base 13
		{80, 10, 2},  // base 8
		{70, 10, 1},  // base 7
		{50, 10, 1},  // base 5
		{40, 10, 0},  // base 4
	}
	for _, tc := range cases {
		if l := Segments(tc.w, tc.s, 50); l.Gap != tc.gap {
			t.Fatalf("Segments(%d,%d): expected gap %d; got %d", tc.w, tc.s, tc.gap, l.Gap)
		}
	}
}

func TestSegmentsFillCount(t *testing.T) {
	cases := []struct {
		pct, s, filled int
	}{
		{0, 4, 0},  // zero forces empty even though ceil(0)=0
		{1, 4, 1},  // any non-zero pct lights at least one segment
		{25, 4, 1},
		{26, 4, 2},
		{100, 4, 4},
		{99, 4, 4},
	}
	for _, tc := range cases {
		if l := Segments(100, tc.s, tc.pct); l.Filled != tc.filled {
			t.Fatalf("pct=%d s=%d: expected %d filled; got %d", tc.pct, tc.s, tc.filled, l.Filled)
		}
	}
}

func TestSegmentsNarrowTrackCollapses(t *testing.T) {
	l := Segments(3, 8, 100)
	if len(l.Widths) != 1 || l.Widths[0] != 3 {
		t.Fatalf("expected single collapsed segment of width 3; got %+v", l)
	}
}

func TestComposeFallbackOrder(t *testing.T) {
	var store channel.Store
	store.SetExternalText(1, "ALPHA")
	store.SetExternalText(3, "BRAVO")

	d := Default(0)
	d.Kind = Text
	d.TextIndices = []int{1, 2, 3}
	d.TextInline = true
	d.TextIndex = 1
	d.Label = "fallback"

	if got := Compose(&d, &store); got != "ALPHA BRAVO" {
		t.Fatalf("expected inline join skipping empty channels; got %q", got)
	}

	d.TextInline = false
	if got := Compose(&d, &store); got != "ALPHA\nBRAVO" {
		t.Fatalf("expected newline join; got %q", got)
	}

	d.TextIndices = []int{2} // all-empty list falls through to TextIndex
	if got := Compose(&d, &store); got != "ALPHA" {
		t.Fatalf("expected fallback to text_index channel; got %q", got)
	}

	d.TextIndex = 2 // empty channel falls through to label
	if got := Compose(&d, &store); got != "fallback" {
		t.Fatalf("expected fallback to label; got %q", got)
	}

	d.Label = ""
	if got := Compose(&d, &store); got != "" {
		t.Fatalf("expected empty composition; got %q", got)
	}
}

func TestRegistryBoundsAndUniqueness(t *testing.T) {
	var r Registry
	for i := 0; i < MaxAssets; i++ {
		if e := r.Add(Default(i)); e == nil {
			t.Fatalf("expected slot for id %d", i)
		}
	}
	if e := r.Add(Default(99)); e != nil {
		t.Fatalf("expected full registry to reject id 99")
	}
	if e := r.Add(Default(0)); e != nil {
		t.Fatalf("expected duplicate id to be rejected")
	}
	if r.Find(3) == nil || r.Find(42) != nil {
		t.Fatalf("unexpected lookup results")
	}
}

func TestRegistryPlaceholderStartsDisabled(t *testing.T) {
	var r Registry
	e := r.AddPlaceholder(5)
	if e == nil || e.Desc.Enabled {
		t.Fatalf("expected disabled placeholder; got %+v", e)
	}
	if e.State.LastPercent != -1 || e.State.TextValid {
		t.Fatalf("expected reset runtime state; got %+v", e.State)
	}
}

func TestDefaultDescriptor(t *testing.T) {
	d := Default(2)
	if d.Kind != Bar || !d.Enabled || d.X != 40 || d.Y != 180 || d.Width != 320 || d.Height != 32 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if d.Bar.ValueIndex != 2 || d.Bar.Min != 0 || d.Bar.Max != 1 || d.Bar.Color != 0x2266CC {
		t.Fatalf("unexpected bar defaults: %+v", d.Bar)
	}
	if d.TextIndex != -1 || d.Background != -1 || d.BackgroundOpacity != -1 || d.Image.Opacity != 100 {
		t.Fatalf("unexpected optional defaults: %+v", d)
	}
}

func TestResolveBackground(t *testing.T) {
	if _, ok := ResolveBackground(-1, 50); ok {
		t.Fatalf("expected no background for index -1")
	}
	bg, ok := ResolveBackground(1, -1)
	if !ok || bg.Color != 0x000000 || bg.Opacity != 50 {
		t.Fatalf("expected palette entry 1 with inherited opacity; got %+v", bg)
	}
	bg, _ = ResolveBackground(1, 80)
	if bg.Opacity != 80 {
		t.Fatalf("expected opacity override 80; got %+v", bg)
	}
}
