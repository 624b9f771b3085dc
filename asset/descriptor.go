// Package asset defines the canonical widget descriptor and helpers used
// across the overlay pipeline: defaults, registry bookkeeping, percentage
// mapping, segmented-bar geometry and text composition.
package asset

import "waybeam/channel"

// Kind identifies what a widget renders.
type Kind uint8

const (
	Bar Kind = iota
	Text
	Image
)

// ParseKind maps a wire/config type string onto a Kind. Unknown strings fall
// back to Bar, the protocol's default widget.
func ParseKind(s string) Kind {
	switch s {
	case "text":
		return Text
	case "image":
		return Image
	default:
		return Bar
	}
}

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Image:
		return "image"
	default:
		return "bar"
	}
}

// Orientation controls which way a bar grows from its anchor point.
type Orientation uint8

const (
	Right Orientation = iota
	Left
)

// ParseOrientation maps "left"/"right" onto an Orientation, keeping def for
// anything else.
func ParseOrientation(s string, def Orientation) Orientation {
	switch s {
	case "left":
		return Left
	case "right":
		return Right
	default:
		return def
	}
}

func (o Orientation) String() string {
	if o == Left {
		return "left"
	}
	return "right"
}

// MaxTextIndices bounds the text_indices binding list.
const MaxTextIndices = 8

// MaxLabelLen bounds the static label; it shares the channel text capacity.
const MaxLabelLen = channel.MaxTextLen

// BarParams carries the fields only Bar widgets use.
type BarParams struct {
	ValueIndex     int
	Min            float64
	Max            float64
	Color          uint32
	Segments       int // 0/1 solid, >1 segmented fill
	RoundedOutline bool
	Orientation    Orientation
}

// ImageParams carries the fields only Image widgets use.
type ImageParams struct {
	Path    string
	Opacity int // percent, 100 opaque
}

// Descriptor is the declarative, persisted configuration of one widget.
// Fields meaningful for every kind sit at the top level; kind-specific
// parameters live in the Bar/Image sub-structs.
type Descriptor struct {
	ID      int
	Kind    Kind
	Enabled bool

	// Geometry. Width/Height <= 0 request natural size.
	X, Y          int
	Width, Height int

	TextColor         uint32
	Background        int // palette index, -1 none
	BackgroundOpacity int // percent, -1 inherits the palette entry

	// Text binding, used by Text widgets and by any kind's attached label.
	Label       string
	TextIndex   int // channel index, -1 none
	TextIndices []int
	TextInline  bool // join with space instead of newline

	Bar   BarParams
	Image ImageParams
}

// Default returns the descriptor a widget starts from before config or wire
// deltas touch it. The stacked y offset keeps implicitly created bars from
// overlapping.
func Default(id int) Descriptor {
	return Descriptor{
		ID:                id,
		Kind:              Bar,
		Enabled:           true,
		X:                 40,
		Y:                 60 + id*60,
		Width:             320,
		Height:            32,
		TextColor:         0xFFFFFF,
		Background:        -1,
		BackgroundOpacity: -1,
		TextIndex:         -1,
		Bar: BarParams{
			ValueIndex:  clampInt(id, 0, channel.Count-1),
			Min:         0,
			Max:         1,
			Color:       0x2266CC,
			Orientation: Right,
		},
		Image: ImageParams{Opacity: 100},
	}
}

// WantsText reports whether the widget displays composed text at all: Text
// widgets always do, other kinds only when a label or text binding exists.
func (d *Descriptor) WantsText() bool {
	if d.Kind == Text {
		return true
	}
	return d.Label != "" || d.TextIndex >= 0 || len(d.TextIndices) > 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
