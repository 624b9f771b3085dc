// Package engine reconciles decoded control deltas against the widget
// registry and drives the injected renderer with the minimal set of visual
// operations. The engine decides what must change and why; how anything is
// drawn belongs to the renderer collaborator.
package engine

import "waybeam/asset"

// Handle is the renderer-owned identity of one created visual. The engine
// stores it opaquely and never inspects it.
type Handle = any

// Geometry carries everything a relayout needs. Segments ride along so a
// segmented fill can be repainted idempotently on every relayout.
type Geometry struct {
	X, Y          int
	Width, Height int
	Orientation   asset.Orientation
	Segments      int
}

// Style carries the incremental restyle fields.
type Style struct {
	BarColor          uint32
	TextColor         uint32
	Background        int // palette index, -1 none
	BackgroundOpacity int // percent, -1 inherit
	ImageOpacity      int
	RoundedOutline    bool
}

// Renderer is the visual collaborator the engine drives. Create must leave
// the widget fully styled and laid out from the descriptor; the incremental
// operations exist so unrelated changes never force a rebuild.
type Renderer interface {
	Create(desc *asset.Descriptor) (Handle, error)
	Destroy(h Handle)
	SetPercent(h Handle, pct int)
	SetText(h Handle, text string)
	Relayout(h Handle, geo Geometry)
	Restyle(h Handle, style Style)
}

// geometryOf projects a descriptor onto the relayout payload.
func geometryOf(d *asset.Descriptor) Geometry {
	return Geometry{
		X:           d.X,
		Y:           d.Y,
		Width:       d.Width,
		Height:      d.Height,
		Orientation: d.Bar.Orientation,
		Segments:    d.Bar.Segments,
	}
}

// styleOf projects a descriptor onto the restyle payload.
func styleOf(d *asset.Descriptor) Style {
	return Style{
		BarColor:          d.Bar.Color,
		TextColor:         d.TextColor,
		Background:        d.Background,
		BackgroundOpacity: d.BackgroundOpacity,
		ImageOpacity:      d.Image.Opacity,
		RoundedOutline:    d.Bar.RoundedOutline,
	}
}
