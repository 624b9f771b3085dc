package render

import (
	"log"
	"time"

	"waybeam/asset"
	"waybeam/engine"
	"waybeam/internal/ratelimit"
)

// Log is the headless Renderer: every operation becomes a log line, with the
// high-frequency percent/text pushes throttled so a busy sender cannot flood
// the log.
type Log struct {
	next   int
	pushes ratelimit.Counter
}

// NewLog builds a log renderer.
func NewLog() *Log {
	return &Log{pushes: ratelimit.NewCounter(2 * time.Second)}
}

// Create implements engine.Renderer.
func (l *Log) Create(d *asset.Descriptor) (engine.Handle, error) {
	l.next++
	log.Printf("Render: create asset %d kind=%s at (%d,%d) %dx%d",
		d.ID, d.Kind, d.X, d.Y, d.Width, d.Height)
	return l.next, nil
}

// Destroy implements engine.Renderer.
func (l *Log) Destroy(h engine.Handle) {
	log.Printf("Render: destroy handle %v", h)
}

// SetPercent implements engine.Renderer.
func (l *Log) SetPercent(h engine.Handle, pct int) {
	if n, emit := l.pushes.Inc(); emit {
		log.Printf("Render: handle %v percent=%d (%d pushes)", h, pct, n)
	}
}

// SetText implements engine.Renderer.
func (l *Log) SetText(h engine.Handle, text string) {
	if n, emit := l.pushes.Inc(); emit {
		log.Printf("Render: handle %v text=%q (%d pushes)", h, text, n)
	}
}

// Relayout implements engine.Renderer.
func (l *Log) Relayout(h engine.Handle, geo engine.Geometry) {
	log.Printf("Render: handle %v relayout (%d,%d) %dx%d segments=%d",
		h, geo.X, geo.Y, geo.Width, geo.Height, geo.Segments)
}

// Restyle implements engine.Renderer.
func (l *Log) Restyle(h engine.Handle, style engine.Style) {
	log.Printf("Render: handle %v restyle bar=%06X text=%06X bg=%d",
		h, style.BarColor, style.TextColor, style.Background)
}
