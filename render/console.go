// Package render provides Renderer implementations for the reconciliation
// engine: a tcell/tview console preview that scales the overlay onto
// terminal cells, and a log renderer for headless operation. Neither knows
// anything about reconciliation; they draw what they are told.
package render

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"waybeam/asset"
	"waybeam/engine"
)

// widget is the renderer-side snapshot of one created visual.
type widget struct {
	id   int
	kind asset.Kind

	geo   engine.Geometry
	style engine.Style

	pct  int
	text string
}

// Console renders the overlay into a terminal as a scaled preview. It
// implements engine.Renderer; handles are renderer-private integers.
type Console struct {
	app    *tview.Application
	canvas *canvas
	sched  *drawScheduler

	screenW int
	screenH int

	mu      sync.Mutex
	next    int
	widgets map[int]*widget
}

// NewConsole builds a console renderer for a virtual screen of the given
// pixel dimensions.
func NewConsole(screenW, screenH int) *Console {
	if screenW <= 0 {
		screenW = 1920
	}
	if screenH <= 0 {
		screenH = 1080
	}
	c := &Console{
		app:     tview.NewApplication(),
		screenW: screenW,
		screenH: screenH,
		widgets: make(map[int]*widget),
	}
	c.canvas = newCanvas(c)
	c.sched = newDrawScheduler(c.app, 30)
	return c
}

// Run blocks serving the terminal UI until Stop is called or the user quits.
func (c *Console) Run() error {
	c.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
			c.app.Stop()
			return nil
		}
		return ev
	})
	c.sched.Start()
	defer c.sched.Stop()
	return c.app.SetRoot(c.canvas, true).Run()
}

// Stop terminates the terminal UI.
func (c *Console) Stop() {
	c.app.Stop()
}

// Create implements engine.Renderer.
func (c *Console) Create(d *asset.Descriptor) (engine.Handle, error) {
	c.mu.Lock()
	c.next++
	h := c.next
	w := &widget{id: d.ID, kind: d.Kind}
	w.geo = engine.Geometry{
		X: d.X, Y: d.Y, Width: d.Width, Height: d.Height,
		Orientation: d.Bar.Orientation, Segments: d.Bar.Segments,
	}
	w.style = engine.Style{
		BarColor:          d.Bar.Color,
		TextColor:         d.TextColor,
		Background:        d.Background,
		BackgroundOpacity: d.BackgroundOpacity,
		ImageOpacity:      d.Image.Opacity,
		RoundedOutline:    d.Bar.RoundedOutline,
	}
	if d.Kind == asset.Image {
		w.text = d.Image.Path
	}
	c.widgets[h] = w
	c.mu.Unlock()
	c.sched.Request()
	return h, nil
}

// Destroy implements engine.Renderer.
func (c *Console) Destroy(h engine.Handle) {
	c.mu.Lock()
	delete(c.widgets, h.(int))
	c.mu.Unlock()
	c.sched.Request()
}

// SetPercent implements engine.Renderer.
func (c *Console) SetPercent(h engine.Handle, pct int) {
	c.mutate(h, func(w *widget) { w.pct = pct })
}

// SetText implements engine.Renderer.
func (c *Console) SetText(h engine.Handle, text string) {
	c.mutate(h, func(w *widget) { w.text = text })
}

// Relayout implements engine.Renderer.
func (c *Console) Relayout(h engine.Handle, geo engine.Geometry) {
	c.mutate(h, func(w *widget) { w.geo = geo })
}

// Restyle implements engine.Renderer.
func (c *Console) Restyle(h engine.Handle, style engine.Style) {
	c.mutate(h, func(w *widget) { w.style = style })
}

func (c *Console) mutate(h engine.Handle, fn func(*widget)) {
	c.mu.Lock()
	if w, ok := c.widgets[h.(int)]; ok {
		fn(w)
	}
	c.mu.Unlock()
	c.sched.Request()
}

func (c *Console) snapshot() []*widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*widget, 0, len(c.widgets))
	for _, w := range c.widgets {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// canvas is the single tview primitive that paints every widget.
type canvas struct {
	*tview.Box
	console *Console
}

func newCanvas(c *Console) *canvas {
	cv := &canvas{Box: tview.NewBox(), console: c}
	cv.SetBorder(false)
	return cv
}

func (cv *canvas) Draw(screen tcell.Screen) {
	cv.Box.DrawForSubclass(screen, cv)
	x, y, width, height := cv.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}
	for _, w := range cv.console.snapshot() {
		cx, cy, cw, ch := cellRect(w.geo, cv.console.screenW, cv.console.screenH, width, height)
		cx += x
		cy += y
		switch w.kind {
		case asset.Bar:
			drawBar(screen, w, cx, cy, cw)
		case asset.Text:
			drawText(screen, w.text, cx, cy, cw, rgbColor(w.style.TextColor))
		case asset.Image:
			drawText(screen, fmt.Sprintf("[img %s]", w.text), cx, cy, cw, rgbColor(w.style.TextColor))
		}
		_ = ch
	}
}

func drawBar(screen tcell.Screen, w *widget, x, y, width int) {
	if width < 1 {
		width = 1
	}
	filled := width * w.pct / 100
	style := tcell.StyleDefault.Foreground(rgbColor(w.style.BarColor))
	for i := 0; i < width; i++ {
		r := '░'
		if i < filled {
			r = '█'
		}
		screen.SetContent(x+i, y, r, nil, style)
	}
	label := fmt.Sprintf(" %3d%%", w.pct)
	drawText(screen, label, x+width, y, len(label), rgbColor(w.style.TextColor))
}

func drawText(screen tcell.Screen, s string, x, y, max int, color tcell.Color) {
	style := tcell.StyleDefault.Foreground(color)
	col := 0
	for _, r := range s {
		if max > 0 && col >= max {
			break
		}
		if r == '\n' {
			y++
			col = 0
			continue
		}
		screen.SetContent(x+col, y, r, nil, style)
		col++
	}
}

// cellRect maps virtual overlay pixels onto terminal cells.
func cellRect(geo engine.Geometry, screenW, screenH, cols, rows int) (x, y, w, h int) {
	x = geo.X * cols / screenW
	y = geo.Y * rows / screenH
	gw := geo.Width
	if gw <= 0 {
		gw = 320
	}
	gh := geo.Height
	if gh <= 0 {
		gh = 32
	}
	w = gw * cols / screenW
	if w < 1 {
		w = 1
	}
	h = gh * rows / screenH
	if h < 1 {
		h = 1
	}
	return x, y, w, h
}

func rgbColor(rgb uint32) tcell.Color {
	return tcell.NewRGBColor(
		int32(rgb>>16&0xFF), int32(rgb>>8&0xFF), int32(rgb&0xFF))
}
