package render

import (
	"sync"
	"time"

	"github.com/rivo/tview"
)

// drawScheduler coalesces redraw requests and caps the terminal draw rate.
// Mutating calls arrive from the loop goroutine; tview draws on its own, so
// the pending set is the only shared state.
type drawScheduler struct {
	app       *tview.Application
	mu        sync.Mutex
	pending   bool
	quit      chan struct{}
	done      chan struct{}
	frameTime time.Duration
}

func newDrawScheduler(app *tview.Application, targetFPS int) *drawScheduler {
	if targetFPS <= 0 {
		targetFPS = 30
	}
	return &drawScheduler{
		app:       app,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		frameTime: time.Second / time.Duration(targetFPS),
	}
}

func (d *drawScheduler) Start() {
	go d.run()
}

func (d *drawScheduler) Stop() {
	close(d.quit)
	select {
	case <-d.done:
	case <-time.After(250 * time.Millisecond):
	}
}

// Request marks the screen stale; the next frame tick repaints once.
func (d *drawScheduler) Request() {
	d.mu.Lock()
	d.pending = true
	d.mu.Unlock()
}

func (d *drawScheduler) run() {
	defer close(d.done)
	ticker := time.NewTicker(d.frameTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.mu.Lock()
			stale := d.pending
			d.pending = false
			d.mu.Unlock()
			if stale {
				d.app.QueueUpdateDraw(func() {})
			}
		case <-d.quit:
			return
		}
	}
}
