package engine

import (
	"time"

	"waybeam/asset"
)

// Splash is the one-shot startup overlay. Its lifecycle is independent of the
// registry: created on load or reload, destroyed on expiry or the next
// reload. Expiry is observed at loop checkpoints, never from a timer
// goroutine, so the single-owner model holds.
type Splash struct {
	desc     asset.Descriptor
	duration time.Duration
	handle   Handle
	deadline time.Time
}

// NewSplash builds a splash holder; a non-positive duration disables it.
func NewSplash(desc asset.Descriptor, duration time.Duration) *Splash {
	if duration <= 0 {
		return nil
	}
	desc.Enabled = true
	return &Splash{desc: desc, duration: duration}
}

// Show creates the splash visual and arms the expiry deadline. Nil-safe.
func (s *Splash) Show(r Renderer, now time.Time) {
	if s == nil || s.handle != nil {
		return
	}
	h, err := r.Create(&s.desc)
	if err != nil {
		return
	}
	s.handle = h
	s.deadline = now.Add(s.duration)
}

// Active reports whether a splash visual currently exists.
func (s *Splash) Active() bool {
	return s != nil && s.handle != nil
}

// Tick destroys the visual once the deadline passes and reports whether it
// expired on this call.
func (s *Splash) Tick(r Renderer, now time.Time) bool {
	if !s.Active() || now.Before(s.deadline) {
		return false
	}
	s.Clear(r)
	return true
}

// Clear tears the splash down immediately (reload, shutdown). Nil-safe.
func (s *Splash) Clear(r Renderer) {
	if s == nil || s.handle == nil {
		return
	}
	r.Destroy(s.handle)
	s.handle = nil
}
