// Package telemetry feeds the locally-computed channel sub-range: built-in
// host probes plus an optional MQTT bridge. Sources hand samples to the loop,
// which owns the channel store; nothing here writes widget state directly.
package telemetry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Sample is one channel write produced by a source.
type Sample struct {
	Channel int
	IsText  bool
	Value   float64
	Text    string
}

// Source produces zero or more samples per poll. Poll must not block; slow
// collection belongs behind a goroutine and a buffered channel.
type Source interface {
	Name() string
	Poll(now time.Time) []Sample
}

// Poller fans a fixed set of sources into one gated poll. The interval is
// floored at one second so telemetry cost is independent of the loop rate.
type Poller struct {
	sources  []Source
	interval time.Duration
	last     time.Time
}

// NewPoller builds a poller over sources; intervals under a second are
// raised to a second.
func NewPoller(interval time.Duration, sources ...Source) *Poller {
	if interval < time.Second {
		interval = time.Second
	}
	return &Poller{sources: sources, interval: interval}
}

// Poll returns the collected samples, or nil when inside the gate interval.
func (p *Poller) Poll(now time.Time) []Sample {
	if !p.last.IsZero() && now.Sub(p.last) < p.interval {
		return nil
	}
	p.last = now
	var out []Sample
	for _, s := range p.sources {
		out = append(out, s.Poll(now)...)
	}
	return out
}

// Loadavg reports the host 1-minute load average as a numeric channel.
type Loadavg struct {
	Channel int
	path    string
}

// NewLoadavg probes /proc/loadavg into the given channel slot.
func NewLoadavg(ch int) *Loadavg {
	return &Loadavg{Channel: ch, path: "/proc/loadavg"}
}

func (l *Loadavg) Name() string { return "loadavg" }

func (l *Loadavg) Poll(now time.Time) []Sample {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil
	}
	v, ok := parseLoadavg(string(data))
	if !ok {
		return nil
	}
	return []Sample{{Channel: l.Channel, Value: v}}
}

func parseLoadavg(s string) (float64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Uptime reports the host uptime as a short text channel.
type Uptime struct {
	Channel int
	path    string
}

// NewUptime probes /proc/uptime into the given text channel slot.
func NewUptime(ch int) *Uptime {
	return &Uptime{Channel: ch, path: "/proc/uptime"}
}

func (u *Uptime) Name() string { return "uptime" }

func (u *Uptime) Poll(now time.Time) []Sample {
	data, err := os.ReadFile(u.path)
	if err != nil {
		return nil
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	return []Sample{{Channel: u.Channel, IsText: true, Text: formatUptime(time.Duration(secs) * time.Second)}}
}

// formatUptime renders "3d 02:15" style uptime text.
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d", days, hours, mins)
	}
	return fmt.Sprintf("%02d:%02d", hours, mins)
}
