// Package config loads the overlay configuration from a YAML file. An
// unreadable file is not an error: the daemon runs on built-in defaults and
// picks the file up on the next reload.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"waybeam/asset"
)

// Config represents the complete overlay configuration.
type Config struct {
	Width     int  `yaml:"width"`
	Height    int  `yaml:"height"`
	OSDX      int  `yaml:"osd_x"`
	OSDY      int  `yaml:"osd_y"`
	ShowStats bool `yaml:"show_stats"`
	UDPStats  bool `yaml:"udp_stats"`

	Port       int `yaml:"port"`
	IdleMS     int `yaml:"idle_ms"`
	RefreshMS  int `yaml:"refresh_ms"` // legacy alias of idle_ms
	CoalesceMS int `yaml:"coalesce_ms"`

	Assets []AssetConfig `yaml:"assets"`
	Splash *SplashConfig `yaml:"splashscreen"`

	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Capture   CaptureConfig   `yaml:"capture"`

	// Legacy single-bar keys, applied to asset 0 when no assets array is
	// present.
	BarX      *int     `yaml:"bar_x"`
	BarY      *int     `yaml:"bar_y"`
	BarWidth  *int     `yaml:"bar_width"`
	BarHeight *int     `yaml:"bar_height"`
	BarMin    *float64 `yaml:"bar_min"`
	BarMax    *float64 `yaml:"bar_max"`
	BarColor  *uint32  `yaml:"bar_color"`
}

// AssetConfig mirrors the wire delta shape: absent keys keep the built-in
// default for that field.
type AssetConfig struct {
	ID                *int     `yaml:"id"`
	Enabled           *bool    `yaml:"enabled"`
	Enable            *bool    `yaml:"enable"` // alias
	Type              string   `yaml:"type"`
	ValueIndex        *int     `yaml:"value_index"`
	TextIndex         *int     `yaml:"text_index"`
	TextIndices       []int    `yaml:"text_indices"`
	TextInline        *bool    `yaml:"text_inline"`
	Label             *string  `yaml:"label"`
	X                 *int     `yaml:"x"`
	Y                 *int     `yaml:"y"`
	Width             *int     `yaml:"width"`
	Height            *int     `yaml:"height"`
	Min               *float64 `yaml:"min"`
	Max               *float64 `yaml:"max"`
	BarColor          *uint32  `yaml:"bar_color"`
	TextColor         *uint32  `yaml:"text_color"`
	Background        *int     `yaml:"background"`
	BackgroundOpacity *int     `yaml:"background_opacity"`
	ImageOpacity      *int     `yaml:"image_opacity"`
	Segments          *int     `yaml:"segments"`
	RoundedOutline    *bool    `yaml:"rounded_outline"`
	Orientation       string   `yaml:"orientation"`
	ImagePath         *string  `yaml:"image_path"`
	Source            *string  `yaml:"source"` // alias of image_path
}

// SplashConfig describes the one-shot startup image.
type SplashConfig struct {
	AssetConfig `yaml:",inline"`
	DurationMS  int `yaml:"duration_ms"`
}

// LoggingConfig contains logging settings. Dir enables a daily rotating
// file sink next to the console output.
type LoggingConfig struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// TelemetryConfig feeds the locally-computed channel sub-range.
type TelemetryConfig struct {
	Loadavg bool          `yaml:"loadavg"`
	Uptime  bool          `yaml:"uptime"`
	MQTT    MQTTFeed      `yaml:"mqtt"`
	PollMS  int           `yaml:"poll_ms"`
	Feeds   []ChannelFeed `yaml:"feeds"`
}

// MQTTFeed is the broker side of the MQTT telemetry source.
type MQTTFeed struct {
	Enabled bool   `yaml:"enabled"`
	Broker  string `yaml:"broker"`
	Port    int    `yaml:"port"`
	Name    string `yaml:"name"`
}

// ChannelFeed binds one MQTT topic to one locally-computed channel slot.
type ChannelFeed struct {
	Topic   string `yaml:"topic"`
	Channel int    `yaml:"channel"`
	Text    bool   `yaml:"text"` // write the text slot instead of the value
}

// RecorderConfig controls periodic stats snapshots to SQLite.
type RecorderConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	IntervalS  int    `yaml:"interval_seconds"`
	RetainDays int    `yaml:"retain_days"`
}

// CaptureConfig controls the optional datagram capture for offline replay.
type CaptureConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Dir      string `yaml:"dir"`
	MaxAgeH  int    `yaml:"max_age_hours"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Width:      1920,
		Height:     1080,
		ShowStats:  true,
		Port:       7777,
		IdleMS:     100,
		CoalesceMS: 32,
		Telemetry:  TelemetryConfig{Loadavg: true, Uptime: true, PollMS: 1000},
		Recorder:   RecorderConfig{IntervalS: 60, RetainDays: 7},
		Capture:    CaptureConfig{MaxAgeH: 24, MaxBytes: 64 << 20},
	}
}

// Load reads and parses the YAML file. On any failure it returns the
// built-in defaults along with the error so the caller can log and carry on.
func Load(filename string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", filename, err)
	}
	return cfg, nil
}

// IdleWait returns the socket poll cap, honoring the legacy refresh_ms key
// when idle_ms is absent. Clamped to [10ms, 1s] like every revision before.
func (c *Config) IdleWait() time.Duration {
	ms := c.IdleMS
	if ms == 0 && c.RefreshMS != 0 {
		ms = c.RefreshMS
	}
	if ms < 10 {
		ms = 10
	}
	if ms > 1000 {
		ms = 1000
	}
	return time.Duration(ms) * time.Millisecond
}

// CoalesceWindow returns the flush spacing; zero or negative falls back to
// the scheduler default.
func (c *Config) CoalesceWindow() time.Duration {
	return time.Duration(c.CoalesceMS) * time.Millisecond
}

// TelemetryInterval returns the telemetry poll interval, floored at one
// second regardless of loop rate.
func (c *Config) TelemetryInterval() time.Duration {
	d := time.Duration(c.Telemetry.PollMS) * time.Millisecond
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Descriptors materializes the configured asset list: deduped by id, capped
// at the registry size, legacy bar_* keys folded into asset 0, and one
// default bar when nothing is configured.
func (c *Config) Descriptors() []asset.Descriptor {
	var out []asset.Descriptor
	seen := make(map[int]bool)
	for i, ac := range c.Assets {
		if len(out) >= asset.MaxAssets {
			break
		}
		id := i
		if ac.ID != nil {
			id = *ac.ID
		}
		if id < 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, ac.descriptor(id))
	}
	if len(out) == 0 {
		d := asset.Default(0)
		c.applyLegacyBar(&d)
		out = append(out, d)
	}
	return out
}

// SplashDescriptor returns the splash asset and its display duration; ok is
// false when no splash is configured.
func (c *Config) SplashDescriptor() (asset.Descriptor, time.Duration, bool) {
	s := c.Splash
	if s == nil || s.DurationMS <= 0 {
		return asset.Descriptor{}, 0, false
	}
	if s.Enabled != nil && !*s.Enabled {
		return asset.Descriptor{}, 0, false
	}
	d := s.AssetConfig.descriptor(-1)
	d.Kind = asset.Image
	d.Enabled = true
	ms := s.DurationMS
	if ms > 60000 {
		ms = 60000
	}
	return d, time.Duration(ms) * time.Millisecond, true
}

// descriptor applies the present fields over the built-in defaults for id.
func (ac *AssetConfig) descriptor(id int) asset.Descriptor {
	d := asset.Default(id)
	if ac.Type != "" {
		d.Kind = asset.ParseKind(ac.Type)
	}
	enabled := ac.Enabled
	if enabled == nil {
		enabled = ac.Enable
	}
	if enabled != nil {
		d.Enabled = *enabled
	}
	if ac.ValueIndex != nil {
		d.Bar.ValueIndex = *ac.ValueIndex
	}
	if ac.TextIndex != nil {
		d.TextIndex = *ac.TextIndex
	}
	if len(ac.TextIndices) > 0 {
		idx := ac.TextIndices
		if len(idx) > asset.MaxTextIndices {
			idx = idx[:asset.MaxTextIndices]
		}
		d.TextIndices = append([]int(nil), idx...)
	}
	if ac.TextInline != nil {
		d.TextInline = *ac.TextInline
	}
	if ac.Label != nil {
		d.Label = *ac.Label
	}
	if ac.X != nil {
		d.X = *ac.X
	}
	if ac.Y != nil {
		d.Y = *ac.Y
	}
	if ac.Width != nil {
		d.Width = *ac.Width
	}
	if ac.Height != nil {
		d.Height = *ac.Height
	}
	if ac.Min != nil {
		d.Bar.Min = *ac.Min
	}
	if ac.Max != nil {
		d.Bar.Max = *ac.Max
	}
	if ac.BarColor != nil {
		d.Bar.Color = *ac.BarColor
	}
	if ac.TextColor != nil {
		d.TextColor = *ac.TextColor
	}
	if ac.Background != nil {
		d.Background = asset.ClampBackground(*ac.Background)
	}
	if ac.BackgroundOpacity != nil {
		d.BackgroundOpacity = clampInt(*ac.BackgroundOpacity, 0, 100)
	}
	if ac.ImageOpacity != nil {
		d.Image.Opacity = clampInt(*ac.ImageOpacity, 0, 100)
	}
	if ac.Segments != nil {
		d.Bar.Segments = *ac.Segments
	}
	if ac.RoundedOutline != nil {
		d.Bar.RoundedOutline = *ac.RoundedOutline
	}
	if ac.Orientation != "" {
		d.Bar.Orientation = asset.ParseOrientation(ac.Orientation, d.Bar.Orientation)
	}
	path := ac.ImagePath
	if path == nil {
		path = ac.Source
	}
	if path != nil {
		d.Image.Path = *path
	}
	return d
}

func (c *Config) applyLegacyBar(d *asset.Descriptor) {
	if c.BarX != nil {
		d.X = *c.BarX
	}
	if c.BarY != nil {
		d.Y = *c.BarY
	}
	if c.BarWidth != nil {
		d.Width = *c.BarWidth
	}
	if c.BarHeight != nil {
		d.Height = *c.BarHeight
	}
	if c.BarMin != nil {
		d.Bar.Min = *c.BarMin
	}
	if c.BarMax != nil {
		d.Bar.Max = *c.BarMax
	}
	if c.BarColor != nil {
		d.Bar.Color = *c.BarColor
	}
}

// Print displays the effective configuration.
func (c *Config) Print() {
	fmt.Printf("Screen: %dx%d at (%d,%d)\n", c.Width, c.Height, c.OSDX, c.OSDY)
	fmt.Printf("Control: udp port %d, idle %v, coalesce %v\n",
		c.Port, c.IdleWait(), c.CoalesceWindow())
	fmt.Printf("Assets: %d configured\n", len(c.Descriptors()))
	if _, dur, ok := c.SplashDescriptor(); ok {
		fmt.Printf("Splash: %v\n", dur)
	}
	if c.Telemetry.MQTT.Enabled {
		fmt.Printf("Telemetry: mqtt %s:%d (%d feeds)\n",
			c.Telemetry.MQTT.Broker, c.Telemetry.MQTT.Port, len(c.Telemetry.Feeds))
	}
	if c.Recorder.Enabled {
		fmt.Printf("Recorder: %s every %ds\n", c.Recorder.Path, c.Recorder.IntervalS)
	}
	if c.Capture.Enabled {
		fmt.Printf("Capture: %s\n", c.Capture.Dir)
	}
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
