package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"waybeam/asset"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waybeam.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadUnreadableFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/waybeam.yaml")
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
	if cfg == nil || cfg.Port != 7777 || cfg.IdleWait() != 100*time.Millisecond {
		t.Fatalf("expected built-in defaults; got %+v", cfg)
	}
	descs := cfg.Descriptors()
	if len(descs) != 1 || descs[0].ID != 0 || descs[0].Kind != asset.Bar {
		t.Fatalf("expected one default bar asset; got %+v", descs)
	}
}

func TestLoadFullSchema(t *testing.T) {
	path := writeConfig(t, `
width: 1280
height: 720
osd_x: 10
osd_y: 20
show_stats: false
udp_stats: true
port: 9000
idle_ms: 50
coalesce_ms: 16
assets:
  - id: 0
    type: bar
    value_index: 2
    min: 0
    max: 100
    bar_color: 0xFF8800
    segments: 5
    orientation: left
  - id: 3
    type: text
    enable: true
    label: "CPU"
    text_index: 1
splashscreen:
  source: /usr/share/waybeam/logo.png
  duration_ms: 1500
logging:
  dir: /var/log/waybeam
  retention_days: 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Width != 1280 || cfg.Height != 720 || cfg.OSDX != 10 || cfg.OSDY != 20 {
		t.Fatalf("unexpected screen config: %+v", cfg)
	}
	if cfg.ShowStats || !cfg.UDPStats || cfg.Port != 9000 {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
	if cfg.IdleWait() != 50*time.Millisecond || cfg.CoalesceWindow() != 16*time.Millisecond {
		t.Fatalf("unexpected waits: idle=%v coalesce=%v", cfg.IdleWait(), cfg.CoalesceWindow())
	}

	descs := cfg.Descriptors()
	if len(descs) != 2 {
		t.Fatalf("expected 2 assets; got %d", len(descs))
	}
	bar := descs[0]
	if bar.Bar.ValueIndex != 2 || bar.Bar.Max != 100 || bar.Bar.Color != 0xFF8800 {
		t.Fatalf("unexpected bar asset: %+v", bar)
	}
	if bar.Bar.Segments != 5 || bar.Bar.Orientation != asset.Left {
		t.Fatalf("unexpected bar layout: %+v", bar.Bar)
	}
	text := descs[1]
	if text.ID != 3 || text.Kind != asset.Text || !text.Enabled || text.Label != "CPU" || text.TextIndex != 1 {
		t.Fatalf("unexpected text asset: %+v", text)
	}

	splash, dur, ok := cfg.SplashDescriptor()
	if !ok || dur != 1500*time.Millisecond {
		t.Fatalf("expected a splash of 1.5s; got ok=%v dur=%v", ok, dur)
	}
	if splash.Kind != asset.Image || splash.Image.Path != "/usr/share/waybeam/logo.png" {
		t.Fatalf("unexpected splash: %+v", splash)
	}
	if cfg.Logging.Dir != "/var/log/waybeam" || cfg.Logging.RetentionDays != 3 {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestDescriptorsDedupeAndCap(t *testing.T) {
	cfg := Default()
	for i := 0; i < 12; i++ {
		id := i % 10 // ids 0..9 with 0 and 1 repeated
		cfg.Assets = append(cfg.Assets, AssetConfig{ID: &id})
	}
	descs := cfg.Descriptors()
	if len(descs) != asset.MaxAssets {
		t.Fatalf("expected cap at %d; got %d", asset.MaxAssets, len(descs))
	}
	seen := make(map[int]bool)
	for _, d := range descs {
		if seen[d.ID] {
			t.Fatalf("expected unique ids; %d repeated", d.ID)
		}
		seen[d.ID] = true
	}
}

func TestLegacyBarKeys(t *testing.T) {
	path := writeConfig(t, `
bar_x: 5
bar_y: 6
bar_width: 200
bar_height: 20
bar_min: -1.0
bar_max: 1.0
bar_color: 0x00FF00
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	descs := cfg.Descriptors()
	if len(descs) != 1 {
		t.Fatalf("expected the implicit single bar; got %d assets", len(descs))
	}
	d := descs[0]
	if d.X != 5 || d.Y != 6 || d.Width != 200 || d.Height != 20 {
		t.Fatalf("unexpected geometry: %+v", d)
	}
	if d.Bar.Min != -1 || d.Bar.Max != 1 || d.Bar.Color != 0x00FF00 {
		t.Fatalf("unexpected range/color: %+v", d.Bar)
	}
}

func TestLegacyBarKeysIgnoredWithAssets(t *testing.T) {
	path := writeConfig(t, `
bar_x: 5
assets:
  - id: 0
    x: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	descs := cfg.Descriptors()
	if len(descs) != 1 || descs[0].X != 50 {
		t.Fatalf("expected the assets array to win; got %+v", descs)
	}
}

func TestRefreshMSAlias(t *testing.T) {
	path := writeConfig(t, "refresh_ms: 40\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IdleWait() != 40*time.Millisecond {
		t.Fatalf("expected refresh_ms to feed the idle wait; got %v", cfg.IdleWait())
	}

	// idle_ms wins when both appear, and the clamp holds.
	path = writeConfig(t, "refresh_ms: 40\nidle_ms: 5000\n")
	cfg, _ = Load(path)
	if cfg.IdleWait() != time.Second {
		t.Fatalf("expected the 1s clamp; got %v", cfg.IdleWait())
	}
}

func TestTelemetryIntervalFloor(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.PollMS = 100
	if cfg.TelemetryInterval() != time.Second {
		t.Fatalf("expected the 1s floor; got %v", cfg.TelemetryInterval())
	}
	cfg.Telemetry.PollMS = 5000
	if cfg.TelemetryInterval() != 5*time.Second {
		t.Fatalf("expected 5s; got %v", cfg.TelemetryInterval())
	}
}
