package main

import (
	"errors"
	"testing"
	"time"

	"waybeam/asset"
	"waybeam/config"
	"waybeam/engine"
	"waybeam/wire"
)

// opRenderer records every renderer operation in order so overlay tests can
// assert teardown/rebuild sequencing headlessly.
type opRenderer struct {
	calls []visualOp
	next  int
}

type visualOp struct {
	Op     string
	Handle int
	ID     int
	Pct    int
	Text   string
}

func (r *opRenderer) Create(d *asset.Descriptor) (engine.Handle, error) {
	if d == nil {
		return nil, errors.New("nil descriptor")
	}
	r.next++
	h := r.next
	r.calls = append(r.calls, visualOp{Op: "create", Handle: h, ID: d.ID})
	return h, nil
}

func (r *opRenderer) Destroy(h engine.Handle) {
	r.calls = append(r.calls, visualOp{Op: "destroy", Handle: h.(int)})
}

func (r *opRenderer) SetPercent(h engine.Handle, pct int) {
	r.calls = append(r.calls, visualOp{Op: "percent", Handle: h.(int), Pct: pct})
}

func (r *opRenderer) SetText(h engine.Handle, text string) {
	r.calls = append(r.calls, visualOp{Op: "text", Handle: h.(int), Text: text})
}

func (r *opRenderer) Relayout(h engine.Handle, geo engine.Geometry) {
	r.calls = append(r.calls, visualOp{Op: "relayout", Handle: h.(int)})
}

func (r *opRenderer) Restyle(h engine.Handle, style engine.Style) {
	r.calls = append(r.calls, visualOp{Op: "restyle", Handle: h.(int)})
}

func (r *opRenderer) reset() {
	r.calls = r.calls[:0]
}

func headlessConfig() *config.Config {
	cfg := config.Default()
	cfg.ShowStats = false
	cfg.Telemetry.Loadavg = false
	cfg.Telemetry.Uptime = false
	boot := "boot.png"
	cfg.Splash = &config.SplashConfig{
		AssetConfig: config.AssetConfig{ImagePath: &boot},
		DurationMS:  1000,
	}
	return cfg
}

func TestReloadDestroysEveryVisualBeforeRebuilding(t *testing.T) {
	r := &opRenderer{}
	o := newOverlay(headlessConfig(), r)

	created := map[int]bool{}
	for _, c := range r.calls {
		if c.Op == "create" {
			created[c.Handle] = true
		}
	}
	if len(created) != 2 {
		t.Fatalf("expected default asset + splash created at startup; got %+v", r.calls)
	}

	r.reset()
	o.reload(headlessConfig(), time.Now())

	destroyed := map[int]bool{}
	firstCreate := -1
	for i, c := range r.calls {
		switch c.Op {
		case "destroy":
			if firstCreate >= 0 {
				t.Fatalf("destroy after rebuild began: %+v", r.calls)
			}
			destroyed[c.Handle] = true
		case "create":
			if firstCreate < 0 {
				firstCreate = i
			}
		}
	}
	for h := range created {
		if !destroyed[h] {
			t.Fatalf("expected handle %d destroyed on reload; ops %+v", h, r.calls)
		}
	}
	if firstCreate < 0 {
		t.Fatalf("expected registry and splash rebuilt after teardown; got %+v", r.calls)
	}
}

func TestReloadReappliesChannelContents(t *testing.T) {
	r := &opRenderer{}
	o := newOverlay(headlessConfig(), r)

	d := wire.Decode([]byte(`{"values":[0.75]}`))
	if !o.eng.ApplyDatagram(&d) {
		t.Fatalf("expected datagram to change state")
	}
	o.eng.Refresh()
	o.tracker.RecordDatagram(17)

	r.reset()
	o.reload(headlessConfig(), time.Now())

	// The store survives reload, so the rebuilt bar must show 75 in its
	// first refresh rather than flashing the default.
	repushed := false
	for _, c := range r.calls {
		if c.Op == "percent" && c.Pct == 75 {
			repushed = true
		}
	}
	if !repushed {
		t.Fatalf("expected channel value repushed after reload; ops %+v", r.calls)
	}
	if o.tracker.Datagrams() != 0 {
		t.Fatalf("expected stats accumulators reset on reload; got %d", o.tracker.Datagrams())
	}
}
