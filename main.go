// Program waybeam drives a UDP-controlled telemetry overlay: datagrams
// mutate a small set of widget descriptors (bars, text, images), a
// reconciliation engine computes the minimal visual operations, and a
// coalescing scheduler paces how often those operations reach the renderer.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/term"

	"waybeam/archive"
	"waybeam/asset"
	"waybeam/channel"
	"waybeam/config"
	"waybeam/engine"
	"waybeam/ingest"
	"waybeam/push"
	"waybeam/recorder"
	"waybeam/render"
	"waybeam/stats"
	"waybeam/telemetry"
	"waybeam/wire"
)

const (
	defaultConfigPath = "waybeam.yaml"
	envConfigPath     = "WAYBEAM_CONFIG"

	statsRefresh = 250 * time.Millisecond
	pruneEvery   = time.Hour
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	headless := flag.Bool("headless", false, "log renderer operations instead of drawing")
	replayDir := flag.String("replay", "", "replay a capture directory through a fresh overlay and exit")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config: %v (using defaults)\n", err)
	}

	fanout, logErr := setupLogging(cfg.Logging, os.Stdout)
	log.SetFlags(0)
	log.SetOutput(fanout)
	if logErr != nil {
		log.Printf("Logging: file sink unavailable: %v", logErr)
	}

	var code int
	if *replayDir != "" {
		code = runReplay(*replayDir, cfg)
	} else {
		cfg.Print()
		code = run(path, cfg, *headless)
	}
	fanout.Close()
	os.Exit(code)
}

// run owns the process lifecycle around the reconciliation loop and returns
// the process exit code.
func run(configPath string, cfg *config.Config, headless bool) int {
	var stopFlag, reloadFlag atomic.Bool
	sigChan := make(chan os.Signal, 4)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for s := range sigChan {
			if s == syscall.SIGHUP {
				reloadFlag.Store(true)
			} else {
				stopFlag.Store(true)
			}
		}
	}()

	var r engine.Renderer
	var console *render.Console
	if headless || !term.IsTerminal(int(os.Stdout.Fd())) {
		r = render.NewLog()
	} else {
		console = render.NewConsole(cfg.Width, cfg.Height)
		r = console
		go func() {
			if err := console.Run(); err != nil {
				log.Printf("Render: console terminated: %v", err)
			}
			stopFlag.Store(true)
		}()
	}

	udp, err := ingest.Listen(cfg.Port)
	if err != nil {
		log.Printf("Fatal: %v", err)
		return 1
	}
	defer udp.Close()
	log.Printf("Listening on %s", udp.Addr())

	o := newOverlay(cfg, r)
	defer o.teardown()

	loop(cfg, o, udp, &stopFlag, &reloadFlag, func() *config.Config {
		next, err := config.Load(configPath)
		if err != nil {
			log.Printf("Reload: %v (using defaults)", err)
		}
		return next
	})

	if console != nil {
		console.Stop()
	}
	return 0
}

// overlay bundles the loop-owned state: registry, channel store, engine,
// splash, stats view and the optional persistence collaborators.
type overlay struct {
	r     engine.Renderer
	reg   *asset.Registry
	store *channel.Store
	eng   *engine.Engine

	splash    *engine.Splash
	statsView *statsView

	sched   *push.Scheduler
	tracker *stats.Tracker
	poller  *telemetry.Poller
	mqtt    *telemetry.MQTTSource

	rec     *recorder.Recorder
	capture *archive.Capture

	udpStats  bool
	lastStats time.Time
	lastPrune time.Time
}

func newOverlay(cfg *config.Config, r engine.Renderer) *overlay {
	o := &overlay{
		r:       r,
		reg:     &asset.Registry{},
		store:   &channel.Store{},
		sched:   push.NewScheduler(cfg.CoalesceWindow()),
		tracker: stats.NewTracker(time.Now()),
	}
	o.eng = engine.New(o.reg, o.store, r)
	o.applyConfig(cfg, time.Now())

	var sources []telemetry.Source
	if cfg.Telemetry.Loadavg {
		sources = append(sources, telemetry.NewLoadavg(channel.ExternalCount))
	}
	if cfg.Telemetry.Uptime {
		sources = append(sources, telemetry.NewUptime(channel.ExternalCount+1))
	}
	if cfg.Telemetry.MQTT.Enabled {
		bindings := make([]telemetry.Binding, 0, len(cfg.Telemetry.Feeds))
		for _, f := range cfg.Telemetry.Feeds {
			bindings = append(bindings, telemetry.Binding{
				Topic: f.Topic, Channel: f.Channel, Text: f.Text,
			})
		}
		o.mqtt = telemetry.NewMQTTSource(cfg.Telemetry.MQTT.Broker,
			cfg.Telemetry.MQTT.Port, cfg.Telemetry.MQTT.Name, bindings)
		if err := o.mqtt.Connect(); err != nil {
			log.Printf("Telemetry: %v", err)
			o.mqtt = nil
		} else {
			sources = append(sources, o.mqtt)
		}
	}
	if len(sources) > 0 {
		o.poller = telemetry.NewPoller(cfg.TelemetryInterval(), sources...)
	}

	if cfg.Recorder.Enabled {
		rec, err := recorder.New(cfg.Recorder.Path,
			time.Duration(cfg.Recorder.IntervalS)*time.Second,
			time.Duration(cfg.Recorder.RetainDays)*24*time.Hour)
		if err != nil {
			log.Printf("Recorder: %v (disabled)", err)
		} else {
			o.rec = rec
		}
	}
	if cfg.Capture.Enabled {
		cpt, err := archive.Open(cfg.Capture.Dir,
			time.Duration(cfg.Capture.MaxAgeH)*time.Hour, cfg.Capture.MaxBytes)
		if err != nil {
			log.Printf("Capture: %v (disabled)", err)
		} else {
			o.capture = cpt
		}
	}
	return o
}

// applyConfig rebuilds the registry, splash and stats view from cfg. Called
// at startup and on every reload; visuals must already be torn down.
func (o *overlay) applyConfig(cfg *config.Config, now time.Time) {
	o.reg.Clear()
	for _, d := range cfg.Descriptors() {
		if o.reg.Add(d) == nil {
			log.Printf("Config: asset %d dropped (registry full or duplicate)", d.ID)
		}
	}
	o.eng.RebuildAll()
	o.eng.Refresh()

	o.splash = nil
	if desc, dur, ok := cfg.SplashDescriptor(); ok {
		o.splash = engine.NewSplash(desc, dur)
		o.splash.Show(o.r, now)
	}

	o.udpStats = cfg.UDPStats
	o.statsView = nil
	if cfg.ShowStats {
		o.statsView = newStatsView(o.r)
	}
}

// reload implements the hot-reload contract: full visual teardown, config
// rebuild, channel contents reapplied, accumulators reset.
func (o *overlay) reload(cfg *config.Config, now time.Time) {
	log.Printf("Reloading configuration")
	o.splash.Clear(o.r)
	o.statsView.destroy()
	o.eng.DestroyAll()
	o.applyConfig(cfg, now)
	o.sched.MarkDirty(now)
	o.tracker.Reset(now)
}

func (o *overlay) teardown() {
	o.splash.Clear(o.r)
	o.statsView.destroy()
	o.eng.DestroyAll()
	if o.mqtt != nil {
		o.mqtt.Stop()
	}
	if err := o.rec.Close(); err != nil {
		log.Printf("Recorder: close: %v", err)
	}
	if err := o.capture.Close(); err != nil {
		log.Printf("Capture: close: %v", err)
	}
}

// loop is the single-owner reconciliation loop. Every mutation of the
// registry, store and engine happens here; signals arrive as atomic flags
// observed once per iteration.
func loop(cfg *config.Config, o *overlay, udp *ingest.UDP,
	stopFlag, reloadFlag *atomic.Bool, reloadCfg func() *config.Config) {

	idleCap := cfg.IdleWait()
	for !stopFlag.Load() {
		now := time.Now()

		if reloadFlag.Swap(false) {
			next := reloadCfg()
			o.reload(next, now)
			idleCap = next.IdleWait()
		}

		wait := o.sched.NextWait(now, idleCap)
		payload, ok, err := udp.WaitAndDrain(wait)
		if err != nil {
			if !stopFlag.Load() {
				log.Printf("Ingest: %v; shutting down", err)
			}
			return
		}
		now = time.Now()
		if ok {
			o.tracker.RecordDatagram(len(payload))
			if cerr := o.capture.Record(now, payload); cerr != nil {
				log.Printf("Capture: %v", cerr)
			}
			d := wire.Decode(payload)
			if o.eng.ApplyDatagram(&d) {
				o.sched.MarkDirty(now)
			}
		}

		if o.poller != nil && o.applyTelemetry(o.poller.Poll(now)) {
			o.sched.MarkDirty(now)
		}

		o.splash.Tick(o.r, now)
		o.refreshStats(now, udp)

		if o.sched.ShouldFlush(now) {
			workStart := time.Now()
			o.eng.Refresh()
			delay := o.sched.Flushed(now)
			o.tracker.RecordFlush(now, delay, time.Since(workStart))
		}

		o.maintain(now, udp)
	}
}

// applyTelemetry folds samples into the locally-computed channel range and
// reports whether anything observable changed.
func (o *overlay) applyTelemetry(samples []telemetry.Sample) bool {
	changed := false
	for _, s := range samples {
		if s.IsText {
			if o.store.Text(s.Channel) != s.Text && o.store.SetLocalText(s.Channel, s.Text) {
				changed = true
			}
		} else {
			if o.store.Value(s.Channel) != s.Value && o.store.SetLocalValue(s.Channel, s.Value) {
				changed = true
			}
		}
	}
	return changed
}

// refreshStats rebuilds the overlay text block at ~4 Hz.
func (o *overlay) refreshStats(now time.Time, udp *ingest.UDP) {
	if o.statsView == nil || now.Sub(o.lastStats) < statsRefresh {
		return
	}
	o.lastStats = now
	info := stats.LoopInfo{
		Assets:         o.reg.Len(),
		Discarded:      udp.Discarded(),
		Duplicates:     udp.Duplicates(),
		DroppedUpdates: o.eng.DroppedUpdates(),
		Wait:           o.sched.Window(),
		ShowChannels:   o.udpStats,
		Values:         o.store.Values(),
	}
	o.statsView.update(o.tracker.Overlay(now, info))
}

// maintain runs the off-path persistence chores at loop checkpoints.
func (o *overlay) maintain(now time.Time, udp *ingest.UDP) {
	if o.rec != nil {
		snap := recorder.Snapshot{
			Datagrams:      o.tracker.Datagrams(),
			Flushes:        o.tracker.Flushes(),
			Discarded:      udp.Discarded(),
			Duplicates:     udp.Duplicates(),
			DroppedUpdates: o.eng.DroppedUpdates(),
			Rate:           o.tracker.Rate(),
			Assets:         o.reg.Len(),
		}
		if _, err := o.rec.MaybeRecord(now, snap); err != nil {
			log.Printf("Recorder: %v", err)
		}
	}
	if o.capture != nil && now.Sub(o.lastPrune) >= pruneEvery {
		o.lastPrune = now
		if err := o.capture.Prune(now); err != nil {
			log.Printf("Capture: %v", err)
		}
	}
}

// statsView owns the stats text widget. It lives outside the registry, like
// the splash, so a sender cannot address or disable it.
type statsView struct {
	r      engine.Renderer
	handle engine.Handle
	last   string
}

func newStatsView(r engine.Renderer) *statsView {
	return &statsView{r: r}
}

func (s *statsView) update(text string) {
	if s == nil || text == s.last {
		return
	}
	if s.handle == nil {
		desc := asset.Default(0)
		desc.Kind = asset.Text
		desc.X, desc.Y = 8, 8
		desc.Width, desc.Height = 0, 0
		desc.TextColor = 0xC0C0C0
		h, err := s.r.Create(&desc)
		if err != nil {
			return
		}
		s.handle = h
	}
	s.r.SetText(s.handle, text)
	s.last = text
}

func (s *statsView) destroy() {
	if s == nil || s.handle == nil {
		return
	}
	s.r.Destroy(s.handle)
	s.handle = nil
	s.last = ""
}

// runReplay feeds a capture directory through a fresh overlay with the log
// renderer, at full speed, and reports what it produced.
func runReplay(dir string, cfg *config.Config) int {
	cpt, err := archive.Open(dir, 0, 0)
	if err != nil {
		log.Printf("Replay: %v", err)
		return 1
	}
	defer cpt.Close()

	reg := &asset.Registry{}
	store := &channel.Store{}
	eng := engine.New(reg, store, render.NewLog())
	for _, d := range cfg.Descriptors() {
		reg.Add(d)
	}
	eng.RebuildAll()
	eng.Refresh()

	n := 0
	err = cpt.Replay(time.Unix(0, 0), time.Now(), func(at time.Time, payload []byte) error {
		d := wire.Decode(payload)
		if eng.ApplyDatagram(&d) {
			eng.Refresh()
		}
		n++
		return nil
	})
	if err != nil {
		log.Printf("Replay: %v", err)
		return 1
	}
	log.Printf("Replay: %d datagrams applied", n)
	eng.DestroyAll()
	return 0
}
