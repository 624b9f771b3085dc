package engine

import (
	"log"
	"slices"

	"waybeam/asset"
	"waybeam/channel"
	"waybeam/wire"
)

// Engine owns the reconciliation path: registry plus channel store in, the
// minimal renderer operation sequence out. Single loop goroutine ownership;
// no locking anywhere.
type Engine struct {
	reg   *asset.Registry
	store *channel.Store
	r     Renderer

	droppedUpdates uint64
	createErrors   uint64
}

// New wires an engine over the given registry, channel store and renderer.
func New(reg *asset.Registry, store *channel.Store, r Renderer) *Engine {
	return &Engine{reg: reg, store: store, r: r}
}

// DroppedUpdates counts deltas discarded because the registry was full.
func (e *Engine) DroppedUpdates() uint64 { return e.droppedUpdates }

// ApplyDatagram folds one decoded datagram into the channel store and the
// registry. It reports whether anything observable changed, which is what
// arms the push scheduler.
func (e *Engine) ApplyDatagram(d *wire.Datagram) bool {
	changed := false
	for i, en := range d.Values {
		switch en.Op {
		case wire.NumSet:
			if e.store.SetExternalValue(i, en.Value) {
				changed = true
			}
		case wire.NumClear:
			if e.store.ClearExternalValue(i) {
				changed = true
			}
		}
	}
	for i, en := range d.Texts {
		if en.Set && e.store.SetExternalText(i, en.Value) {
			changed = true
		}
	}
	for _, u := range d.Updates {
		if e.ApplyUpdate(u) {
			changed = true
		}
	}
	return changed
}

// Purpose: Reconcile one asset delta against its descriptor and resolve the
// resulting visual flags.
// Key aspects: Unknown ids implicitly create a disabled placeholder; beyond
// registry capacity the delta is dropped and counted. Returns whether any
// descriptor field actually changed.
// Upstream: ApplyDatagram per asset_updates entry.
// Downstream: UpdateDescriptor, resolve.
func (e *Engine) ApplyUpdate(u wire.AssetUpdate) bool {
	entry := e.reg.Find(u.ID)
	if entry == nil {
		entry = e.reg.AddPlaceholder(u.ID)
		if entry == nil {
			e.droppedUpdates++
			return false
		}
	}
	flags, changed := UpdateDescriptor(&entry.Desc, u)
	if changed {
		e.resolve(entry, flags)
	}
	return changed
}

// UpdateDescriptor applies every present field of the delta to the
// descriptor, raising flags only for fields whose value actually differs.
// It returns the raised flags plus whether anything (flagged or not, e.g.
// value_index) changed. Exposed as a pure function so the flag policy is
// testable without a renderer.
func UpdateDescriptor(d *asset.Descriptor, u wire.AssetUpdate) (Flags, bool) {
	var flags Flags
	changed := false

	// The enabled transition is applied last but decided first, like the
	// wire contract: later field comparisons see the pre-delta value.
	newEnabled := d.Enabled
	if u.Enabled != nil {
		newEnabled = *u.Enabled
	}

	if u.Type != nil {
		if k := asset.ParseKind(*u.Type); k != d.Kind {
			d.Kind = k
			flags |= FlagRecreate
			changed = true
		}
	}
	if u.ValueIndex != nil {
		if idx := clampInt(*u.ValueIndex, 0, channel.Count-1); idx != d.Bar.ValueIndex {
			d.Bar.ValueIndex = idx
			changed = true // no flag: the next refresh picks it up
		}
	}
	if u.TextIndex != nil {
		if idx := clampInt(*u.TextIndex, -1, channel.Count-1); idx != d.TextIndex {
			d.TextIndex = idx
			flags |= FlagTextChange
			changed = true
		}
	}
	if u.HasTextIndices {
		idx := u.TextIndices
		if len(idx) > asset.MaxTextIndices {
			idx = idx[:asset.MaxTextIndices]
		}
		if !slices.Equal(idx, d.TextIndices) {
			d.TextIndices = slices.Clone(idx)
			flags |= FlagTextChange
			changed = true
		}
	}
	if u.TextInline != nil && *u.TextInline != d.TextInline {
		d.TextInline = *u.TextInline
		flags |= FlagTextChange
		changed = true
	}
	if u.RoundedOutline != nil && *u.RoundedOutline != d.Bar.RoundedOutline {
		d.Bar.RoundedOutline = *u.RoundedOutline
		flags |= FlagRecreate
		changed = true
	}
	if u.ImageOpacity != nil {
		if v := clampInt(*u.ImageOpacity, 0, 100); v != d.Image.Opacity {
			d.Image.Opacity = v
			flags |= FlagRestyle
			changed = true
		}
	}
	if u.ImagePath != nil && *u.ImagePath != d.Image.Path {
		d.Image.Path = *u.ImagePath
		flags |= FlagRecreate
		changed = true
	}
	if u.Label != nil && *u.Label != d.Label {
		d.Label = *u.Label
		flags |= FlagTextChange
		changed = true
	}
	if u.Orientation != nil {
		if o := asset.ParseOrientation(*u.Orientation, d.Bar.Orientation); o != d.Bar.Orientation {
			d.Bar.Orientation = o
			flags |= FlagRelayout
			changed = true
		}
	}
	if u.BarColor != nil && d.Kind != asset.Text && *u.BarColor != d.Bar.Color {
		d.Bar.Color = *u.BarColor
		flags |= FlagRestyle
		changed = true
	}
	if u.TextColor != nil && *u.TextColor != d.TextColor {
		d.TextColor = *u.TextColor
		flags |= FlagRestyle | FlagTextChange
		changed = true
	}
	if u.Background != nil {
		if bg := asset.ClampBackground(*u.Background); bg != d.Background {
			d.Background = bg
			flags |= FlagRestyle
			changed = true
		}
	}
	if u.BackgroundOpacity != nil {
		if v := clampInt(*u.BackgroundOpacity, 0, 100); v != d.BackgroundOpacity {
			d.BackgroundOpacity = v
			flags |= FlagRestyle
			changed = true
		}
	}
	if u.Segments != nil {
		if v := clampInt(*u.Segments, 0, 64); v != d.Bar.Segments {
			d.Bar.Segments = v
			// Segment repaint is folded into relayout so it stays idempotent.
			flags |= FlagRelayout
			changed = true
		}
	}
	if u.X != nil && *u.X != d.X {
		d.X = *u.X
		flags |= FlagRelayout
		changed = true
	}
	if u.Y != nil && *u.Y != d.Y {
		d.Y = *u.Y
		flags |= FlagRelayout
		changed = true
	}
	if u.Width != nil && *u.Width != d.Width {
		d.Width = *u.Width
		flags |= FlagRelayout
		changed = true
		if d.Kind == asset.Text {
			flags |= FlagRecreate
		}
	}
	if u.Height != nil && *u.Height != d.Height {
		d.Height = *u.Height
		flags |= FlagRelayout
		changed = true
		if d.Kind == asset.Text {
			flags |= FlagRecreate
		}
	}
	if u.Min != nil && *u.Min != d.Bar.Min {
		d.Bar.Min = *u.Min
		flags |= FlagRerange
		changed = true
	}
	if u.Max != nil && *u.Max != d.Bar.Max {
		d.Bar.Max = *u.Max
		flags |= FlagRerange
		changed = true
	}

	if newEnabled != d.Enabled {
		d.Enabled = newEnabled
		flags |= flagEnabledChange
		changed = true
	}
	return flags, changed
}

// flagEnabledChange is internal to the resolution step: an enabled toggle in
// either direction forces destroy (off) or a full recreate (on).
const flagEnabledChange Flags = 1 << 7

// resolve turns raised flags into the minimal renderer call sequence.
// Order matters and is a tested property: disable short-circuits everything;
// a recreate (or absent visual) supersedes restyle/relayout/rerange because
// Create styles and lays out from the descriptor; otherwise relayout and
// rerange apply independently, then restyle and text change.
func (e *Engine) resolve(entry *asset.Entry, flags Flags) {
	d := &entry.Desc
	if !d.Enabled {
		e.destroyVisual(entry)
		return
	}
	if entry.State.Handle == nil || flags.Has(FlagRecreate) || flags.Has(flagEnabledChange) {
		e.recreateVisual(entry)
		return
	}
	h := entry.State.Handle
	if flags.Has(FlagRelayout) {
		e.r.Relayout(h, geometryOf(d))
	}
	if flags.Has(FlagRerange) {
		entry.State.LastPercent = -1
	}
	if flags.Has(FlagRestyle) {
		e.r.Restyle(h, styleOf(d))
	}
	if flags.Has(FlagTextChange) {
		entry.State.LastText = ""
		entry.State.TextValid = false
	}
}

func (e *Engine) destroyVisual(entry *asset.Entry) {
	if entry.State.Handle != nil {
		e.r.Destroy(entry.State.Handle)
		entry.State.Handle = nil
	}
	entry.State.Reset()
}

// recreateVisual rebuilds the visual from the descriptor. The push caches are
// reset so the next refresh forwards percent and text unconditionally; no
// separate restyle call is emitted because Create already styles everything.
func (e *Engine) recreateVisual(entry *asset.Entry) {
	e.destroyVisual(entry)
	h, err := e.r.Create(&entry.Desc)
	if err != nil {
		e.createErrors++
		log.Printf("Engine: create failed for asset %d: %v", entry.Desc.ID, err)
		return
	}
	entry.State.Handle = h
}

// Refresh recomputes percent and composed text for every live widget and
// forwards only what differs from the cached last push. This is the
// minimal-diff guarantee: an unchanged channel refresh produces zero
// renderer calls.
func (e *Engine) Refresh() {
	for i := 0; i < e.reg.Len(); i++ {
		entry := e.reg.At(i)
		d := &entry.Desc
		if !d.Enabled || entry.State.Handle == nil {
			continue
		}
		h := entry.State.Handle
		if d.Kind == asset.Bar {
			v := e.store.Value(d.Bar.ValueIndex)
			pct := asset.Percent(d.Bar.Min, d.Bar.Max, v)
			if pct != entry.State.LastPercent {
				e.r.SetPercent(h, pct)
				entry.State.LastPercent = pct
			}
		}
		if d.WantsText() {
			s := asset.Compose(d, e.store)
			if !entry.State.TextValid || s != entry.State.LastText {
				e.r.SetText(h, s)
				entry.State.LastText = s
				entry.State.TextValid = true
			}
		}
	}
}

// RebuildAll creates visuals for every enabled widget; used at startup and
// after a reload rebuilt the registry.
func (e *Engine) RebuildAll() {
	for i := 0; i < e.reg.Len(); i++ {
		entry := e.reg.At(i)
		if entry.Desc.Enabled {
			e.recreateVisual(entry)
		}
	}
}

// DestroyAll tears down every visual, leaving descriptors intact.
func (e *Engine) DestroyAll() {
	for i := 0; i < e.reg.Len(); i++ {
		e.destroyVisual(e.reg.At(i))
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
