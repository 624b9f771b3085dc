package engine

import (
	"errors"

	"waybeam/asset"
)

// recordingRenderer captures every renderer operation in order so tests can
// assert the exact call sequence the engine emits.
type recordingRenderer struct {
	calls      []rendererCall
	next       int
	failCreate bool
}

type rendererCall struct {
	Op     string
	Handle int
	ID     int
	Pct    int
	Text   string
	Geo    Geometry
	Style  Style
}

func (r *recordingRenderer) Create(d *asset.Descriptor) (Handle, error) {
	if r.failCreate {
		return nil, errors.New("create refused")
	}
	r.next++
	h := r.next
	r.calls = append(r.calls, rendererCall{Op: "create", Handle: h, ID: d.ID})
	return h, nil
}

func (r *recordingRenderer) Destroy(h Handle) {
	r.calls = append(r.calls, rendererCall{Op: "destroy", Handle: h.(int)})
}

func (r *recordingRenderer) SetPercent(h Handle, pct int) {
	r.calls = append(r.calls, rendererCall{Op: "percent", Handle: h.(int), Pct: pct})
}

func (r *recordingRenderer) SetText(h Handle, text string) {
	r.calls = append(r.calls, rendererCall{Op: "text", Handle: h.(int), Text: text})
}

func (r *recordingRenderer) Relayout(h Handle, geo Geometry) {
	r.calls = append(r.calls, rendererCall{Op: "relayout", Handle: h.(int), Geo: geo})
}

func (r *recordingRenderer) Restyle(h Handle, style Style) {
	r.calls = append(r.calls, rendererCall{Op: "restyle", Handle: h.(int), Style: style})
}

func (r *recordingRenderer) reset() {
	r.calls = r.calls[:0]
}

func (r *recordingRenderer) ops() []string {
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Op
	}
	return out
}
