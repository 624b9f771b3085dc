package wire

import (
	"strconv"

	"waybeam/channel"
)

// MaxPayload is the hard datagram size of the protocol; readers truncate
// anything beyond it and decode what was received.
const MaxPayload = 1280

// MaxUpdateIndices bounds the text_indices list carried by one update.
const MaxUpdateIndices = 8

// NumOp describes what a positional entry in the "values" array asks for.
type NumOp uint8

const (
	// NumKeep leaves the previous channel value untouched (null or malformed).
	NumKeep NumOp = iota
	// NumSet writes a new value.
	NumSet
	// NumClear resets the channel to 0 (an explicit empty string).
	NumClear
)

// NumEntry is one positional element of the "values" array.
type NumEntry struct {
	Op    NumOp
	Value float64
}

// TextEntry is one positional element of the "texts" array. Set false keeps
// the previous content; an explicit "" clears the slot.
type TextEntry struct {
	Set   bool
	Value string
}

// AssetUpdate is a partial descriptor delta for one widget. Nil pointers mean
// "field absent this datagram". Type and Orientation stay raw strings here:
// mapping onto descriptor enums is the reconciler's concern.
type AssetUpdate struct {
	ID                int
	Enabled           *bool
	Type              *string
	ValueIndex        *int
	TextIndex         *int
	TextIndices       []int
	HasTextIndices    bool
	TextInline        *bool
	Label             *string
	X                 *int
	Y                 *int
	Width             *int
	Height            *int
	Min               *float64
	Max               *float64
	BarColor          *uint32
	TextColor         *uint32
	Background        *int
	BackgroundOpacity *int
	ImageOpacity      *int
	Segments          *int
	RoundedOutline    *bool
	Orientation       *string
	ImagePath         *string
}

// Datagram is the decoded form of one control packet. All sections are
// independently optional; absence means "no change".
type Datagram struct {
	Values       []NumEntry
	Texts        []TextEntry
	Updates      []AssetUpdate
	TimestampMS  int64
	HasTimestamp bool
}

// Changed reports whether the datagram carries anything that can mutate state.
func (d *Datagram) Changed() bool {
	if len(d.Updates) > 0 {
		return true
	}
	for _, e := range d.Values {
		if e.Op != NumKeep {
			return true
		}
	}
	for _, e := range d.Texts {
		if e.Set {
			return true
		}
	}
	return false
}

// Decode scans one datagram. It never fails: unparseable sections are simply
// absent from the result.
func Decode(buf []byte) Datagram {
	if len(buf) > MaxPayload {
		buf = buf[:MaxPayload]
	}
	var d Datagram
	d.Values = decodeValues(arrayBody(buf, "values"))
	d.Texts = decodeTexts(arrayBody(buf, "texts"))
	if arr := arrayBody(buf, "asset_updates"); arr != nil {
		for _, obj := range objects(arr) {
			if u, ok := decodeUpdate(obj); ok {
				d.Updates = append(d.Updates, u)
			}
		}
	}
	if ts, ok := FieldInt(buf, "timestamp_ms"); ok {
		d.TimestampMS = int64(ts)
		d.HasTimestamp = true
	}
	return d
}

func decodeValues(arr []byte) []NumEntry {
	if arr == nil {
		return nil
	}
	elems := elements(arr)
	if len(elems) > channel.Count {
		elems = elems[:channel.Count]
	}
	out := make([]NumEntry, len(elems))
	for i, el := range elems {
		switch {
		case len(el) == 0 || string(el) == "null":
			// keep
		case el[0] == '"':
			if string(el) == `""` {
				out[i] = NumEntry{Op: NumClear}
			}
			// non-empty string in a numeric slot: field absent, keep
		default:
			tok := numberToken(el)
			if tok == "" {
				break
			}
			if v, err := strconv.ParseFloat(tok, 64); err == nil {
				out[i] = NumEntry{Op: NumSet, Value: v}
			}
		}
	}
	return out
}

func decodeTexts(arr []byte) []TextEntry {
	if arr == nil {
		return nil
	}
	elems := elements(arr)
	if len(elems) > channel.Count {
		elems = elems[:channel.Count]
	}
	out := make([]TextEntry, len(elems))
	for i, el := range elems {
		if len(el) < 2 || el[0] != '"' || el[len(el)-1] != '"' {
			continue // null or malformed: keep previous
		}
		s := el[1 : len(el)-1]
		if len(s) > channel.MaxTextLen {
			s = s[:channel.MaxTextLen]
		}
		out[i] = TextEntry{Set: true, Value: string(s)}
	}
	return out
}

func decodeUpdate(obj []byte) (AssetUpdate, bool) {
	id, ok := FieldInt(obj, "id")
	if !ok || id < 0 {
		return AssetUpdate{}, false
	}
	u := AssetUpdate{ID: id}

	if v, ok := FieldBool(obj, "enabled"); ok {
		u.Enabled = &v
	} else if v, ok := FieldBool(obj, "enable"); ok { // legacy sender alias
		u.Enabled = &v
	}
	if s, ok := FieldString(obj, "type", 16); ok {
		u.Type = &s
	}
	u.ValueIndex = intField(obj, "value_index")
	u.TextIndex = intField(obj, "text_index")
	if idx, ok := FieldIntArray(obj, "text_indices", MaxUpdateIndices); ok {
		u.TextIndices = idx
		u.HasTextIndices = true
	}
	if v, ok := FieldBool(obj, "text_inline"); ok {
		u.TextInline = &v
	}
	if s, ok := FieldString(obj, "label", channel.MaxTextLen); ok {
		u.Label = &s
	}
	u.X = intField(obj, "x")
	u.Y = intField(obj, "y")
	u.Width = intField(obj, "width")
	u.Height = intField(obj, "height")
	u.Min = floatField(obj, "min")
	u.Max = floatField(obj, "max")
	u.BarColor = colorField(obj, "bar_color")
	u.TextColor = colorField(obj, "text_color")
	u.Background = intField(obj, "background")
	u.BackgroundOpacity = intField(obj, "background_opacity")
	u.ImageOpacity = intField(obj, "image_opacity")
	u.Segments = intField(obj, "segments")
	if v, ok := FieldBool(obj, "rounded_outline"); ok {
		u.RoundedOutline = &v
	}
	if s, ok := FieldString(obj, "orientation", 16); ok {
		u.Orientation = &s
	}
	if s, ok := FieldString(obj, "image_path", 256); ok {
		u.ImagePath = &s
	} else if s, ok := FieldString(obj, "source", 256); ok { // sender alias
		u.ImagePath = &s
	}
	return u, true
}

func intField(obj []byte, key string) *int {
	if v, ok := FieldInt(obj, key); ok {
		return &v
	}
	return nil
}

func floatField(obj []byte, key string) *float64 {
	if v, ok := FieldFloat(obj, key); ok {
		return &v
	}
	return nil
}

func colorField(obj []byte, key string) *uint32 {
	if v, ok := FieldInt(obj, key); ok {
		c := uint32(v)
		return &c
	}
	return nil
}
