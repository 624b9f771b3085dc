// Package channel implements the fixed-capacity value/text channel store that
// feeds widget reconciliation. Slots are partitioned into an externally-fed
// range (written only by decoded datagrams) and a locally-computed range
// (written only by telemetry sources); the store enforces the partition so a
// misrouted write degrades to a no-op instead of corrupting the other side.
package channel

const (
	// Count is the total number of value and text slots.
	Count = 16
	// ExternalCount is the size of the externally-fed prefix [0, ExternalCount).
	// Slots [ExternalCount, Count) belong to local telemetry sources.
	ExternalCount = 12
	// MaxTextLen bounds stored text bytes; longer writes truncate.
	MaxTextLen = 96
)

// Store holds parallel value and text slots. Indices are stable for the
// process lifetime; unset values read 0.0 and unset texts read "".
// Not safe for concurrent use: a single loop goroutine owns it.
type Store struct {
	values [Count]float64
	texts  [Count]string
}

// Value returns the numeric slot at index, or 0 when out of range.
func (s *Store) Value(index int) float64 {
	if index < 0 || index >= Count {
		return 0
	}
	return s.values[index]
}

// Text returns the text slot at index, or "" when out of range.
func (s *Store) Text(index int) string {
	if index < 0 || index >= Count {
		return ""
	}
	return s.texts[index]
}

// SetExternalValue writes a numeric slot in the externally-fed range.
// Writes outside [0, ExternalCount) are dropped and reported false.
func (s *Store) SetExternalValue(index int, v float64) bool {
	if index < 0 || index >= ExternalCount {
		return false
	}
	s.values[index] = v
	return true
}

// ClearExternalValue resets a numeric slot in the externally-fed range to 0.
func (s *Store) ClearExternalValue(index int) bool {
	return s.SetExternalValue(index, 0)
}

// SetExternalText writes a text slot in the externally-fed range, truncating
// to MaxTextLen bytes. An empty string clears the slot.
func (s *Store) SetExternalText(index int, t string) bool {
	if index < 0 || index >= ExternalCount {
		return false
	}
	s.texts[index] = truncate(t)
	return true
}

// SetLocalValue writes a numeric slot in the locally-computed range
// [ExternalCount, Count). Writes outside that range are dropped.
func (s *Store) SetLocalValue(index int, v float64) bool {
	if index < ExternalCount || index >= Count {
		return false
	}
	s.values[index] = v
	return true
}

// SetLocalText writes a text slot in the locally-computed range, truncating
// to MaxTextLen bytes.
func (s *Store) SetLocalText(index int, t string) bool {
	if index < ExternalCount || index >= Count {
		return false
	}
	s.texts[index] = truncate(t)
	return true
}

// Values returns a copy of all numeric slots (stats overlay, tests).
func (s *Store) Values() [Count]float64 {
	return s.values
}

// Texts returns a copy of all text slots.
func (s *Store) Texts() [Count]string {
	return s.texts
}

func truncate(t string) string {
	if len(t) > MaxTextLen {
		return t[:MaxTextLen]
	}
	return t
}
