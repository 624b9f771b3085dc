package engine

import "strings"

// Flags is the set of invalidations a descriptor delta raises. The mapping
// from changed field to flag is a fixed policy; resolution order lives in
// resolve.
type Flags uint8

const (
	FlagRestyle Flags = 1 << iota
	FlagRelayout
	FlagRerange
	FlagRecreate
	FlagTextChange
)

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f.Has(FlagRestyle) {
		parts = append(parts, "restyle")
	}
	if f.Has(FlagRelayout) {
		parts = append(parts, "relayout")
	}
	if f.Has(FlagRerange) {
		parts = append(parts, "rerange")
	}
	if f.Has(FlagRecreate) {
		parts = append(parts, "recreate")
	}
	if f.Has(FlagTextChange) {
		parts = append(parts, "textchange")
	}
	return strings.Join(parts, "|")
}
