package asset

import (
	"strings"

	"waybeam/channel"
)

// Compose builds the text a widget should display from its bindings, in
// strict fallback order: the non-empty channels named by TextIndices joined
// by space (inline) or newline, then the single TextIndex channel, then the
// static Label, then "". The result is recomputed on every channel refresh;
// callers forward it only when it differs byte-for-byte from the cached copy.
func Compose(d *Descriptor, store *channel.Store) string {
	if len(d.TextIndices) > 0 {
		sep := "\n"
		if d.TextInline {
			sep = " "
		}
		var b strings.Builder
		for _, idx := range d.TextIndices {
			t := store.Text(clampInt(idx, 0, channel.Count-1))
			if t == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString(sep)
			}
			b.WriteString(t)
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	if d.TextIndex >= 0 {
		if t := store.Text(d.TextIndex); t != "" {
			return t
		}
	}
	return d.Label
}
