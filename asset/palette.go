package asset

// BackgroundStyle is one entry of the fixed background palette: a color plus
// its default opacity. A descriptor's BackgroundOpacity >= 0 overrides the
// palette opacity.
type BackgroundStyle struct {
	Color   uint32
	Opacity int // percent
}

// Palette is the fixed background style table shared by config, wire updates
// and renderers. Index -1 (no background) is represented outside the table.
var Palette = [...]BackgroundStyle{
	{0x000000, 0}, // transparent baseline
	{0x000000, 50},
	{0xFFFFFF, 50},
	{0x111111, 70},
	{0x222222, 90},
	{0x2266CC, 60},
	{0x009688, 60},
	{0x4CAF50, 60},
	{0xFF9800, 70},
	{0xE91E63, 60},
	{0x9C27B0, 70},
}

// ClampBackground confines a palette index to [-1, len(Palette)-1].
func ClampBackground(idx int) int {
	return clampInt(idx, -1, len(Palette)-1)
}

// ResolveBackground returns the effective color and opacity for a descriptor's
// background selection; ok is false when no background is requested.
func ResolveBackground(style, opacityPct int) (BackgroundStyle, bool) {
	if style < 0 || style >= len(Palette) {
		return BackgroundStyle{}, false
	}
	bg := Palette[style]
	if opacityPct >= 0 {
		bg.Opacity = clampInt(opacityPct, 0, 100)
	}
	return bg, true
}
