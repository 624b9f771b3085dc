package asset

import "math"

// rangeEpsilon guards the max > min invariant against float noise.
const rangeEpsilon = 0.0001

// EffectiveRange returns the descriptor's bar range with the max > min
// invariant enforced: a violating max is substituted with min + 1.
func EffectiveRange(min, max float64) (float64, float64) {
	if max <= min+rangeEpsilon {
		max = min + 1
	}
	return min, max
}

// Percent maps a channel value onto [0,100]: the value is clamped into
// [min,max] first, scaled, then rounded to the nearest integer. The mapping
// must be reproducible bit-for-bit; renderers and labels share it.
func Percent(min, max, value float64) int {
	min, max = EffectiveRange(min, max)
	v := clampFloat(value, min, max)
	pct := (v - min) / (max - min) * 100
	return clampInt(int(math.Round(pct)), 0, 100)
}
