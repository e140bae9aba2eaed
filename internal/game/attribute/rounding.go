package attribute

import "math"

// RoundToDecimals rounds v half away from zero to the given number of
// decimals. Zero or negative decimals rounds to a whole number.
//
// Applied after clamping on every write path so current, base and the
// authoritative re-clamp can never disagree on precision. Idempotent:
// rounding an already-rounded value returns it unchanged.
func RoundToDecimals(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
