package assessment

import (
	"math"
	"strconv"
)

const (
	MinStrictness     = 1
	MaxStrictness     = 5
	DefaultStrictness = 3
)

// ClampStrictness forces level into [MinStrictness, MaxStrictness].
func ClampStrictness(level int) int {
	return max(MinStrictness, min(MaxStrictness, level))
}

// Multiplier returns the linear score factor for a strictness level: 1.2 at
// the most lenient level, 1.0 at the default and 0.8 at the strictest.
func Multiplier(level int) float64 {
	return 1.0 - float64(level-DefaultStrictness)*0.1
}

// AdjustScore scales raw by the strictness multiplier, clamps it to [0, 100]
// and rounds to one decimal. Clamping happens after scaling so a lenient level
// can push a score to exactly 100.
func AdjustScore(raw float64, level int) float64 {
	adjusted := raw * Multiplier(level)
	adjusted = math.Min(100, math.Max(0, adjusted))
	return round1(adjusted)
}

// round1 rounds to one decimal from the exact binary value, ties to even, so
// 0.15 (stored just below) gives 0.1 and 0.25 gives 0.2.
func round1(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}
