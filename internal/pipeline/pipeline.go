// internal/pipeline/pipeline.go
package pipeline

import (
	"math"

	"github.com/shopspring/decimal"
)

// Clamp limits v to [low, high]. NaN is returned unchanged.
func Clamp(v, low, high float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Round rounds half away from zero at the given number of decimal digits.
// The value is rounded in decimal, so 2.345 becomes 2.35 even though its
// binary form is slightly below 2.345. NaN and infinities are returned as is.
func Round(v float64, digits int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	if digits < 0 {
		digits = 0
	}
	return decimal.NewFromFloat(v).Round(int32(digits)).InexactFloat64()
}

// Apply runs the per-channel stage: clamp, then round.
func Apply(v, low, high float64, digits int) float64 {
	if math.IsNaN(v) {
		return v
	}
	return Round(Clamp(v, low, high), digits)
}
