package calc

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds v to 2 decimal places.
//
// The exact binary value of v is rounded half away from zero and the result is
// the float64 closest to that decimal. This means 1.005 (stored as
// 1.00499999...) rounds down to 1.00 while 0.125, an exact tie, rounds up to
// 0.13. Non-finite values are returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloatWithExponent(v, -2).Float64()
	return f
}
