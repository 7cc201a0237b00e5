package numeric

import (
	"fmt"
	"math"
)

// snapTolerance is the relative distance under which a scaled value is
// considered to already sit on an integer. It absorbs float noise such as
// 0.3/0.1 = 2.9999999999999996.
const snapTolerance = 1e-9

// CeilLog returns the smallest value >= x that is exact at its r-th
// significant digit, e.g. CeilLog(24, 1) == 30 and CeilLog(108, 1) == 200.
// r < 1 is treated as 1. Zero, NaN and infinities are returned unchanged.
func CeilLog(x float64, r int) float64 {
	if r < 1 {
		r = 1
	}
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	exp := int(math.Floor(math.Log10(math.Abs(x)))) - (r - 1)
	q := scale(x, -exp)
	// Log10 can land one below an exact power of ten.
	if math.Abs(q) >= math.Pow10(r) {
		exp++
		q = scale(x, -exp)
	}
	n := math.Round(q)
	if math.Abs(q-n) <= snapTolerance*math.Max(1, math.Abs(n)) {
		return x
	}
	return math.Max(scale(math.Ceil(q), exp), x)
}

// CeilLogEach applies CeilLog element-wise. rs either holds a single
// precision broadcast to every element or one precision per element.
func CeilLogEach(xs []float64, rs []int) ([]float64, error) {
	if len(rs) != 1 && len(rs) != len(xs) {
		return nil, fmt.Errorf("ceil log: %d precisions for %d values", len(rs), len(xs))
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		r := rs[0]
		if len(rs) > 1 {
			r = rs[i]
		}
		out[i] = CeilLog(x, r)
	}
	return out, nil
}

// RoundTo rounds x half away from zero to the given number of decimals.
func RoundTo(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return scale(math.Round(scale(x, decimals)), -decimals)
}

// scale multiplies x by 10^e. Negative exponents divide by the positive
// power so that results like 7/10 stay at the nearest float to 0.7.
func scale(x float64, e int) float64 {
	if e >= 0 {
		return x * math.Pow10(e)
	}
	return x / math.Pow10(-e)
}
