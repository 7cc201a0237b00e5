package inducer

import (
	"math"

	"platedesign/pkg/domain"
)

// Scale selects the spacing of gradient points.
type Scale string

const (
	ScaleLinear Scale = "linear"
	ScaleLog    Scale = "log"
)

// Gradient describes n evenly spaced points between Min and Max. With
// UseZero the first point is 0 and the remaining n-1 points span Min..Max.
type Gradient struct {
	Min     float64
	Max     float64
	N       int
	Scale   Scale
	UseZero bool
}

// Values expands the gradient.
func (g Gradient) Values() ([]float64, error) {
	if g.N < 1 {
		return nil, domain.Configf("gradient", "need at least one point, got %d", g.N)
	}
	scale := g.Scale
	if scale == "" {
		scale = ScaleLinear
	}
	n := g.N
	var out []float64
	if g.UseZero {
		out = append(out, 0)
		n--
	}
	switch scale {
	case ScaleLinear:
		out = append(out, spaced(g.Min, g.Max, n, func(v float64) float64 { return v })...)
	case ScaleLog:
		if n > 0 && (g.Min <= 0 || g.Max <= 0) {
			return nil, domain.Configf("gradient", "log scale needs positive bounds, got %g..%g", g.Min, g.Max)
		}
		pts := spaced(math.Log10(g.Min), math.Log10(g.Max), n, func(v float64) float64 { return math.Pow(10, v) })
		// pin the endpoints so Pow(10, Log10(x)) drift does not leak out
		if n > 0 {
			pts[0] = g.Min
		}
		if n > 1 {
			pts[n-1] = g.Max
		}
		out = append(out, pts...)
	default:
		return nil, domain.Configf("gradient", "unknown scale %q", g.Scale)
	}
	return out, nil
}

func spaced(lo, hi float64, n int, f func(float64) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if n == 1 {
			out[i] = f(lo)
			continue
		}
		out[i] = f(lo + float64(i)*(hi-lo)/float64(n-1))
	}
	return out
}
