package inducer

import (
	"fmt"
	"math"

	"platedesign/internal/dose"
	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

// Hill is the dose-response y = Y0 + DY·xᴺ/(xᴺ+Kᴺ).
type Hill struct {
	Y0 float64
	DY float64
	K  float64
	N  float64
}

// Validate rejects curves that cannot be inverted.
func (h Hill) Validate() error {
	if h.DY == 0 || h.K <= 0 || h.N <= 0 {
		return domain.Configf("hill", "need DY != 0, K > 0 and N > 0, got DY=%g K=%g N=%g", h.DY, h.K, h.N)
	}
	return nil
}

// Expression maps a concentration to an expression level.
func (h Hill) Expression(x float64) float64 {
	if math.IsInf(x, 1) {
		return h.Y0 + h.DY
	}
	xn := math.Pow(x, h.N)
	return h.Y0 + h.DY*xn/(xn+math.Pow(h.K, h.N))
}

// Concentration maps an expression level back to a concentration. Y0 maps
// to 0 and Y0+DY to +Inf; values outside that range fail with a RangeError.
func (h Hill) Concentration(y float64) (float64, error) {
	lo, hi := h.Y0, h.Y0+h.DY
	if lo > hi {
		lo, hi = hi, lo
	}
	if y < lo || y > hi || math.IsNaN(y) {
		return 0, domain.RangeError{Subject: "expression level", Value: y, Min: lo, Max: hi}
	}
	z := (y - h.Y0) / h.DY
	switch z {
	case 0:
		return 0, nil
	case 1:
		return math.Inf(1), nil
	}
	return h.K * math.Pow(z/(1-z), 1/h.N), nil
}

// GeneExpression is a chemical inducer whose doses are specified as target
// expression levels of a reporter.
type GeneExpression struct {
	*Chemical
	hill            Hill
	expressionUnits string
}

// NewGeneExpression creates a gene-expression inducer.
func NewGeneExpression(name, units, expressionUnits string, hill Hill, opts ...Option) (*GeneExpression, error) {
	if err := hill.Validate(); err != nil {
		return nil, err
	}
	c, err := NewChemical(name, units, opts...)
	if err != nil {
		return nil, err
	}
	return &GeneExpression{Chemical: c, hill: hill, expressionUnits: expressionUnits}, nil
}

// Preparer returns g.
func (g *GeneExpression) Preparer() Preparer { return g }

// ExpressionHeader names the dose column holding expression levels.
func (g *GeneExpression) ExpressionHeader() string {
	if g.expressionUnits == "" {
		return g.name + " Expression Level"
	}
	return fmt.Sprintf("%s Expression Level (%s)", g.name, g.expressionUnits)
}

// SetExpressionLevels stores the levels and the concentrations producing them.
func (g *GeneExpression) SetExpressionLevels(levels []float64) error {
	concs := make([]float64, len(levels))
	for i, y := range levels {
		x, err := g.hill.Concentration(y)
		if err != nil {
			return fmt.Errorf("%s: %w", g.name, err)
		}
		if math.IsInf(x, 1) {
			return domain.Configf(g.name, "expression level %g is the curve maximum and needs infinite concentration", y)
		}
		concs[i] = x
	}
	return g.rebuild(levels, concs)
}

// SetExpressionGradient sets expression levels from a gradient.
func (g *GeneExpression) SetExpressionGradient(min, max float64, n int, scale Scale) error {
	levels, err := Gradient{Min: min, Max: max, N: n, Scale: scale}.Values()
	if err != nil {
		return err
	}
	return g.SetExpressionLevels(levels)
}

// SetConcentrations stores the concentrations and their expression levels.
func (g *GeneExpression) SetConcentrations(values []float64) error {
	if err := g.Chemical.SetConcentrations(values); err != nil {
		return err
	}
	levels := make([]float64, len(values))
	for i, x := range values {
		levels[i] = g.hill.Expression(x)
	}
	return g.rebuild(levels, values)
}

// SetGradient sets concentrations from a gradient.
func (g *GeneExpression) SetGradient(min, max float64, n int, scale Scale, useZero bool) error {
	values, err := Gradient{Min: min, Max: max, N: n, Scale: scale, UseZero: useZero}.Values()
	if err != nil {
		return err
	}
	return g.SetConcentrations(values)
}

// ComputeRecipe computes the chemical recipe and updates the expression
// column to the level the achievable concentration produces.
func (g *GeneExpression) ComputeRecipe() (*table.Table, error) {
	prep, err := g.Chemical.ComputeRecipe()
	if err != nil {
		return nil, err
	}
	concs, err := g.doses.Canonical().Floats(g.ConcentrationHeader())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.name, err)
	}
	levels := make([]any, len(concs))
	for i, x := range concs {
		levels[i] = g.hill.Expression(x)
	}
	if err := g.doses.SetColumn(g.ExpressionHeader(), levels); err != nil {
		return nil, err
	}
	return prep, nil
}

func (g *GeneExpression) rebuild(levels, concs []float64) error {
	if err := g.doses.Rebuild(
		dose.Column{Name: g.ExpressionHeader(), Values: anyFloats(levels)},
		dose.Column{Name: g.ConcentrationHeader(), Values: anyFloats(concs)},
	); err != nil {
		return err
	}
	g.recipeComputed = false
	return nil
}
