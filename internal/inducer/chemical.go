package inducer

import (
	"math"

	"platedesign/pkg/domain"
	"platedesign/pkg/numeric"
)

// Params are the pipetting parameters of a physical inducer. Volumes are in
// µL; StockConcentration shares the inducer's units.
type Params struct {
	StockConcentration float64
	ShotVolume         float64
	SafetyFactor       float64
	MinStockVolume     float64
	MaxStockVolume     float64
	DilutionStep       float64
	InducerDecimals    int
	WaterDecimals      int
	MinReplicateVolume float64
	MinTotalVolume     float64
}

// DefaultParams returns the parameters used when none are supplied. Stock
// concentration and shot volume have no sensible default and stay zero.
func DefaultParams() Params {
	return Params{
		SafetyFactor:    1.2,
		MinStockVolume:  1.5,
		MaxStockVolume:  20,
		DilutionStep:    10,
		InducerDecimals: 2,
		WaterDecimals:   1,
	}
}

// Validate checks the parameters that do not depend on usage.
func (p Params) Validate() error {
	switch {
	case p.SafetyFactor < 1:
		return domain.Configf("params", "safety factor must be >= 1, got %g", p.SafetyFactor)
	case p.MinStockVolume < 0 || p.MaxStockVolume <= p.MinStockVolume:
		return domain.Configf("params", "stock aliquot volume range %g..%g is empty", p.MinStockVolume, p.MaxStockVolume)
	case p.DilutionStep <= 1:
		return domain.Configf("params", "dilution step must be > 1, got %g", p.DilutionStep)
	case p.InducerDecimals < 0 || p.WaterDecimals < 0:
		return domain.Configf("params", "decimals must be non-negative")
	case p.MinReplicateVolume < 0 || p.MinTotalVolume < 0:
		return domain.Configf("params", "volume floors must be non-negative")
	case p.StockConcentration < 0 || p.ShotVolume < 0:
		return domain.Configf("params", "stock concentration and shot volume must be non-negative")
	}
	return nil
}

// Chemical is a physically dosed inducer prepared from a stock solution.
type Chemical struct {
	base
	params Params

	mediaVolume     float64
	totalVolume     float64
	replicateVolume float64
	hasReplicate    bool
	recipeComputed  bool
}

// NewChemical creates a chemical inducer with an empty dose table.
func NewChemical(name, units string, opts ...Option) (*Chemical, error) {
	s := applyOptions(opts)
	if err := s.params.Validate(); err != nil {
		return nil, err
	}
	b, err := newBase(name, units, KindPhysical, s)
	if err != nil {
		return nil, err
	}
	return &Chemical{base: b, params: s.params}, nil
}

// Params returns the pipetting parameters.
func (c *Chemical) Params() Params { return c.params }

// Preparer returns c.
func (c *Chemical) Preparer() Preparer { return c }

// SetConcentrations rebuilds the dose table from explicit values.
func (c *Chemical) SetConcentrations(values []float64) error {
	for _, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Configf(c.name, "concentration %g is not a finite non-negative value", v)
		}
	}
	if err := c.setConcentrations(values); err != nil {
		return err
	}
	c.recipeComputed = false
	return nil
}

// SetGradient rebuilds the dose table from a gradient.
func (c *Chemical) SetGradient(min, max float64, n int, scale Scale, useZero bool) error {
	values, err := Gradient{Min: min, Max: max, N: n, Scale: scale, UseZero: useZero}.Values()
	if err != nil {
		return err
	}
	return c.SetConcentrations(values)
}

// SetMediaVolume records the media volume each dose is applied into.
func (c *Chemical) SetMediaVolume(v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.Configf(c.name, "media volume must be positive, got %g", v)
	}
	c.mediaVolume = v
	return nil
}

// MediaVolume returns the media volume, zero when unset.
func (c *Chemical) MediaVolume() float64 { return c.mediaVolume }

// TotalVolume returns the prepared volume per dose, zero before sizing.
func (c *Chemical) TotalVolume() float64 { return c.totalVolume }

// ReplicateVolume returns the per-replicate aliquot volume. It is only
// recorded when more than one replicate is prepared.
func (c *Chemical) ReplicateVolume() (float64, bool) {
	return c.replicateVolume, c.hasReplicate
}

// SetVolumeFromShots sizes the per-dose volumes from the number of shots one
// replicate consumes.
func (c *Chemical) SetVolumeFromShots(nShots, nReplicates int) error {
	if c.params.ShotVolume <= 0 {
		return domain.Configf(c.name, "shot volume must be set before sizing volumes")
	}
	if nShots < 1 {
		return domain.Configf(c.name, "number of shots must be positive, got %d", nShots)
	}
	if nReplicates < 1 {
		return domain.Configf(c.name, "number of replicates must be positive, got %d", nReplicates)
	}
	replicate := numeric.CeilLog(float64(nShots)*c.params.ShotVolume*c.params.SafetyFactor, 1)
	replicate = math.Max(replicate, c.params.MinReplicateVolume)
	if nReplicates > 1 {
		total := numeric.CeilLog(replicate*float64(nReplicates)*c.params.SafetyFactor, 1)
		c.totalVolume = math.Max(total, c.params.MinTotalVolume)
		c.replicateVolume, c.hasReplicate = replicate, true
		return nil
	}
	c.totalVolume = replicate
	c.replicateVolume, c.hasReplicate = 0, false
	return nil
}
