package inducer

import (
	"math/rand/v2"

	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

// Abstract is an inducer that is never pipetted, such as light intensity or
// incubation temperature. It only carries values.
type Abstract struct {
	base
}

// NewAbstract creates an abstract inducer with an empty dose table.
func NewAbstract(name, units string, opts ...Option) (*Abstract, error) {
	b, err := newBase(name, units, KindAbstract, applyOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Abstract{base: b}, nil
}

// Preparer returns nil.
func (a *Abstract) Preparer() Preparer { return nil }

// SetValues rebuilds the dose table from explicit values.
func (a *Abstract) SetValues(values []float64) error {
	return a.setConcentrations(values)
}

// SetGradient rebuilds the dose table from a gradient.
func (a *Abstract) SetGradient(min, max float64, n int, scale Scale, useZero bool) error {
	values, err := Gradient{Min: min, Max: max, N: n, Scale: scale, UseZero: useZero}.Values()
	if err != nil {
		return err
	}
	return a.SetValues(values)
}

// Slice is a contiguous window [lo, hi) over another inducer's active doses.
// It follows the parent's shuffles and is never shuffled or prepared itself.
type Slice struct {
	parent Inducer
	lo, hi int
}

// NewSlice returns the window [lo, hi) of parent.
func NewSlice(parent Inducer, lo, hi int) (*Slice, error) {
	if parent == nil {
		return nil, domain.Configf("slice", "nil parent")
	}
	if lo < 0 || hi > parent.Len() || lo >= hi {
		return nil, domain.Configf(parent.Name(), "slice [%d, %d) out of range for %d doses", lo, hi, parent.Len())
	}
	return &Slice{parent: parent, lo: lo, hi: hi}, nil
}

func (s *Slice) Name() string                { return s.parent.Name() }
func (s *Slice) Units() string               { return s.parent.Units() }
func (s *Slice) Kind() Kind                  { return KindAbstract }
func (s *Slice) Len() int                    { return s.hi - s.lo }
func (s *Slice) ConcentrationHeader() string { return s.parent.ConcentrationHeader() }
func (s *Slice) IDHeader() string            { return s.parent.IDHeader() }
func (s *Slice) Doses() *table.Table         { return s.parent.Doses().Slice(s.lo, s.hi) }
func (s *Slice) Shuffle(*rand.Rand)          {}
func (s *Slice) Unshuffle()                  {}
func (s *Slice) Preparer() Preparer          { return nil }

var (
	_ Inducer = (*Chemical)(nil)
	_ Inducer = (*GeneExpression)(nil)
	_ Inducer = (*Abstract)(nil)
	_ Inducer = (*Slice)(nil)
)
