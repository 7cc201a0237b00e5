// Package inducer models the substances and conditions applied to plates.
//
// Every inducer owns one dose table. Physically dosed inducers (Chemical,
// GeneExpression) additionally carry pipetting parameters and compute a
// preparation recipe; abstract inducers (Abstract, Slice) only describe
// values. The distinction is fixed at construction and exposed through Kind
// and Preparer.
package inducer

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"platedesign/internal/dose"
	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

// Kind tags whether an inducer is pipetted.
type Kind int

const (
	// KindPhysical inducers take part in volume sizing and recipe computation.
	KindPhysical Kind = iota
	// KindAbstract inducers carry values only.
	KindAbstract
)

func (k Kind) String() string {
	switch k {
	case KindPhysical:
		return "physical"
	case KindAbstract:
		return "abstract"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Inducer is the view of an inducer used by layouts and the experiment.
type Inducer interface {
	Name() string
	Units() string
	Kind() Kind
	Len() int
	ConcentrationHeader() string
	IDHeader() string
	// Doses returns the dose rows in active order.
	Doses() *table.Table
	Shuffle(rng *rand.Rand)
	Unshuffle()
	// Preparer returns the recipe interface, nil for abstract inducers.
	Preparer() Preparer
}

// Preparer sizes and computes the preparation recipe of a physical inducer.
type Preparer interface {
	SetMediaVolume(v float64) error
	MediaVolume() float64
	SetVolumeFromShots(nShots, nReplicates int) error
	TotalVolume() float64
	ReplicateVolume() (float64, bool)
	// ComputeRecipe replaces each requested concentration with the achievable
	// one and returns one preparation row per distinct dose.
	ComputeRecipe() (*table.Table, error)
}

// ConcentrationHeader names the sample-table column holding an inducer's value.
func ConcentrationHeader(name, units string) string {
	if units == "" {
		return name + " Concentration"
	}
	return fmt.Sprintf("%s Concentration (%s)", name, units)
}

// IDHeader names the sample-table column holding an inducer's dose ID.
func IDHeader(name string) string { return name + " ID" }

type base struct {
	name   string
	units  string
	kind   Kind
	doses  *dose.Table
	logger *zap.Logger
}

func newBase(name, units string, kind Kind, s settings) (base, error) {
	if strings.TrimSpace(name) == "" {
		return base{}, domain.Configf("inducer", "name is required")
	}
	prefix := s.prefix
	if prefix == "" {
		prefix = defaultPrefix(name)
	}
	if s.offset < 0 {
		return base{}, domain.Configf(name, "id offset must be non-negative, got %d", s.offset)
	}
	return base{
		name:   name,
		units:  units,
		kind:   kind,
		doses:  dose.NewTable(prefix, s.offset),
		logger: s.logger.With(zap.String("inducer", name)),
	}, nil
}

func defaultPrefix(name string) string {
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return "D"
}

func (b *base) Name() string                { return b.name }
func (b *base) Units() string               { return b.units }
func (b *base) Kind() Kind                  { return b.kind }
func (b *base) Len() int                    { return b.doses.Len() }
func (b *base) ConcentrationHeader() string { return ConcentrationHeader(b.name, b.units) }
func (b *base) IDHeader() string            { return IDHeader(b.name) }
func (b *base) Doses() *table.Table         { return b.doses.View() }
func (b *base) Shuffle(rng *rand.Rand)      { b.doses.Shuffle(rng) }
func (b *base) Unshuffle()                  { b.doses.Unshuffle() }

// DoseTable exposes the underlying dose table.
func (b *base) DoseTable() *dose.Table { return b.doses }

// DisableShuffling keeps this inducer in canonical order during replicates.
func (b *base) DisableShuffling() { b.doses.DisableShuffling() }

// Concentrations returns the concentration column in active order.
func (b *base) Concentrations() []float64 {
	values, err := b.doses.View().Floats(b.ConcentrationHeader())
	if err != nil {
		return nil
	}
	return values
}

// SyncShuffling makes other follow this inducer's permutation.
func (b *base) SyncShuffling(other Inducer) error {
	owner, ok := other.(interface{ DoseTable() *dose.Table })
	if !ok {
		return domain.Configf(b.name, "cannot synchronize with %s: it has no dose table of its own", other.Name())
	}
	if err := b.doses.Sync(owner.DoseTable()); err != nil {
		return fmt.Errorf("sync %s to %s: %w", other.Name(), b.name, err)
	}
	return nil
}

func (b *base) setConcentrations(values []float64) error {
	return b.doses.Rebuild(dose.Column{Name: b.ConcentrationHeader(), Values: anyFloats(values)})
}

func anyFloats(values []float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
