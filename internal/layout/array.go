package layout

import (
	"fmt"
	"strings"

	"platedesign/internal/inducer"
	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

// ArrayConfig describes a grid of identical plates.
type ArrayConfig struct {
	Name      string
	ArrayRows int
	ArrayCols int
	// Plates are listed in row-major array order.
	Plates []*Plate
	// IDPrefix, when set, renumbers the constituent plates so sample IDs run
	// continuously from IDOffset+1 across the array.
	IDPrefix string
	IDOffset int
}

// Array is a grid of plates that behaves as one large plate.
type Array struct {
	cfg  ArrayConfig
	apps []Application
}

// NewArray validates cfg and returns an array with no applications.
func NewArray(cfg ArrayConfig) (*Array, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, domain.Configf("array", "name is required")
	}
	if cfg.ArrayRows < 1 || cfg.ArrayCols < 1 {
		return nil, domain.Configf(cfg.Name, "array geometry %dx%d is empty", cfg.ArrayRows, cfg.ArrayCols)
	}
	if len(cfg.Plates) != cfg.ArrayRows*cfg.ArrayCols {
		return nil, domain.Configf(cfg.Name, "%d plates do not fill a %dx%d array", len(cfg.Plates), cfg.ArrayRows, cfg.ArrayCols)
	}
	names := make(map[string]bool, len(cfg.Plates))
	for _, p := range cfg.Plates {
		if p == nil {
			return nil, domain.Configf(cfg.Name, "nil plate")
		}
		first := cfg.Plates[0]
		if p.Rows() != first.Rows() || p.Cols() != first.Cols() {
			return nil, domain.Configf(cfg.Name, "plate %s is %dx%d, expected %dx%d", p.Name(), p.Rows(), p.Cols(), first.Rows(), first.Cols())
		}
		if p.SampleMediaVolume() != first.SampleMediaVolume() {
			return nil, domain.Configf(cfg.Name, "plate %s media volume %g differs from %g", p.Name(), p.SampleMediaVolume(), first.SampleMediaVolume())
		}
		if names[p.Name()] {
			return nil, domain.Configf(cfg.Name, "duplicate plate name %q", p.Name())
		}
		names[p.Name()] = true
		if len(p.Applications()) > 0 {
			return nil, domain.Configf(cfg.Name, "plate %s already has inducers applied", p.Name())
		}
	}
	if cfg.IDPrefix != "" {
		offset := cfg.IDOffset
		for _, p := range cfg.Plates {
			p.setIdentity(cfg.IDPrefix, offset)
			offset += p.SamplesToMeasure()
		}
	}
	return &Array{cfg: cfg}, nil
}

func (a *Array) Name() string    { return a.cfg.Name }
func (a *Array) plateRows() int  { return a.cfg.Plates[0].Rows() }
func (a *Array) plateCols() int  { return a.cfg.Plates[0].Cols() }
func (a *Array) Rows() int       { return a.cfg.ArrayRows * a.plateRows() }
func (a *Array) Cols() int       { return a.cfg.ArrayCols * a.plateCols() }
func (a *Array) PlateCount() int { return len(a.cfg.Plates) }

// Plates returns the constituent plates in row-major order.
func (a *Array) Plates() []*Plate { return append([]*Plate(nil), a.cfg.Plates...) }

// SamplesToMeasure sums the constituent plates.
func (a *Array) SamplesToMeasure() int {
	n := 0
	for _, p := range a.cfg.Plates {
		n += p.SamplesToMeasure()
	}
	return n
}

// SampleMediaVolume returns the media volume shared by all plates.
func (a *Array) SampleMediaVolume() float64 { return a.cfg.Plates[0].SampleMediaVolume() }

// Applications returns the array-level applications.
func (a *Array) Applications() []Application {
	return append([]Application(nil), a.apps...)
}

type chunk struct {
	plate  *Plate
	lo, hi int
}

// chunks splits n doses of mode across the constituent plates. Rows mode
// gives each column band of plates the same window, cols mode each row band,
// wells mode one window per plate in row-major order and media mode the
// whole inducer to every plate.
func (a *Array) chunks(mode domain.Mode, n int) ([]chunk, error) {
	out := make([]chunk, 0, len(a.cfg.Plates))
	switch mode {
	case domain.ModeWells:
		lo := 0
		for _, p := range a.cfg.Plates {
			out = append(out, chunk{plate: p, lo: lo, hi: lo + p.SamplesToMeasure()})
			lo += p.SamplesToMeasure()
		}
		if lo != n {
			return nil, domain.Configf(a.cfg.Name, "%d doses do not cover %d measured samples", n, lo)
		}
		return out, nil
	case domain.ModeMedia:
		for _, p := range a.cfg.Plates {
			out = append(out, chunk{plate: p, lo: 0, hi: n})
		}
		return out, nil
	}

	bands := a.cfg.ArrayCols
	if mode == domain.ModeCols {
		bands = a.cfg.ArrayRows
	}
	if n%bands != 0 {
		return nil, domain.Configf(a.cfg.Name, "%d doses do not split evenly into %d %s bands", n, bands, mode)
	}
	size := n / bands
	for i, p := range a.cfg.Plates {
		band := i % a.cfg.ArrayCols
		if mode == domain.ModeCols {
			band = i / a.cfg.ArrayCols
		}
		out = append(out, chunk{plate: p, lo: band * size, hi: (band + 1) * size})
	}
	return out, nil
}

// ApplyInducer splits ind across the constituent plates and applies each
// window to its plate. Nothing is applied unless every plate accepts.
func (a *Array) ApplyInducer(ind inducer.Inducer, mode domain.Mode) error {
	if err := checkApplication(a, a.apps, ind, mode); err != nil {
		return err
	}
	chunks, err := a.chunks(mode, ind.Len())
	if err != nil {
		return err
	}
	parts := make([]inducer.Inducer, len(chunks))
	for i, ch := range chunks {
		if mode == domain.ModeMedia {
			parts[i] = ind
		} else {
			s, err := inducer.NewSlice(ind, ch.lo, ch.hi)
			if err != nil {
				return fmt.Errorf("%s: %w", a.cfg.Name, err)
			}
			parts[i] = s
		}
		if err := checkApplication(ch.plate, ch.plate.apps, parts[i], mode); err != nil {
			return err
		}
	}
	for i, ch := range chunks {
		ch.plate.apps = append(ch.plate.apps, Application{Inducer: parts[i], Mode: mode})
	}
	a.apps = append(a.apps, Application{Inducer: ind, Mode: mode})
	return nil
}

// SampleTable concatenates the constituent sample tables.
func (a *Array) SampleTable() (*table.Table, error) {
	tables := make([]*table.Table, len(a.cfg.Plates))
	for i, p := range a.cfg.Plates {
		t, err := p.SampleTable()
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}
	return table.Concat(tables...), nil
}

// Close assembles the array sample table and partitions it back into one
// ClosedPlate per constituent plate.
func (a *Array) Close() ([]*ClosedPlate, error) {
	combined, err := a.SampleTable()
	if err != nil {
		return nil, err
	}
	out := make([]*ClosedPlate, len(a.cfg.Plates))
	for i, p := range a.cfg.Plates {
		name := p.Name()
		out[i] = &ClosedPlate{
			name:     name,
			idPrefix: p.IDPrefix(),
			idOffset: p.IDOffset(),
			samples:  combined.Filter(func(r table.Row) bool { return r[ColPlate] == name }),
		}
	}
	return out, nil
}

// LayoutTable renders the array as one grid in aggregate coordinates.
func (a *Array) LayoutTable() (*table.Table, error) {
	pr, pc := a.plateRows(), a.plateCols()
	offsets := make([]int, len(a.cfg.Plates))
	for i := 1; i < len(offsets); i++ {
		offsets[i] = offsets[i-1] + a.cfg.Plates[i-1].SamplesToMeasure()
	}
	return renderGrid(a.Rows(), a.Cols(), a.apps, func(r, c int) (int, bool) {
		k := (r/pr)*a.cfg.ArrayCols + c/pc
		local := (r%pr)*pc + c%pc
		return offsets[k] + local, local < a.cfg.Plates[k].SamplesToMeasure()
	})
}

var _ Layout = (*Array)(nil)
