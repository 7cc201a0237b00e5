package layout

import (
	"fmt"
	"strings"

	"platedesign/internal/dose"
	"platedesign/internal/inducer"
	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

// PlateConfig describes a plate.
type PlateConfig struct {
	Name string
	Rows int
	Cols int
	// SamplesToMeasure defaults to Rows*Cols.
	SamplesToMeasure  int
	SampleMediaVolume float64
	// IDPrefix defaults to "S".
	IDPrefix string
	IDOffset int
	Cells    CellSetup
	Metadata []Field
}

// Plate is a single plate.
type Plate struct {
	cfg  PlateConfig
	apps []Application
}

// NewPlate validates cfg and returns an empty plate.
func NewPlate(cfg PlateConfig) (*Plate, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, domain.Configf("plate", "name is required")
	}
	if cfg.Rows < 1 || cfg.Cols < 1 {
		return nil, domain.Configf(cfg.Name, "geometry %dx%d is empty", cfg.Rows, cfg.Cols)
	}
	if cfg.SamplesToMeasure == 0 {
		cfg.SamplesToMeasure = cfg.Rows * cfg.Cols
	}
	if cfg.SamplesToMeasure < 1 || cfg.SamplesToMeasure > cfg.Rows*cfg.Cols {
		return nil, domain.Configf(cfg.Name, "samples to measure %d outside 1..%d", cfg.SamplesToMeasure, cfg.Rows*cfg.Cols)
	}
	if cfg.SampleMediaVolume < 0 {
		return nil, domain.Configf(cfg.Name, "sample media volume must be non-negative")
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "S"
	}
	if cfg.IDOffset < 0 {
		return nil, domain.Configf(cfg.Name, "id offset must be non-negative")
	}
	if err := cfg.Cells.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	seen := map[string]bool{ColID: true, ColPlate: true, ColRow: true, ColColumn: true}
	for _, f := range cfg.Metadata {
		if f.Key == "" || seen[f.Key] {
			return nil, domain.Configf(cfg.Name, "metadata key %q is empty or reserved", f.Key)
		}
		seen[f.Key] = true
	}
	return &Plate{cfg: cfg}, nil
}

func (p *Plate) Name() string               { return p.cfg.Name }
func (p *Plate) Rows() int                  { return p.cfg.Rows }
func (p *Plate) Cols() int                  { return p.cfg.Cols }
func (p *Plate) SamplesToMeasure() int      { return p.cfg.SamplesToMeasure }
func (p *Plate) SampleMediaVolume() float64 { return p.cfg.SampleMediaVolume }
func (p *Plate) PlateCount() int            { return 1 }
func (p *Plate) IDPrefix() string           { return p.cfg.IDPrefix }
func (p *Plate) IDOffset() int              { return p.cfg.IDOffset }

// Applications returns the applied inducers in application order.
func (p *Plate) Applications() []Application {
	return append([]Application(nil), p.apps...)
}

// ApplyInducer binds ind to the plate in mode.
func (p *Plate) ApplyInducer(ind inducer.Inducer, mode domain.Mode) error {
	if err := checkApplication(p, p.apps, ind, mode); err != nil {
		return err
	}
	p.apps = append(p.apps, Application{Inducer: ind, Mode: mode})
	return nil
}

func (p *Plate) setIdentity(prefix string, offset int) {
	p.cfg.IDPrefix, p.cfg.IDOffset = prefix, offset
}

// doseIndex maps a sample to the dose it receives under mode.
func doseIndex(mode domain.Mode, sample, row, col int) int {
	switch mode {
	case domain.ModeRows:
		return col
	case domain.ModeCols:
		return row
	case domain.ModeWells:
		return sample
	default:
		return 0
	}
}

func (p *Plate) columns() []string {
	cols := []string{ColID, ColPlate}
	for _, f := range p.cfg.Metadata {
		cols = append(cols, f.Key)
	}
	cols = append(cols, ColRow, ColColumn)
	for _, f := range p.cfg.Cells.fields() {
		cols = append(cols, f.Key)
	}
	for _, app := range p.apps {
		cols = append(cols, app.Inducer.ConcentrationHeader(), app.Inducer.IDHeader())
	}
	return cols
}

// SampleTable builds one row per measured sample from the current dose views.
func (p *Plate) SampleTable() (*table.Table, error) {
	views := make([]*table.Table, len(p.apps))
	for i, app := range p.apps {
		v := app.Inducer.Doses()
		if want := expectedDoses(app.Mode, p.cfg.Rows, p.cfg.Cols, p.cfg.SamplesToMeasure); v.Len() != want {
			return nil, domain.Consistencyf(p.cfg.Name, "inducer %s now has %d doses, mode %s needs %d", app.Inducer.Name(), v.Len(), app.Mode, want)
		}
		views[i] = v
	}
	cells := p.cfg.Cells.fields()
	out := table.New(p.columns()...)
	for s := 0; s < p.cfg.SamplesToMeasure; s++ {
		r, c := s/p.cfg.Cols, s%p.cfg.Cols
		row := table.Row{
			ColID:     fmt.Sprintf("%s%03d", p.cfg.IDPrefix, p.cfg.IDOffset+s+1),
			ColPlate:  p.cfg.Name,
			ColRow:    r + 1,
			ColColumn: c + 1,
		}
		for _, f := range p.cfg.Metadata {
			row[f.Key] = f.Value
		}
		for _, f := range cells {
			row[f.Key] = f.Value
		}
		for i, app := range p.apps {
			k := doseIndex(app.Mode, s, r, c)
			row[app.Inducer.ConcentrationHeader()] = views[i].Value(k, app.Inducer.ConcentrationHeader())
			row[app.Inducer.IDHeader()] = views[i].Value(k, dose.IDColumn)
		}
		out.Append(row)
	}
	return out, nil
}

// Close returns the plate's single ClosedPlate.
func (p *Plate) Close() ([]*ClosedPlate, error) {
	samples, err := p.SampleTable()
	if err != nil {
		return nil, err
	}
	return []*ClosedPlate{{
		name:     p.cfg.Name,
		idPrefix: p.cfg.IDPrefix,
		idOffset: p.cfg.IDOffset,
		samples:  samples,
	}}, nil
}

// LayoutTable renders the plate as a grid.
func (p *Plate) LayoutTable() (*table.Table, error) {
	return renderGrid(p.cfg.Rows, p.cfg.Cols, p.apps, func(r, c int) (int, bool) {
		s := r*p.cfg.Cols + c
		return s, s < p.cfg.SamplesToMeasure
	})
}

var _ Layout = (*Plate)(nil)
