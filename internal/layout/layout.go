// Package layout binds inducers to plate geometry and assembles the
// per-sample tables of plates and plate arrays.
//
// Dose indexing follows a fixed convention: an inducer applied in rows mode
// has one dose per column and every row repeats them, an inducer applied in
// cols mode has one dose per row, wells mode walks the measured samples in
// row-major order and media mode applies a single dose to the whole plate.
package layout

import (
	"fmt"

	"platedesign/internal/inducer"
	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

// Sample table columns written for every layout.
const (
	ColID     = "ID"
	ColPlate  = "Plate"
	ColRow    = "Row"
	ColColumn = "Column"
)

// Application records one inducer applied in one mode.
type Application struct {
	Inducer inducer.Inducer
	Mode    domain.Mode
}

// Layout is a plate or a plate array.
type Layout interface {
	Name() string
	Rows() int
	Cols() int
	// SamplesToMeasure counts measured samples across all constituent plates.
	SamplesToMeasure() int
	SampleMediaVolume() float64
	// PlateCount is 1 for a plate and the number of constituents for an array.
	PlateCount() int
	Applications() []Application
	ApplyInducer(ind inducer.Inducer, mode domain.Mode) error
	// Close snapshots the current dose views into one ClosedPlate per plate.
	Close() ([]*ClosedPlate, error)
	LayoutTable() (*table.Table, error)
}

// Field is one metadata column written to every sample of a plate.
type Field struct {
	Key   string
	Value any
}

// Inoculation selects how cells are added to each sample.
type Inoculation string

const (
	InoculateNone   Inoculation = ""
	InoculateOD     Inoculation = "od"
	InoculateVolume Inoculation = "volume"
)

// CellSetup describes the culture each sample starts from.
type CellSetup struct {
	Strain            string
	PredilutionFactor float64
	PredilutionVolume float64
	Inoculation       Inoculation
	TargetOD          float64
	ShotVolume        float64
}

// Validate checks the inoculation parameters.
func (c CellSetup) Validate() error {
	switch c.Inoculation {
	case InoculateNone:
	case InoculateOD:
		if c.TargetOD <= 0 {
			return domain.Configf("cell setup", "target OD must be positive")
		}
	case InoculateVolume:
		if c.ShotVolume <= 0 {
			return domain.Configf("cell setup", "cell shot volume must be positive")
		}
	default:
		return domain.Configf("cell setup", "unknown inoculation method %q", c.Inoculation)
	}
	if c.PredilutionFactor < 0 || c.PredilutionVolume < 0 {
		return domain.Configf("cell setup", "predilution must be non-negative")
	}
	return nil
}

func (c CellSetup) fields() []Field {
	var out []Field
	if c.Strain != "" {
		out = append(out, Field{"Strain", c.Strain})
	}
	if c.PredilutionFactor > 0 {
		out = append(out, Field{"Cell Predilution", c.PredilutionFactor})
	}
	if c.PredilutionVolume > 0 {
		out = append(out, Field{"Cell Predilution Volume (µL)", c.PredilutionVolume})
	}
	switch c.Inoculation {
	case InoculateOD:
		out = append(out, Field{"Cell Initial OD600", c.TargetOD})
	case InoculateVolume:
		out = append(out, Field{"Cell Shot Volume (µL)", c.ShotVolume})
	}
	return out
}

// expectedDoses returns how many doses mode needs on a rows×cols layout with
// the given number of measured samples.
func expectedDoses(mode domain.Mode, rows, cols, samples int) int {
	switch mode {
	case domain.ModeRows:
		return cols
	case domain.ModeCols:
		return rows
	case domain.ModeWells:
		return samples
	default:
		return 1
	}
}

// checkApplication runs the checks shared by plates and arrays.
func checkApplication(l Layout, apps []Application, ind inducer.Inducer, mode domain.Mode) error {
	if ind == nil {
		return domain.Configf(l.Name(), "nil inducer")
	}
	if !mode.Valid() {
		return domain.Configf(l.Name(), "unknown application mode %q", mode)
	}
	full := l.Rows() * l.Cols()
	if (mode == domain.ModeRows || mode == domain.ModeCols) && l.SamplesToMeasure() != full {
		return domain.Configf(l.Name(), "mode %s needs every well measured, have %d of %d", mode, l.SamplesToMeasure(), full)
	}
	if want := expectedDoses(mode, l.Rows(), l.Cols(), l.SamplesToMeasure()); ind.Len() != want {
		return domain.Configf(l.Name(), "inducer %s has %d doses, mode %s needs %d", ind.Name(), ind.Len(), mode, want)
	}
	for _, app := range apps {
		if app.Inducer == ind && app.Mode == mode {
			return domain.Configf(l.Name(), "inducer %s already applied in mode %s", ind.Name(), mode)
		}
		if app.Inducer.ConcentrationHeader() == ind.ConcentrationHeader() || app.Inducer.IDHeader() == ind.IDHeader() {
			return domain.Configf(l.Name(), "inducer %s collides with applied inducer %s (mode %s)", ind.Name(), app.Inducer.Name(), app.Mode)
		}
	}
	return nil
}

// ClosedPlate is the sample table of one plate for one replicate.
type ClosedPlate struct {
	name     string
	idPrefix string
	idOffset int
	samples  *table.Table
	resource any
}

func (p *ClosedPlate) Name() string     { return p.name }
func (p *ClosedPlate) IDPrefix() string { return p.idPrefix }
func (p *ClosedPlate) IDOffset() int    { return p.idOffset }
func (p *ClosedPlate) Len() int         { return p.samples.Len() }

// Samples returns a copy of the sample table.
func (p *ClosedPlate) Samples() *table.Table { return p.samples.Clone() }

// Resource returns the assigned resource, nil when unassigned.
func (p *ClosedPlate) Resource() any { return p.resource }

// WithResource returns a copy of p assigned to resource.
func (p *ClosedPlate) WithResource(resource any) *ClosedPlate {
	cp := *p
	cp.resource = resource
	return &cp
}

func (p *ClosedPlate) String() string {
	return fmt.Sprintf("%s (%d samples)", p.name, p.samples.Len())
}
