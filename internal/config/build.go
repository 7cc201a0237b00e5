package config

import (
	"sort"

	"go.uber.org/zap"

	"platedesign/internal/experiment"
	"platedesign/internal/inducer"
	"platedesign/internal/layout"
	"platedesign/pkg/domain"
)

// Built holds the objects a Config describes.
type Built struct {
	Experiment *experiment.Experiment
	Inducers   map[string]inducer.Inducer
	Layouts    []layout.Layout
}

type syncer interface {
	SyncShuffling(other inducer.Inducer) error
	DisableShuffling()
}

// Build validates c and constructs its experiment. Options are passed to
// experiment.New after the logger.
func Build(c *Config, logger *zap.Logger, options ...experiment.Option) (*Built, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Built{Inducers: make(map[string]inducer.Inducer, len(c.Inducers))}
	ordered := make([]inducer.Inducer, 0, len(c.Inducers))
	for _, ic := range c.Inducers {
		ind, err := buildInducer(ic, logger)
		if err != nil {
			return nil, err
		}
		b.Inducers[ic.Name] = ind
		ordered = append(ordered, ind)
	}
	for _, ic := range c.Inducers {
		ind := b.Inducers[ic.Name]
		if ic.Shuffle != nil && !*ic.Shuffle {
			if s, ok := ind.(syncer); ok {
				s.DisableShuffling()
			}
		}
		if ic.SyncTo == "" {
			continue
		}
		controller, ok := b.Inducers[ic.SyncTo].(syncer)
		if !ok {
			return nil, domain.Configf(ic.Name, "cannot sync to %q", ic.SyncTo)
		}
		if err := controller.SyncShuffling(ind); err != nil {
			return nil, err
		}
	}

	for _, pc := range c.Plates {
		p, err := buildPlate(pc)
		if err != nil {
			return nil, err
		}
		if err := applyAll(p, pc.Apply, b.Inducers); err != nil {
			return nil, err
		}
		b.Layouts = append(b.Layouts, p)
	}
	for _, ac := range c.Arrays {
		plates := make([]*layout.Plate, 0, len(ac.Plates))
		for _, pc := range ac.Plates {
			p, err := buildPlate(pc)
			if err != nil {
				return nil, err
			}
			plates = append(plates, p)
		}
		a, err := layout.NewArray(layout.ArrayConfig{
			Name:      ac.Name,
			ArrayRows: ac.ArrayRows,
			ArrayCols: ac.ArrayCols,
			Plates:    plates,
			IDPrefix:  ac.IDPrefix,
			IDOffset:  ac.IDOffset,
		})
		if err != nil {
			return nil, err
		}
		if err := applyAll(a, ac.Apply, b.Inducers); err != nil {
			return nil, err
		}
		b.Layouts = append(b.Layouts, a)
	}

	opts := append([]experiment.Option{experiment.WithLogger(logger)}, options...)
	exp, err := experiment.New(c.ExperimentOptions(), opts...)
	if err != nil {
		return nil, err
	}
	for _, l := range b.Layouts {
		if err := exp.AddLayout(l); err != nil {
			return nil, err
		}
	}
	// Inducers that are only sync controllers still need to be shuffled.
	for _, ind := range ordered {
		if err := exp.AddInducer(ind); err != nil {
			return nil, err
		}
	}
	b.Experiment = exp
	return b, nil
}

func buildInducer(ic InducerConfig, logger *zap.Logger) (inducer.Inducer, error) {
	opts := []inducer.Option{
		inducer.WithIDOffset(ic.IDOffset),
		inducer.WithLogger(logger),
	}
	if ic.IDPrefix != "" {
		opts = append(opts, inducer.WithIDPrefix(ic.IDPrefix))
	}
	switch ic.Type {
	case TypeAbstract:
		a, err := inducer.NewAbstract(ic.Name, ic.Units, opts...)
		if err != nil {
			return nil, err
		}
		if ic.Gradient != nil {
			g := ic.Gradient
			err = a.SetGradient(g.Min, g.Max, g.N, scale(g.Scale), g.UseZero)
		} else {
			err = a.SetValues(ic.Concentrations)
		}
		if err != nil {
			return nil, err
		}
		return a, nil
	case TypeChemical:
		opts = append(opts, inducer.WithParams(params(ic)))
		ch, err := inducer.NewChemical(ic.Name, ic.Units, opts...)
		if err != nil {
			return nil, err
		}
		if ic.Gradient != nil {
			g := ic.Gradient
			err = ch.SetGradient(g.Min, g.Max, g.N, scale(g.Scale), g.UseZero)
		} else {
			err = ch.SetConcentrations(ic.Concentrations)
		}
		if err != nil {
			return nil, err
		}
		return ch, nil
	case TypeGeneExpression:
		opts = append(opts, inducer.WithParams(params(ic)))
		h := inducer.Hill{Y0: ic.Hill.Y0, DY: ic.Hill.DY, K: ic.Hill.K, N: ic.Hill.N}
		ge, err := inducer.NewGeneExpression(ic.Name, ic.Units, ic.ExpressionUnits, h, opts...)
		if err != nil {
			return nil, err
		}
		switch {
		case ic.ExpressionGradient != nil:
			g := ic.ExpressionGradient
			err = ge.SetExpressionGradient(g.Min, g.Max, g.N, scale(g.Scale))
		case len(ic.ExpressionLevels) > 0:
			err = ge.SetExpressionLevels(ic.ExpressionLevels)
		case ic.Gradient != nil:
			g := ic.Gradient
			err = ge.SetGradient(g.Min, g.Max, g.N, scale(g.Scale), g.UseZero)
		default:
			err = ge.SetConcentrations(ic.Concentrations)
		}
		if err != nil {
			return nil, err
		}
		return ge, nil
	default:
		return nil, domain.Configf(ic.Name, "unknown inducer type %q", ic.Type)
	}
}

func params(ic InducerConfig) inducer.Params {
	p := inducer.DefaultParams()
	p.StockConcentration = ic.StockConcentration
	p.ShotVolume = ic.ShotVolume
	p.MinReplicateVolume = ic.MinReplicateVolume
	p.MinTotalVolume = ic.MinTotalVolume
	if ic.SafetyFactor != nil {
		p.SafetyFactor = *ic.SafetyFactor
	}
	if ic.MinStockVolume != nil {
		p.MinStockVolume = *ic.MinStockVolume
	}
	if ic.MaxStockVolume != nil {
		p.MaxStockVolume = *ic.MaxStockVolume
	}
	if ic.DilutionStep != nil {
		p.DilutionStep = *ic.DilutionStep
	}
	if ic.InducerDecimals != nil {
		p.InducerDecimals = *ic.InducerDecimals
	}
	if ic.WaterDecimals != nil {
		p.WaterDecimals = *ic.WaterDecimals
	}
	return p
}

func scale(s string) inducer.Scale {
	if s == "" {
		return inducer.ScaleLinear
	}
	return inducer.Scale(s)
}

func buildPlate(pc PlateConfig) (*layout.Plate, error) {
	keys := make([]string, 0, len(pc.Metadata))
	for k := range pc.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	meta := make([]layout.Field, 0, len(keys))
	for _, k := range keys {
		meta = append(meta, layout.Field{Key: k, Value: pc.Metadata[k]})
	}
	return layout.NewPlate(layout.PlateConfig{
		Name:              pc.Name,
		Rows:              pc.Rows,
		Cols:              pc.Cols,
		SamplesToMeasure:  pc.SamplesToMeasure,
		SampleMediaVolume: pc.MediaVolume,
		IDPrefix:          pc.IDPrefix,
		IDOffset:          pc.IDOffset,
		Cells: layout.CellSetup{
			Strain:            pc.Cells.Strain,
			PredilutionFactor: pc.Cells.PredilutionFactor,
			PredilutionVolume: pc.Cells.PredilutionVolume,
			Inoculation:       layout.Inoculation(pc.Cells.Inoculation),
			TargetOD:          pc.Cells.TargetOD,
			ShotVolume:        pc.Cells.ShotVolume,
		},
		Metadata: meta,
	})
}

func applyAll(l layout.Layout, apps []ApplyConfig, inducers map[string]inducer.Inducer) error {
	for _, a := range apps {
		mode, err := domain.ParseMode(a.Mode)
		if err != nil {
			return err
		}
		if err := l.ApplyInducer(inducers[a.Inducer], mode); err != nil {
			return err
		}
	}
	return nil
}
