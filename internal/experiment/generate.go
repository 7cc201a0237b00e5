package experiment

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"platedesign/internal/inducer"
	"platedesign/internal/layout"
	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

// Setup is the prepared state of one physical inducer.
type Setup struct {
	Inducer            inducer.Inducer
	Usages             []domain.Usage
	Shots              int
	MediaVolume        float64
	TotalVolume        float64
	ReplicateVolume    float64
	HasReplicateVolume bool
	Preparation        *table.Table
	Infeasible         int
}

// LayoutGrid is the rendered grid of one layout.
type LayoutGrid struct {
	Name string
	Grid *table.Table
}

// Replicate is the outcome of one replicate.
type Replicate struct {
	// Index is 1-based.
	Index   int
	Plates  []*layout.ClosedPlate
	Samples *table.Table
	// Layouts holds the grids in this replicate's dose order. Only set when
	// inducers are randomized.
	Layouts []LayoutGrid
}

// Plan is the outcome of Generate.
type Plan struct {
	Setups []Setup
	// Layouts holds the canonical grids shared by every replicate. Empty
	// when inducers are randomized.
	Layouts    []LayoutGrid
	Replicates []Replicate
	// Warnings holds non-blocking rule violations.
	Warnings []domain.Violation
}

// Generate prepares every physical inducer and produces the configured
// number of replicates. Inducers are left in canonical order on return,
// including on error.
func (e *Experiment) Generate(ctx context.Context) (plan *Plan, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "generate")
	defer func() {
		span.End(err)
		e.observe(ctx, "generate", start, err)
	}()

	if len(e.layouts) == 0 {
		return nil, domain.Configf("experiment", "no layouts")
	}
	if n := len(e.opts.Resources); n > 0 && n < plateCount(e.layouts) {
		return nil, domain.Consistencyf("experiment", "%d resources for %d plates", n, plateCount(e.layouts))
	}
	inducers, err := e.Inducers()
	if err != nil {
		return nil, err
	}
	for _, ind := range inducers {
		ind.Unshuffle()
	}
	defer func() {
		for _, ind := range inducers {
			ind.Unshuffle()
		}
	}()

	plan = &Plan{}
	if plan.Setups, plan.Warnings, err = e.setup(ctx, inducers); err != nil {
		return nil, err
	}
	if !e.opts.RandomizeInducers {
		if plan.Layouts, err = e.grids(); err != nil {
			return nil, err
		}
	}

	rng := e.newRand()
	for i := 1; i <= e.opts.Replicates; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := e.replicate(ctx, i, inducers, rng)
		if err != nil {
			return nil, err
		}
		plan.Replicates = append(plan.Replicates, rep)
	}
	e.logger.Info("experiment generated",
		zap.Int("layouts", len(e.layouts)),
		zap.Int("inducers", len(inducers)),
		zap.Int("replicates", len(plan.Replicates)))
	return plan, nil
}

func (e *Experiment) setup(ctx context.Context, inducers []inducer.Inducer) (setups []Setup, warnings []domain.Violation, err error) {
	ctx, span := e.tracer.Start(ctx, "setup")
	defer func() { span.End(err) }()

	view := e.usageView(inducers)
	res, err := e.rules.Evaluate(ctx, view)
	if err != nil {
		return nil, nil, err
	}
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			warnings = append(warnings, v)
			e.logger.Warn("setup rule warning", zap.String("rule", v.Rule), zap.String("subject", v.Subject), zap.String("message", v.Message))
		}
	}
	if res.HasBlocking() {
		return nil, nil, domain.RuleViolationError{Result: res}
	}

	for _, ind := range inducers {
		p := ind.Preparer()
		if p == nil {
			continue
		}
		usages := view.Usages(ind.Name())
		if len(usages) == 0 {
			e.logger.Warn("physical inducer is not applied to any layout", zap.String("inducer", ind.Name()))
			continue
		}
		s := Setup{Inducer: ind, Usages: usages, MediaVolume: usages[0].MediaVolume}
		for _, u := range usages {
			s.Shots += u.Shots
		}
		if err := p.SetMediaVolume(s.MediaVolume); err != nil {
			return nil, nil, err
		}
		if err := p.SetVolumeFromShots(s.Shots, e.opts.Replicates); err != nil {
			return nil, nil, err
		}
		if s.Preparation, err = p.ComputeRecipe(); err != nil {
			return nil, nil, err
		}
		for i := 0; i < s.Preparation.Len(); i++ {
			feasible := s.Preparation.Value(i, inducer.ColFeasible) == true
			e.metrics.RecipeOutcome(ind.Name(), feasible)
			if !feasible {
				s.Infeasible++
			}
		}
		if s.Infeasible > 0 && e.opts.StrictRecipes {
			return nil, nil, domain.Configf(ind.Name(), "%d dose groups cannot be prepared within the aliquot volume range", s.Infeasible)
		}
		s.TotalVolume = p.TotalVolume()
		s.ReplicateVolume, s.HasReplicateVolume = p.ReplicateVolume()
		e.logger.Info("inducer prepared",
			zap.String("inducer", ind.Name()),
			zap.Int("shots", s.Shots),
			zap.Float64("media_volume", s.MediaVolume),
			zap.Float64("total_volume", s.TotalVolume),
			zap.Int("infeasible_groups", s.Infeasible))
		setups = append(setups, s)
	}
	return setups, warnings, nil
}

func (e *Experiment) replicate(ctx context.Context, index int, inducers []inducer.Inducer, rng *rand.Rand) (rep Replicate, err error) {
	_, span := e.tracer.Start(ctx, "replicate")
	defer func() { span.End(err) }()

	if e.opts.RandomizeInducers {
		for _, ind := range inducers {
			ind.Shuffle(rng)
		}
	}
	if e.opts.RandomizeInducers {
		if rep.Layouts, err = e.grids(); err != nil {
			return Replicate{}, err
		}
	}
	var plates []*layout.ClosedPlate
	for _, l := range e.layouts {
		closed, err := l.Close()
		if err != nil {
			return Replicate{}, err
		}
		plates = append(plates, closed...)
	}
	if e.opts.RandomizePlates {
		rng.Shuffle(len(plates), func(i, j int) { plates[i], plates[j] = plates[j], plates[i] })
	}

	tables := make([]*table.Table, len(plates))
	for i, p := range plates {
		if len(e.opts.Resources) > 0 {
			if i >= len(e.opts.Resources) {
				return Replicate{}, domain.Consistencyf("experiment", "%d resources for %d plates", len(e.opts.Resources), len(plates))
			}
			p = p.WithResource(e.opts.Resources[i])
			plates[i] = p
		}
		t := p.Samples()
		if r := p.Resource(); r != nil {
			values := make([]any, t.Len())
			for k := range values {
				values[k] = r
			}
			if t, err = t.WithColumn(ColResource, values); err != nil {
				return Replicate{}, err
			}
		}
		tables[i] = t
	}
	samples := table.Concat(tables...)
	if order := e.opts.MeasurementOrder; order != "" {
		if !samples.HasColumn(order) {
			return Replicate{}, domain.Configf("experiment", "measurement order column %q not in sample table", order)
		}
		samples = samples.SortStableBy(order)
	}
	e.logger.Debug("replicate closed", zap.Int("replicate", index), zap.Int("plates", len(plates)), zap.Int("samples", samples.Len()))
	rep.Index, rep.Plates, rep.Samples = index, plates, samples
	return rep, nil
}

// grids renders every layout in the active dose order.
func (e *Experiment) grids() ([]LayoutGrid, error) {
	out := make([]LayoutGrid, 0, len(e.layouts))
	for _, l := range e.layouts {
		grid, err := l.LayoutTable()
		if err != nil {
			return nil, err
		}
		out = append(out, LayoutGrid{Name: l.Name(), Grid: grid})
	}
	return out, nil
}
