// Package experiment orchestrates the generation of a plate experiment:
// sizing and preparing every physical inducer once, then closing every
// layout once per replicate with fresh randomization.
package experiment

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"platedesign/internal/inducer"
	"platedesign/internal/layout"
	"platedesign/internal/observability"
	"platedesign/pkg/domain"
)

// ColResource is the sample-table column holding a plate's assigned resource.
const ColResource = "Resource"

// Options control replicate generation.
type Options struct {
	// Replicates defaults to 1.
	Replicates int
	Seed       uint64
	// RandomizeInducers shuffles every inducer before each replicate.
	RandomizeInducers bool
	// RandomizePlates shuffles the closed plates of each replicate.
	RandomizePlates bool
	// Resources are assigned to closed plates in order, e.g. incubator slots.
	Resources []string
	// MeasurementOrder sorts each replicate's sample table on this column.
	MeasurementOrder string
	// StrictRecipes turns an infeasible recipe into a configuration error
	// instead of a best-effort preparation.
	StrictRecipes bool
}

// Experiment holds the layouts of one experiment.
type Experiment struct {
	opts     Options
	layouts  []layout.Layout
	inducers []inducer.Inducer
	rules    *domain.RulesEngine
	logger   *zap.Logger
	metrics  observability.MetricsRecorder
	tracer   observability.Tracer
}

// Option configures an Experiment.
type Option func(*Experiment)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Experiment) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Experiment) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t observability.Tracer) Option {
	return func(e *Experiment) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithRules replaces the default usage rules.
func WithRules(engine *domain.RulesEngine) Option {
	return func(e *Experiment) {
		if engine != nil {
			e.rules = engine
		}
	}
}

// New validates opts and returns an empty experiment.
func New(opts Options, options ...Option) (*Experiment, error) {
	if opts.Replicates == 0 {
		opts.Replicates = 1
	}
	if opts.Replicates < 0 {
		return nil, domain.Configf("experiment", "replicates must be positive, got %d", opts.Replicates)
	}
	e := &Experiment{
		opts:    opts,
		rules:   domain.NewDefaultRulesEngine(),
		logger:  zap.NewNop(),
		metrics: observability.NopRecorder{},
		tracer:  observability.NopTracer{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Options returns the generation options.
func (e *Experiment) Options() Options { return e.opts }

// AddLayout registers a plate or plate array. Names must be unique.
func (e *Experiment) AddLayout(l layout.Layout) error {
	if l == nil {
		return domain.Configf("experiment", "nil layout")
	}
	for _, existing := range e.layouts {
		if existing.Name() == l.Name() {
			return domain.Configf("experiment", "duplicate layout name %q", l.Name())
		}
	}
	e.layouts = append(e.layouts, l)
	return nil
}

// AddInducer registers an inducer that is not applied to any layout but
// still has to be shuffled, such as the controller of synchronized inducers.
func (e *Experiment) AddInducer(ind inducer.Inducer) error {
	if ind == nil {
		return domain.Configf("experiment", "nil inducer")
	}
	for _, existing := range e.inducers {
		if existing == ind {
			return nil
		}
	}
	e.inducers = append(e.inducers, ind)
	return nil
}

// Layouts returns the registered layouts.
func (e *Experiment) Layouts() []layout.Layout {
	return append([]layout.Layout(nil), e.layouts...)
}

// Inducers returns every inducer, registered or applied, in order of first
// appearance. Distinct inducers may not share a name.
func (e *Experiment) Inducers() ([]inducer.Inducer, error) {
	var out []inducer.Inducer
	byName := make(map[string]inducer.Inducer)
	add := func(ind inducer.Inducer) error {
		if prev, ok := byName[ind.Name()]; ok {
			if prev != ind {
				return domain.Configf("experiment", "two different inducers are named %q", ind.Name())
			}
			return nil
		}
		byName[ind.Name()] = ind
		out = append(out, ind)
		return nil
	}
	for _, ind := range e.inducers {
		if err := add(ind); err != nil {
			return nil, err
		}
	}
	for _, l := range e.layouts {
		for _, app := range l.Applications() {
			if err := add(app.Inducer); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// usage describes one layout consuming one inducer.
func usage(l layout.Layout, app layout.Application) domain.Usage {
	u := domain.Usage{
		Inducer:     app.Inducer.Name(),
		Layout:      l.Name(),
		Mode:        app.Mode,
		MediaVolume: l.SampleMediaVolume(),
	}
	switch app.Mode {
	case domain.ModeRows:
		u.Shots = l.Rows()
	case domain.ModeCols:
		u.Shots = l.Cols()
	case domain.ModeWells:
		u.Shots = 1
	case domain.ModeMedia:
		// one shot into the pooled media of each plate
		u.Shots = l.PlateCount()
		u.MediaVolume = l.SampleMediaVolume() * float64(l.SamplesToMeasure()) / float64(l.PlateCount())
	}
	return u
}

// usageView implements domain.RuleView over the physical inducers.
type usageView struct {
	names  []string
	usages map[string][]domain.Usage
}

func (v usageView) Usages(name string) []domain.Usage { return v.usages[name] }
func (v usageView) Inducers() []string                { return v.names }

func (e *Experiment) usageView(inducers []inducer.Inducer) usageView {
	v := usageView{usages: make(map[string][]domain.Usage)}
	for _, ind := range inducers {
		if ind.Kind() == inducer.KindPhysical {
			v.names = append(v.names, ind.Name())
		}
	}
	for _, l := range e.layouts {
		for _, app := range l.Applications() {
			if app.Inducer.Kind() != inducer.KindPhysical {
				continue
			}
			v.usages[app.Inducer.Name()] = append(v.usages[app.Inducer.Name()], usage(l, app))
		}
	}
	return v
}

func (e *Experiment) observe(ctx context.Context, op string, start time.Time, err error) {
	e.metrics.Observe(ctx, op, err == nil, time.Since(start))
}

func (e *Experiment) newRand() *rand.Rand {
	return rand.New(rand.NewPCG(e.opts.Seed, e.opts.Seed^0x9e3779b97f4a7c15))
}

func plateCount(layouts []layout.Layout) int {
	n := 0
	for _, l := range layouts {
		n += l.PlateCount()
	}
	return n
}
