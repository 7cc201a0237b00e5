package domain

import (
	"context"
	"fmt"
	"strings"
)

// Usage records one layout applying one physically dosed inducer.
type Usage struct {
	Inducer     string
	Layout      string
	Mode        Mode
	MediaVolume float64
	Shots       int
}

// RuleView provides read-only access to the experiment setup for rule evaluation.
type RuleView interface {
	// Usages returns all usages of the named inducer, in layout order.
	Usages(inducer string) []Usage
	// Inducers returns the names of every physically dosed inducer.
	Inducers() []string
}

// Severity captures rule outcomes.
type Severity string

const (
	// SeverityBlock aborts generation.
	SeverityBlock Severity = "block"
	// SeverityWarn is logged and generation proceeds.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Subject  string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	var msgs []string
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, fmt.Sprintf("%s: %s", v.Rule, v.Message))
		}
	}
	return "setup blocked by rules: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrConsistency.
func (e RuleViolationError) Unwrap() error { return ErrConsistency }

// Rule defines an evaluation executed before inducers are prepared.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// NewDefaultRulesEngine builds a rules engine with the built-in usage checks.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(PositiveMediaVolumeRule())
	engine.Register(UniformMediaVolumeRule())
	engine.Register(UniformModeRule())
	return engine
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// UniformMediaVolumeRule blocks an inducer applied into differing media volumes,
// since one preparation cannot serve both.
func UniformMediaVolumeRule() Rule { return uniformMediaVolumeRule{} }

type uniformMediaVolumeRule struct{}

func (uniformMediaVolumeRule) Name() string { return "uniform_media_volume" }

func (r uniformMediaVolumeRule) Evaluate(_ context.Context, view RuleView) (Result, error) {
	res := Result{}
	for _, name := range view.Inducers() {
		usages := view.Usages(name)
		for _, u := range usages[min(1, len(usages)):] {
			if u.MediaVolume != usages[0].MediaVolume {
				res.Violations = append(res.Violations, Violation{
					Rule:     r.Name(),
					Severity: SeverityBlock,
					Message: fmt.Sprintf("inducer %s used with media volume %g in %s and %g in %s",
						name, usages[0].MediaVolume, usages[0].Layout, u.MediaVolume, u.Layout),
					Subject: name,
				})
				break
			}
		}
	}
	return res, nil
}

// UniformModeRule blocks an inducer applied with different modes across layouts.
func UniformModeRule() Rule { return uniformModeRule{} }

type uniformModeRule struct{}

func (uniformModeRule) Name() string { return "uniform_mode" }

func (r uniformModeRule) Evaluate(_ context.Context, view RuleView) (Result, error) {
	res := Result{}
	for _, name := range view.Inducers() {
		usages := view.Usages(name)
		for _, u := range usages[min(1, len(usages)):] {
			if u.Mode != usages[0].Mode {
				res.Violations = append(res.Violations, Violation{
					Rule:     r.Name(),
					Severity: SeverityBlock,
					Message: fmt.Sprintf("inducer %s applied as %s in %s and as %s in %s",
						name, usages[0].Mode, usages[0].Layout, u.Mode, u.Layout),
					Subject: name,
				})
				break
			}
		}
	}
	return res, nil
}

// PositiveMediaVolumeRule blocks usages into layouts without a media volume,
// since no recipe can be computed for them.
func PositiveMediaVolumeRule() Rule { return positiveMediaVolumeRule{} }

type positiveMediaVolumeRule struct{}

func (positiveMediaVolumeRule) Name() string { return "positive_media_volume" }

func (r positiveMediaVolumeRule) Evaluate(_ context.Context, view RuleView) (Result, error) {
	res := Result{}
	for _, name := range view.Inducers() {
		for _, u := range view.Usages(name) {
			if u.MediaVolume <= 0 {
				res.Violations = append(res.Violations, Violation{
					Rule:     r.Name(),
					Severity: SeverityBlock,
					Message:  fmt.Sprintf("inducer %s applied to %s, which has no sample media volume", name, u.Layout),
					Subject:  name,
				})
			}
		}
	}
	return res, nil
}
