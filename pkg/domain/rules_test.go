package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type usageView map[string][]Usage

func (v usageView) Usages(name string) []Usage { return v[name] }

func (v usageView) Inducers() []string {
	names := make([]string, 0, len(v))
	for _, n := range []string{"IPTG", "aTc"} {
		if _, ok := v[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

func TestDefaultRulesAcceptUniformUsage(t *testing.T) {
	view := usageView{
		"IPTG": {
			{Inducer: "IPTG", Layout: "P1", Mode: ModeRows, MediaVolume: 500, Shots: 4},
			{Inducer: "IPTG", Layout: "P2", Mode: ModeRows, MediaVolume: 500, Shots: 4},
		},
	}
	res, err := NewDefaultRulesEngine().Evaluate(context.Background(), view)
	require.NoError(t, err)
	assert.Empty(t, res.Violations)
	assert.False(t, res.HasBlocking())
}

func TestDefaultRulesBlockMixedUsage(t *testing.T) {
	view := usageView{
		"IPTG": {
			{Inducer: "IPTG", Layout: "P1", Mode: ModeRows, MediaVolume: 500},
			{Inducer: "IPTG", Layout: "P2", Mode: ModeCols, MediaVolume: 500},
		},
		"aTc": {
			{Inducer: "aTc", Layout: "P1", Mode: ModeMedia, MediaVolume: 500},
			{Inducer: "aTc", Layout: "P2", Mode: ModeMedia, MediaVolume: 0},
		},
	}
	res, err := NewDefaultRulesEngine().Evaluate(context.Background(), view)
	require.NoError(t, err)
	require.True(t, res.HasBlocking())

	rules := make(map[string]string)
	for _, v := range res.Violations {
		rules[v.Rule] = v.Subject
	}
	assert.Equal(t, map[string]string{
		"uniform_mode":          "IPTG",
		"uniform_media_volume":  "aTc",
		"positive_media_volume": "aTc",
	}, rules)

	err = RuleViolationError{Result: res}
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Contains(t, err.Error(), "uniform_mode")
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }
func (failingRule) Evaluate(context.Context, RuleView) (Result, error) {
	return Result{}, errors.New("rule failed")
}

func TestRulesEngineStopsOnError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(failingRule{})
	_, err := engine.Evaluate(context.Background(), usageView{})
	require.EqualError(t, err, "rule failed")
}

func TestResultMergeAndSeverity(t *testing.T) {
	var res Result
	res.Merge(Result{})
	assert.Nil(t, res.Violations)
	res.Merge(Result{Violations: []Violation{{Rule: "r", Severity: SeverityWarn}}})
	assert.False(t, res.HasBlocking())
	assert.Equal(t, "setup blocked by rules: ", RuleViolationError{Result: res}.Error())
}
