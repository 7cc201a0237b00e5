package observability

import (
	"context"
	"expvar"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes aggregate timings and outcome counters via
// expvar for runs that do not expose a Prometheus endpoint.
type ExpvarMetricsRecorder struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
	recipes   map[string]map[string]int64
}

// ExpvarMetricsSnapshot is a read-only copy of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	Recipes     map[string]map[string]int64 `json:"recipes_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated name when empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("platedesign_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
		recipes:   make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ExpvarMetricsSnapshot{
		DurationsMS: maps.Clone(r.durations),
		Results:     cloneCounts(r.results),
		Recipes:     cloneCounts(r.recipes),
		RecordedAt:  time.Now().UTC(),
	}
}

// Observe records an operation outcome.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	r.mu.Lock()
	r.durations[operation] += ms
	bump(r.results, operation, status(success))
	r.mu.Unlock()
}

// RecipeOutcome counts one prepared dose group.
func (r *ExpvarMetricsRecorder) RecipeOutcome(inducer string, feasible bool) {
	r.mu.Lock()
	bump(r.recipes, inducer, strconv.FormatBool(feasible))
	r.mu.Unlock()
}

func bump(m map[string]map[string]int64, key, status string) {
	if _, ok := m[key]; !ok {
		m[key] = make(map[string]int64, 2)
	}
	m[key][status]++
}

func cloneCounts(in map[string]map[string]int64) map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(in))
	for k, v := range in {
		out[k] = maps.Clone(v)
	}
	return out
}
