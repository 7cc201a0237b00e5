package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder receives operation outcomes and recipe feasibility.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	RecipeOutcome(inducer string, feasible bool)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) Observe(context.Context, string, bool, time.Duration) {}
func (NopRecorder) RecipeOutcome(string, bool)                          {}

// PrometheusRecorder exports counters and a duration histogram.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	recipes    *prometheus.CounterVec
}

// NewPrometheusRecorder registers the collectors on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platedesign",
			Name:      "operations_total",
			Help:      "Completed operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "platedesign",
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"operation"}),
		recipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "platedesign",
			Name:      "recipe_groups_total",
			Help:      "Prepared dose groups by feasibility.",
		}, []string{"inducer", "feasible"}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.durations, r.recipes} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// Observe records one operation.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.operations.WithLabelValues(operation, status(success)).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecipeOutcome counts one prepared dose group.
func (r *PrometheusRecorder) RecipeOutcome(inducer string, feasible bool) {
	r.recipes.WithLabelValues(inducer, strconv.FormatBool(feasible)).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

var (
	_ MetricsRecorder = NopRecorder{}
	_ MetricsRecorder = (*PrometheusRecorder)(nil)
	_ MetricsRecorder = (*ExpvarMetricsRecorder)(nil)
)
