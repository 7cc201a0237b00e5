package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "console")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	logger, err = NewLogger("", "")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))

	_, err = NewLogger("loud", "json")
	require.Error(t, err)
	_, err = NewLogger("info", "xml")
	require.Error(t, err)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	rec, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	ctx := context.Background()
	rec.Observe(ctx, "generate", true, 3*time.Millisecond)
	rec.Observe(ctx, "generate", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)
	rec.RecipeOutcome("IPTG", true)
	rec.RecipeOutcome("IPTG", false)
	rec.RecipeOutcome("IPTG", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues("generate", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues("generate", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.recipes.WithLabelValues("IPTG", "false")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.durations))

	_, err = NewPrometheusRecorder(reg)
	require.Error(t, err, "second registration collides")
}

func TestExpvarRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	assert.True(t, strings.HasPrefix(rec.Name(), "platedesign_metrics_"))
	rec.Observe(context.Background(), "export", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "export", false, time.Millisecond)
	rec.RecipeOutcome("aTc", true)

	snap := rec.Snapshot()
	assert.InDelta(t, 3.0, snap.DurationsMS["export"], 1e-9)
	assert.Equal(t, int64(1), snap.Results["export"]["success"])
	assert.Equal(t, int64(1), snap.Recipes["aTc"]["true"])

	snap.Results["export"]["success"] = 99
	assert.Equal(t, int64(1), rec.Snapshot().Results["export"]["success"])
}

func TestJSONTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "setup")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "replicate")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "success", entries[0].Status)
	assert.Equal(t, "boom", entries[1].Error)

	dec := json.NewDecoder(&buf)
	var first JSONTraceEntry
	require.NoError(t, dec.Decode(&first))
	assert.Equal(t, "setup", first.Operation)

	_, nop := NopTracer{}.Start(context.Background(), "x")
	nop.End(nil)
}
