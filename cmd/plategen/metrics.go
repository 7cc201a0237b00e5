package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"platedesign/internal/observability"
)

const (
	metricsNone       = "none"
	metricsPrometheus = "prometheus"
	metricsExpvar     = "expvar"
)

// reporter prints the metrics collected during a run.
type reporter func(w io.Writer) error

func newRecorder(kind string) (observability.MetricsRecorder, reporter, error) {
	switch kind {
	case "", metricsNone:
		return observability.NopRecorder{}, func(io.Writer) error { return nil }, nil
	case metricsPrometheus:
		reg := prometheus.NewRegistry()
		rec, err := observability.NewPrometheusRecorder(reg)
		if err != nil {
			return nil, nil, err
		}
		return rec, func(w io.Writer) error {
			families, err := reg.Gather()
			if err != nil {
				return fmt.Errorf("gather metrics: %w", err)
			}
			return writeFamilies(w, families)
		}, nil
	case metricsExpvar:
		rec := observability.NewExpvarMetricsRecorder("")
		return rec, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(rec.Snapshot())
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown metrics backend %q", kind)
	}
}

// writeFamilies prints counters and histogram sample counts, one series per
// line, sorted by name.
func writeFamilies(w io.Writer, families []*dto.MetricFamily) error {
	var lines []string
	for _, f := range families {
		for _, m := range f.GetMetric() {
			series := f.GetName() + labels(m.GetLabel())
			switch f.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, fmt.Sprintf("%s %g", series, m.GetCounter().GetValue()))
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s_count%s %d", f.GetName(), labels(m.GetLabel()), h.GetSampleCount()))
				lines = append(lines, fmt.Sprintf("%s_sum%s %g", f.GetName(), labels(m.GetLabel()), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func labels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
