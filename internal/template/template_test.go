package template

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platedesign/internal/blob"
	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

func samples() *table.Table {
	t := table.New("ID", "Plate")
	t.Append(table.Row{"ID": "S001", "Plate": "P1"})
	t.Append(table.Row{"ID": "S002", "Plate": "P1"})
	t.Append(table.Row{"ID": "S003", "Plate": "P1"})
	return t
}

func reader() *Template {
	tmplSamples := table.New("Well", "Instrument", "Label")
	tmplSamples.Append(table.Row{"Well": "A{}", "Instrument": "reader-1", "Label": "{} of {}"})
	tmplSamples.Append(table.Row{"Well": "ignored", "Instrument": "ignored"})
	settings := table.New("Key", "Value")
	settings.Append(table.Row{"Key": "gain", "Value": "80"})
	return New("reader", []table.Sheet{{Name: "Settings", Table: settings}, {Name: SamplesSheet, Table: tmplSamples}})
}

func TestApplyBroadcastsFirstRow(t *testing.T) {
	got, err := reader().Apply(samples())
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Plate", "Well", "Instrument", "Label"}, got.Columns())
	want := []any{"A1", "A2", "A3"}
	if diff := cmp.Diff(want, got.Column("Well")); diff != "" {
		t.Fatalf("well mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []any{"reader-1", "reader-1", "reader-1"}, got.Column("Instrument"))
	assert.Equal(t, "{} of {}", got.Value(2, "Label"))
}

func TestApplyRejectsCollisions(t *testing.T) {
	tmpl := table.New("Plate")
	tmpl.Append(table.Row{"Plate": "X"})
	_, err := New("t", []table.Sheet{{Name: SamplesSheet, Table: tmpl}}).Apply(samples())
	require.ErrorIs(t, err, domain.ErrConsistency)
}

func TestApplyWithoutSamplesSheet(t *testing.T) {
	got, err := New("empty", nil).Apply(samples())
	require.NoError(t, err)
	assert.Equal(t, samples().Rows(), got.Rows())
}

func TestMergeAndLoad(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()

	src := table.NewWorkbook("templates/reader")
	for _, s := range reader().Sheets() {
		require.NoError(t, src.AddSheet(s.Name, s.Table))
	}
	_, err := src.Save(ctx, store, nil)
	require.NoError(t, err)

	loaded, err := Load(ctx, store, "templates/reader")
	require.NoError(t, err)
	require.Len(t, loaded.Sheets(), 2)

	out := table.NewWorkbook("samples")
	require.NoError(t, loaded.Merge(samples(), out))
	names := make([]string, 0, 2)
	for _, s := range out.Sheets() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Settings", SamplesSheet}, names)
	merged, ok := out.Sheet(SamplesSheet)
	require.True(t, ok)
	assert.Equal(t, "A3", merged.Value(2, "Well"))

	_, err = Load(ctx, store, "templates/missing")
	require.ErrorIs(t, err, blob.ErrNotFound)
}
