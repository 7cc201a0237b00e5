package table

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Table {
	t := New("ID", "Concentration")
	t.Append(Row{"ID": "I001", "Concentration": 0.0})
	t.Append(Row{"ID": "I002", "Concentration": 2.0})
	t.Append(Row{"ID": "I003", "Concentration": 8.0})
	return t
}

func TestAppendAddsColumnsDeterministically(t *testing.T) {
	tb := New("ID")
	tb.Append(Row{"ID": "a", "z": 1, "b": 2})
	assert.Equal(t, []string{"ID", "b", "z"}, tb.Columns())
	assert.Equal(t, 1, tb.Len())
}

func TestTakeSliceAndFloats(t *testing.T) {
	tb := sample()
	perm, err := tb.Take([]int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"I003", "I001", "I002"}, perm.Strings("ID"))

	_, err = tb.Take([]int{3})
	require.Error(t, err)

	got, err := tb.Slice(1, 3).Floats("Concentration")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 8}, got)

	_, err = tb.Floats("missing")
	require.Error(t, err)
	_, err = tb.Floats("ID")
	require.Error(t, err)
}

func TestMutationsDoNotLeak(t *testing.T) {
	tb := sample()
	row := tb.Row(0)
	row["ID"] = "changed"
	assert.Equal(t, "I001", tb.Value(0, "ID"))

	withCol, err := tb.WithColumn("Volume", []any{1.0, 2.0, 3.0})
	require.NoError(t, err)
	assert.False(t, tb.HasColumn("Volume"))
	assert.True(t, withCol.HasColumn("Volume"))

	_, err = tb.WithColumn("Volume", []any{1.0})
	require.Error(t, err)
}

func TestConcatUnionsColumns(t *testing.T) {
	a := New("ID", "A")
	a.Append(Row{"ID": "1", "A": 1.0})
	b := New("ID", "B")
	b.Append(Row{"ID": "2", "B": 2.0})
	out := Concat(a, nil, b)
	assert.Equal(t, []string{"ID", "A", "B"}, out.Columns())
	assert.Equal(t, []any{1.0, nil}, out.Column("A"))
}

func TestSortStableBy(t *testing.T) {
	tb := New("ID", "Location")
	for i, loc := range []any{"B2", 3.0, nil, "A1", 1.0, "A1"} {
		tb.Append(Row{"ID": i, "Location": loc})
	}
	sorted := tb.SortStableBy("Location")
	assert.Equal(t, []any{4, 1, 3, 5, 0, 2}, sorted.Column("ID"))
}

func TestFilter(t *testing.T) {
	out := sample().Filter(func(r Row) bool { return r["Concentration"].(float64) > 1 })
	assert.Equal(t, []string{"I002", "I003"}, out.Strings("ID"))
}

func TestCSVRoundTrip(t *testing.T) {
	tb := sample()
	tb.Append(Row{"ID": "I004"})
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tb))
	assert.Equal(t, "ID,Concentration\nI001,0\nI002,2\nI003,8\nI004,\n", buf.String())

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	want := []Row{
		{"ID": "I001", "Concentration": "0"},
		{"ID": "I002", "Concentration": "2"},
		{"ID": "I003", "Concentration": "8"},
		{"ID": "I004", "Concentration": nil},
	}
	if diff := cmp.Diff(want, back.Rows()); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	f, err := back.Slice(0, 3).Floats("Concentration")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 8}, f)
}

func TestReadCSVRejectsWideRecords(t *testing.T) {
	_, err := ReadCSV(bytes.NewBufferString("a\n1,2\n"))
	require.Error(t, err)
	empty, err := ReadCSV(bytes.NewBufferString(""))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "0.1", FormatValue(0.1))
	assert.Equal(t, "1e+06", FormatValue(1e6))
	assert.Equal(t, "12", FormatValue(12))
	assert.Equal(t, "true", FormatValue(true))
}
