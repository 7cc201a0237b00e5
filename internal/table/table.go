// Package table provides the ordered, column-named tables exchanged between
// the layout engine and the workbook sink, plus their CSV encoding.
package table

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
)

// Row maps column names to cell values. Cells hold float64, int, string,
// bool or nil.
type Row map[string]any

// Table is an ordered collection of rows sharing a column order. Methods that
// reshape a table return a new one and leave the receiver untouched.
type Table struct {
	columns []string
	rows    []Row
}

// New returns an empty table with the given column order.
func New(columns ...string) *Table {
	t := &Table{}
	for _, c := range columns {
		t.addColumnName(c)
	}
	return t
}

func (t *Table) addColumnName(name string) {
	if !slices.Contains(t.columns, name) {
		t.columns = append(t.columns, name)
	}
}

// Columns returns the column order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.columns, name)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Append adds a row. Keys that are not yet columns are appended to the
// column order in sorted order so the result is deterministic.
func (t *Table) Append(row Row) {
	var extra []string
	for k := range row {
		if !slices.Contains(t.columns, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	t.columns = append(t.columns, extra...)
	t.rows = append(t.rows, cloneRow(row))
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Row {
	return cloneRow(t.rows[i])
}

// Rows returns copies of all rows.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = cloneRow(r)
	}
	return out
}

// Value returns the cell at row i and column col, or nil.
func (t *Table) Value(i int, col string) any {
	return t.rows[i][col]
}

// Column returns the values of col in row order.
func (t *Table) Column(col string) []any {
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[col]
	}
	return out
}

// Floats returns col as float64 values. Numeric strings are parsed; other
// values fail.
func (t *Table) Floats(col string) ([]float64, error) {
	if !t.HasColumn(col) {
		return nil, fmt.Errorf("table: no column %q", col)
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		f, ok := AsFloat(r[col])
		if !ok {
			return nil, fmt.Errorf("table: column %q row %d: %v is not numeric", col, i, r[col])
		}
		out[i] = f
	}
	return out, nil
}

// Strings returns col formatted as text.
func (t *Table) Strings(col string) []string {
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = FormatValue(r[col])
	}
	return out
}

// WithColumn returns a copy of t with col set to values. The column is
// appended when new.
func (t *Table) WithColumn(col string, values []any) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("table: column %q has %d values for %d rows", col, len(values), len(t.rows))
	}
	out := t.Clone()
	out.addColumnName(col)
	for i := range out.rows {
		out.rows[i][col] = values[i]
	}
	return out, nil
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	return &Table{columns: slices.Clone(t.columns), rows: t.Rows()}
}

// Take returns the rows at idx, in idx order.
func (t *Table) Take(idx []int) (*Table, error) {
	out := &Table{columns: slices.Clone(t.columns), rows: make([]Row, 0, len(idx))}
	for _, i := range idx {
		if i < 0 || i >= len(t.rows) {
			return nil, fmt.Errorf("table: row index %d out of range [0, %d)", i, len(t.rows))
		}
		out.rows = append(out.rows, cloneRow(t.rows[i]))
	}
	return out, nil
}

// Slice returns rows [lo, hi).
func (t *Table) Slice(lo, hi int) *Table {
	out := &Table{columns: slices.Clone(t.columns)}
	for _, r := range t.rows[lo:hi] {
		out.rows = append(out.rows, cloneRow(r))
	}
	return out
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{columns: slices.Clone(t.columns)}
	for _, r := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, cloneRow(r))
		}
	}
	return out
}

// SortStableBy returns a copy of t stably sorted on col. Numbers sort before
// text; missing cells sort last.
func (t *Table) SortStableBy(col string) *Table {
	out := t.Clone()
	slices.SortStableFunc(out.rows, func(a, b Row) int {
		return compareValues(a[col], b[col])
	})
	return out
}

// Concat stacks tables vertically. The column order is the union of inputs
// in order of first appearance; absent cells are nil.
func Concat(tables ...*Table) *Table {
	out := &Table{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.columns {
			out.addColumnName(c)
		}
		for _, r := range t.rows {
			out.rows = append(out.rows, cloneRow(r))
		}
	}
	return out
}

// AsFloat converts numeric cells and numeric strings to float64.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	fa, aNum := AsFloat(a)
	fb, bNum := AsFloat(b)
	switch {
	case aNum && bNum:
		return cmp.Compare(fa, fb)
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return cmp.Compare(FormatValue(a), FormatValue(b))
}

func cloneRow(in Row) Row {
	out := make(Row, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
