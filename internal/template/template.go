// Package template merges measurement templates into sample tables.
//
// A template is a workbook stored in the blob store. Its "Samples" sheet
// carries one row of column values to broadcast across every generated
// sample; all other sheets are copied into the output unchanged.
package template

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"platedesign/internal/blob"
	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

// SamplesSheet is the sheet that receives the merged sample table.
const SamplesSheet = "Samples"

// Placeholder is replaced by the 1-based sample index.
const Placeholder = "{}"

// Template is a loaded measurement template.
type Template struct {
	name   string
	sheets []table.Sheet
}

// Load reads every sheet of the workbook stored under prefix.
func Load(ctx context.Context, store blob.Store, prefix string) (*Template, error) {
	wb, err := table.OpenWorkbook(ctx, store, prefix)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", prefix, err)
	}
	return New(wb.Name(), wb.Sheets()), nil
}

// New builds a template from sheets already in memory.
func New(name string, sheets []table.Sheet) *Template {
	return &Template{name: name, sheets: append([]table.Sheet(nil), sheets...)}
}

// Name returns the template workbook name.
func (t *Template) Name() string { return t.name }

// Sheets returns the template sheets in order.
func (t *Template) Sheets() []table.Sheet {
	return append([]table.Sheet(nil), t.sheets...)
}

func (t *Template) samples() (*table.Table, bool) {
	for _, s := range t.sheets {
		if s.Name == SamplesSheet {
			return s.Table, true
		}
	}
	return nil, false
}

// Apply appends the template's sample columns to samples. A value holding
// exactly one placeholder is numbered per row; others repeat unchanged.
// Template columns may not shadow generated ones.
func (t *Template) Apply(samples *table.Table) (*table.Table, error) {
	tmpl, ok := t.samples()
	if !ok {
		return samples.Clone(), nil
	}
	var first table.Row
	if tmpl.Len() > 0 {
		first = tmpl.Row(0)
	}
	out := samples.Clone()
	for _, col := range tmpl.Columns() {
		if samples.HasColumn(col) {
			return nil, domain.Consistencyf(t.name, "template column %q collides with a generated column", col)
		}
		values := make([]any, samples.Len())
		for i := range values {
			values[i] = expand(first[col], i+1)
		}
		next, err := out.WithColumn(col, values)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func expand(v any, index int) any {
	s, ok := v.(string)
	if !ok || strings.Count(s, Placeholder) != 1 {
		return v
	}
	return strings.Replace(s, Placeholder, strconv.Itoa(index), 1)
}

// Merge writes the template into sink: every non-Samples sheet verbatim,
// then the Samples sheet built from samples.
func (t *Template) Merge(samples *table.Table, sink table.Sink) error {
	merged, err := t.Apply(samples)
	if err != nil {
		return err
	}
	for _, s := range t.sheets {
		if s.Name == SamplesSheet {
			continue
		}
		if err := sink.AddSheet(s.Name, s.Table); err != nil {
			return err
		}
	}
	return sink.AddSheet(SamplesSheet, merged)
}
