// Package dose implements dose tables: the ordered rows of one inducer's
// doses, with IDs fixed at construction and an optional active permutation
// that can be shared between synchronized tables.
package dose

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

// IDColumn names the generated ID column of every dose table.
const IDColumn = "ID"

// Column is one named column used to rebuild a table.
type Column struct {
	Name   string
	Values []any
}

// Permutation is an immutable row order. Synchronized tables hold the same
// *Permutation, so pointer equality means "same shuffle".
type Permutation struct {
	idx []int
}

// Indices returns a copy of the row order.
func (p *Permutation) Indices() []int {
	if p == nil {
		return nil
	}
	return slices.Clone(p.idx)
}

// Table holds the canonical rows of a dose table plus the active permutation.
// Reads through View reflect the permutation; Canonical never does.
type Table struct {
	prefix    string
	offset    int
	canonical *table.Table
	perm      *Permutation

	shuffling  bool
	controller *Table
	dependents []*Table
}

// NewTable returns an empty table whose IDs will read prefix + %03d,
// numbered from offset+1.
func NewTable(prefix string, offset int) *Table {
	return &Table{prefix: prefix, offset: offset, canonical: table.New(IDColumn), shuffling: true}
}

// ID returns the generated ID of canonical row i.
func (d *Table) ID(i int) string {
	return fmt.Sprintf("%s%03d", d.prefix, d.offset+i+1)
}

// Len returns the number of doses.
func (d *Table) Len() int { return d.canonical.Len() }

// Rebuild replaces the table from scratch with the given columns. Derived
// columns from earlier operations are dropped and IDs are regenerated. The
// active permutation is cleared, except on a dependent table, which keeps
// following its controller. A synchronized table may not change length.
func (d *Table) Rebuild(columns ...Column) error {
	n := 0
	if len(columns) > 0 {
		n = len(columns[0].Values)
	}
	for _, c := range columns {
		if len(c.Values) != n {
			return domain.Configf("dose table", "column %q has %d values, expected %d", c.Name, len(c.Values), n)
		}
		if c.Name == IDColumn {
			return domain.Configf("dose table", "column name %q is reserved", IDColumn)
		}
	}
	if d.synchronized() && n != d.Len() {
		return domain.Consistencyf("dose table", "synchronized table cannot change length from %d to %d", d.Len(), n)
	}
	names := []string{IDColumn}
	for _, c := range columns {
		names = append(names, c.Name)
	}
	next := table.New(names...)
	for i := 0; i < n; i++ {
		row := table.Row{IDColumn: d.ID(i)}
		for _, c := range columns {
			row[c.Name] = c.Values[i]
		}
		next.Append(row)
	}
	d.canonical = next
	var p *Permutation
	if d.controller != nil {
		p = d.controller.perm
	}
	d.install(p)
	return nil
}

// SetColumn adds or replaces one column of the canonical rows. IDs and the
// active permutation are untouched.
func (d *Table) SetColumn(name string, values []any) error {
	if name == IDColumn {
		return domain.Configf("dose table", "column name %q is reserved", IDColumn)
	}
	next, err := d.canonical.WithColumn(name, values)
	if err != nil {
		return domain.Configf("dose table", "%v", err)
	}
	d.canonical = next
	return nil
}

// Canonical returns a copy of the rows in canonical order.
func (d *Table) Canonical() *table.Table {
	return d.canonical.Clone()
}

// View returns a copy of the rows in active order.
func (d *Table) View() *table.Table {
	if d.perm == nil {
		return d.canonical.Clone()
	}
	out, err := d.canonical.Take(d.perm.idx)
	if err != nil {
		// perm is built from Len and cleared on every length change
		panic(fmt.Sprintf("dose table: stale permutation: %v", err))
	}
	return out
}

// Permutation returns the active permutation, nil when unshuffled.
func (d *Table) Permutation() *Permutation { return d.perm }

// ShufflingEnabled reports whether Shuffle changes this table.
func (d *Table) ShufflingEnabled() bool { return d.shuffling }

// DisableShuffling turns Shuffle into a no-op.
func (d *Table) DisableShuffling() { d.shuffling = false }

// Shuffle draws one uniformly random permutation from rng and installs it on
// this table and every table it controls, directly or transitively.
func (d *Table) Shuffle(rng *rand.Rand) {
	if !d.shuffling {
		return
	}
	d.install(&Permutation{idx: rng.Perm(d.Len())})
}

// Unshuffle restores canonical order on this table and everything it controls.
func (d *Table) Unshuffle() {
	d.install(nil)
}

func (d *Table) install(p *Permutation) {
	d.perm = p
	for _, dep := range d.dependents {
		dep.install(p)
	}
}

// Sync makes dep follow d: dep's own shuffling is disabled and every Shuffle
// or Unshuffle of d is mirrored on dep with the same permutation.
func (d *Table) Sync(dep *Table) error {
	switch {
	case dep == nil:
		return domain.Configf("dose table", "nil dependent")
	case dep == d:
		return domain.Consistencyf("dose table", "a table cannot control itself")
	case d.Len() != dep.Len():
		return domain.Consistencyf("dose table", "cannot synchronize tables of length %d and %d", d.Len(), dep.Len())
	case dep.controller != nil:
		return domain.Consistencyf("dose table", "dependent is already controlled by another table")
	case dep.controls(d):
		return domain.Consistencyf("dose table", "synchronization would create a control cycle")
	}
	dep.shuffling = false
	dep.controller = d
	dep.perm = d.perm
	d.dependents = append(d.dependents, dep)
	return nil
}

// controls reports whether other is reachable through d's dependents.
func (d *Table) controls(other *Table) bool {
	for _, dep := range d.dependents {
		if dep == other || dep.controls(other) {
			return true
		}
	}
	return false
}

func (d *Table) synchronized() bool {
	return d.controller != nil || len(d.dependents) > 0
}

// Shuffler is anything whose row order can be randomized and restored.
type Shuffler interface {
	Shuffle(rng *rand.Rand)
	Unshuffle()
}

var _ Shuffler = (*Table)(nil)
