package dose

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platedesign/pkg/domain"
)

const conc = "IPTG Concentration (µM)"

func floats(vs ...float64) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func newTable(t *testing.T, prefix string, vs ...float64) *Table {
	t.Helper()
	d := NewTable(prefix, 0)
	require.NoError(t, d.Rebuild(Column{Name: conc, Values: floats(vs...)}))
	return d
}

func TestRebuildGeneratesIDs(t *testing.T) {
	d := NewTable("I", 10)
	require.NoError(t, d.Rebuild(Column{Name: conc, Values: floats(0, 2, 8)}))
	assert.Equal(t, []string{"I011", "I012", "I013"}, d.View().Strings(IDColumn))
	assert.Equal(t, []string{IDColumn, conc}, d.Canonical().Columns())

	require.NoError(t, d.SetColumn("Inducer Volume", floats(0, 1, 2)))
	require.NoError(t, d.Rebuild(Column{Name: conc, Values: floats(1, 2)}))
	assert.False(t, d.Canonical().HasColumn("Inducer Volume"), "rebuild discards derived columns")
	assert.Equal(t, 2, d.Len())
}

func TestRebuildValidation(t *testing.T) {
	d := NewTable("I", 0)
	err := d.Rebuild(Column{Name: "a", Values: floats(1, 2)}, Column{Name: "b", Values: floats(1)})
	require.ErrorIs(t, err, domain.ErrConfiguration)
	err = d.Rebuild(Column{Name: IDColumn, Values: floats(1)})
	require.ErrorIs(t, err, domain.ErrConfiguration)
	require.ErrorIs(t, d.SetColumn(IDColumn, floats()), domain.ErrConfiguration)
	require.ErrorIs(t, d.SetColumn("x", floats(1)), domain.ErrConfiguration)
}

func TestShuffleUnshuffleRoundTrip(t *testing.T) {
	d := newTable(t, "I", 0, 2, 8, 16, 64, 500)
	d.Unshuffle()
	t0 := d.Canonical()
	d.Shuffle(rand.New(rand.NewPCG(1, 2)))
	require.NotNil(t, d.Permutation())

	perm := d.Permutation().Indices()
	sorted := slices.Clone(perm)
	slices.Sort(sorted)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, sorted, "permutation covers every row once")

	view := d.View()
	for i, p := range perm {
		assert.Equal(t, t0.Value(p, IDColumn), view.Value(i, IDColumn))
	}
	assert.Equal(t, t0.Rows(), d.Canonical().Rows(), "canonical order unaffected by shuffle")

	d.Unshuffle()
	assert.Nil(t, d.Permutation())
	assert.Equal(t, t0.Rows(), d.View().Rows())
}

func TestShuffleDeterministicForSeed(t *testing.T) {
	a := newTable(t, "I", 1, 2, 3, 4, 5, 6, 7, 8)
	b := newTable(t, "I", 1, 2, 3, 4, 5, 6, 7, 8)
	a.Shuffle(rand.New(rand.NewPCG(42, 42)))
	b.Shuffle(rand.New(rand.NewPCG(42, 42)))
	assert.Equal(t, a.Permutation().Indices(), b.Permutation().Indices())
}

func TestShuffleDisabled(t *testing.T) {
	d := newTable(t, "I", 1, 2, 3)
	d.DisableShuffling()
	d.Shuffle(rand.New(rand.NewPCG(1, 1)))
	assert.Nil(t, d.Permutation())
}

func TestSyncSharesPermutation(t *testing.T) {
	a := newTable(t, "A", 1, 2, 3, 4)
	b := newTable(t, "B", 10, 20, 30, 40)
	c := newTable(t, "C", 5, 6, 7, 8)
	require.NoError(t, a.Sync(b))
	require.NoError(t, b.Sync(c))
	assert.False(t, b.ShufflingEnabled())

	rng := rand.New(rand.NewPCG(7, 7))
	for range 5 {
		a.Shuffle(rng)
		assert.Same(t, a.Permutation(), b.Permutation())
		assert.Same(t, a.Permutation(), c.Permutation())
	}

	before := a.Permutation()
	b.Shuffle(rng)
	assert.Same(t, before, b.Permutation(), "dependent shuffle is a no-op")

	a.Unshuffle()
	assert.Nil(t, b.Permutation())
	assert.Nil(t, c.Permutation())
}

func TestSyncRejections(t *testing.T) {
	a := newTable(t, "A", 1, 2, 3)
	short := newTable(t, "S", 1, 2)
	require.ErrorIs(t, a.Sync(short), domain.ErrConsistency)
	require.ErrorIs(t, a.Sync(a), domain.ErrConsistency)
	require.ErrorIs(t, a.Sync(nil), domain.ErrConfiguration)

	b := newTable(t, "B", 1, 2, 3)
	c := newTable(t, "C", 1, 2, 3)
	require.NoError(t, a.Sync(b))
	require.ErrorIs(t, c.Sync(b), domain.ErrConsistency, "b already has a controller")
	require.NoError(t, b.Sync(c))
	require.ErrorIs(t, c.Sync(a), domain.ErrConsistency, "cycle a -> b -> c -> a")

	require.ErrorIs(t, b.Rebuild(Column{Name: conc, Values: floats(1)}), domain.ErrConsistency)
	require.NoError(t, b.Rebuild(Column{Name: conc, Values: floats(4, 5, 6)}))
}

func TestRebuildKeepsFollowingController(t *testing.T) {
	a := newTable(t, "A", 1, 2, 3, 4)
	b := newTable(t, "B", 10, 20, 30, 40)
	c := newTable(t, "C", 5, 6, 7, 8)
	require.NoError(t, a.Sync(b))
	require.NoError(t, b.Sync(c))
	a.Shuffle(rand.New(rand.NewPCG(5, 5)))
	require.NotNil(t, a.Permutation())

	require.NoError(t, b.Rebuild(Column{Name: conc, Values: floats(11, 21, 31, 41)}))
	assert.Same(t, a.Permutation(), b.Permutation())
	assert.Same(t, a.Permutation(), c.Permutation())

	order := a.Permutation().Indices()
	view := b.View()
	for i, j := range order {
		assert.Equal(t, b.ID(j), view.Value(i, IDColumn))
	}

	require.NoError(t, a.Rebuild(Column{Name: conc, Values: floats(1, 2, 3, 4)}))
	assert.Nil(t, a.Permutation())
	assert.Nil(t, b.Permutation())
	assert.Nil(t, c.Permutation())
}
