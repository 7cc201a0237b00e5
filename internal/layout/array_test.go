package layout

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platedesign/pkg/domain"
)

func array2x2(t *testing.T, samples int) *Array {
	t.Helper()
	var plates []*Plate
	for i := range 4 {
		plates = append(plates, plate(t, PlateConfig{
			Name: fmt.Sprintf("P%d", i+1), Rows: 4, Cols: 6, SamplesToMeasure: samples, SampleMediaVolume: 500,
		}))
	}
	a, err := NewArray(ArrayConfig{Name: "A", ArrayRows: 2, ArrayCols: 2, Plates: plates, IDPrefix: "S"})
	require.NoError(t, err)
	return a
}

func TestArrayRowsSplitsIntoColumnBands(t *testing.T) {
	a := array2x2(t, 0)
	assert.Equal(t, 8, a.Rows())
	assert.Equal(t, 12, a.Cols())
	assert.Equal(t, 96, a.SamplesToMeasure())

	values := make([]float64, 12)
	for i := range values {
		values[i] = float64(i)
	}
	ind := abstract(t, "IPTG", "I", values...)
	require.NoError(t, a.ApplyInducer(ind, domain.ModeRows))

	for i, p := range a.Plates() {
		apps := p.Applications()
		require.Len(t, apps, 1)
		assert.Equal(t, 6, apps[0].Inducer.Len(), "plate %s", p.Name())
		band := i % 2
		assert.Equal(t, float64(band*6), apps[0].Inducer.Doses().Value(0, ind.ConcentrationHeader()))
	}

	closed, err := a.Close()
	require.NoError(t, err)
	require.Len(t, closed, 4)
	for i, cp := range closed {
		assert.Equal(t, fmt.Sprintf("P%d", i+1), cp.Name())
		assert.Equal(t, 24, cp.Len())
		assert.Equal(t, i*24, cp.IDOffset())
	}
	assert.Equal(t, "S025", closed[1].Samples().Value(0, ColID))
	assert.Equal(t, "I007", closed[1].Samples().Value(0, ind.IDHeader()))
	assert.Equal(t, "I012", closed[3].Samples().Value(23, ind.IDHeader()))
}

func TestArrayColsSplitsIntoRowBands(t *testing.T) {
	a := array2x2(t, 0)
	ind := abstract(t, "aTc", "T", 1, 2, 3, 4, 5, 6, 7, 8)
	require.NoError(t, a.ApplyInducer(ind, domain.ModeCols))
	plates := a.Plates()
	assert.Equal(t, "T001", plates[1].Applications()[0].Inducer.Doses().Value(0, "ID"))
	assert.Equal(t, "T005", plates[2].Applications()[0].Inducer.Doses().Value(0, "ID"))
}

func TestArrayWellsSplitsPerPlate(t *testing.T) {
	a := array2x2(t, 5)
	values := make([]float64, 20)
	ind := abstract(t, "ara", "A", values...)
	require.NoError(t, a.ApplyInducer(ind, domain.ModeWells))
	closed, err := a.Close()
	require.NoError(t, err)
	assert.Equal(t, "A011", closed[2].Samples().Value(0, ind.IDHeader()))

	rows := abstract(t, "IPTG", "I", make([]float64, 12)...)
	require.ErrorIs(t, a.ApplyInducer(rows, domain.ModeRows), domain.ErrConfiguration)

	grid, err := a.LayoutTable()
	require.NoError(t, err)
	assert.Equal(t, "A006", grid.Value(0, "7"))
	assert.Nil(t, grid.Value(1, "1"))
}

func TestArrayMediaAppliesToEveryPlate(t *testing.T) {
	a := array2x2(t, 0)
	ind := abstract(t, "light", "L", 42)
	require.NoError(t, a.ApplyInducer(ind, domain.ModeMedia))
	for _, p := range a.Plates() {
		assert.Same(t, ind, p.Applications()[0].Inducer)
	}
	assert.Equal(t, 4, a.PlateCount())
	require.ErrorIs(t, a.ApplyInducer(ind, domain.ModeMedia), domain.ErrConfiguration)
}

func TestArrayApplyIsAllOrNothing(t *testing.T) {
	a := array2x2(t, 0)
	blocker := abstract(t, "IPTG", "B", 1, 2, 3, 4, 5, 6)
	require.NoError(t, a.Plates()[3].ApplyInducer(blocker, domain.ModeRows))

	ind := abstract(t, "IPTG", "I", make([]float64, 12)...)
	require.ErrorIs(t, a.ApplyInducer(ind, domain.ModeRows), domain.ErrConfiguration)
	for _, p := range a.Plates()[:3] {
		assert.Empty(t, p.Applications())
	}
	assert.Empty(t, a.Applications())
}

func TestNewArrayValidation(t *testing.T) {
	p1 := plate(t, PlateConfig{Name: "P1", Rows: 4, Cols: 6})
	p2 := plate(t, PlateConfig{Name: "P2", Rows: 4, Cols: 5})
	p3 := plate(t, PlateConfig{Name: "P1", Rows: 4, Cols: 6})
	p4 := plate(t, PlateConfig{Name: "P4", Rows: 4, Cols: 6, SampleMediaVolume: 1})
	for _, cfg := range []ArrayConfig{
		{Name: "A", ArrayRows: 1, ArrayCols: 2, Plates: []*Plate{p1}},
		{Name: "A", ArrayRows: 1, ArrayCols: 2, Plates: []*Plate{p1, p2}},
		{Name: "A", ArrayRows: 1, ArrayCols: 2, Plates: []*Plate{p1, p3}},
		{Name: "A", ArrayRows: 1, ArrayCols: 2, Plates: []*Plate{p1, p4}},
		{ArrayRows: 1, ArrayCols: 1, Plates: []*Plate{p1}},
	} {
		_, err := NewArray(cfg)
		require.ErrorIs(t, err, domain.ErrConfiguration)
	}
}
