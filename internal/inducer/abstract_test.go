package inducer

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platedesign/internal/dose"
	"platedesign/pkg/domain"
)

func TestAbstractInducer(t *testing.T) {
	a, err := NewAbstract("Temperature", "°C")
	require.NoError(t, err)
	require.NoError(t, a.SetValues([]float64{30, 37}))
	assert.Equal(t, KindAbstract, a.Kind())
	assert.Nil(t, a.Preparer())
	assert.Equal(t, []float64{30, 37}, a.Concentrations())
	require.NoError(t, a.SetGradient(20, 40, 3, ScaleLinear, false))
	assert.Equal(t, []float64{20, 30, 40}, a.Concentrations())
}

func TestSliceFollowsParent(t *testing.T) {
	a, err := NewAbstract("light", "%", WithIDPrefix("L"))
	require.NoError(t, err)
	require.NoError(t, a.SetValues([]float64{0, 10, 20, 30, 40, 50}))

	s, err := NewSlice(a, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"L003", "L004", "L005"}, s.Doses().Strings(dose.IDColumn))
	assert.Equal(t, a.ConcentrationHeader(), s.ConcentrationHeader())
	assert.Nil(t, s.Preparer())

	a.Shuffle(rand.New(rand.NewPCG(9, 9)))
	assert.Equal(t, a.Doses().Slice(2, 5).Rows(), s.Doses().Rows())

	before := a.DoseTable().Permutation()
	s.Shuffle(rand.New(rand.NewPCG(1, 1)))
	assert.Same(t, before, a.DoseTable().Permutation())

	for _, bounds := range [][2]int{{-1, 2}, {3, 3}, {0, 7}} {
		_, err := NewSlice(a, bounds[0], bounds[1])
		require.ErrorIs(t, err, domain.ErrConfiguration)
	}
}
