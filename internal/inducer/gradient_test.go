package inducer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platedesign/pkg/domain"
)

func TestGradientValues(t *testing.T) {
	tests := []struct {
		name string
		g    Gradient
		want []float64
	}{
		{"linear", Gradient{Min: 0, Max: 10, N: 5}, []float64{0, 2.5, 5, 7.5, 10}},
		{"single", Gradient{Min: 3, Max: 9, N: 1}, []float64{3}},
		{"log", Gradient{Min: 1, Max: 1000, N: 4, Scale: ScaleLog}, []float64{1, 10, 100, 1000}},
		{"log zero", Gradient{Min: 1, Max: 100, N: 4, Scale: ScaleLog, UseZero: true}, []float64{0, 1, 10, 100}},
		{"linear zero", Gradient{Min: 5, Max: 10, N: 3, UseZero: true}, []float64{0, 5, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.g.Values()
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestGradientErrors(t *testing.T) {
	for _, g := range []Gradient{
		{Min: 1, Max: 2, N: 0},
		{Min: 0, Max: 10, N: 3, Scale: ScaleLog},
		{Min: 1, Max: 10, N: 3, Scale: "cubic"},
	} {
		_, err := g.Values()
		require.ErrorIs(t, err, domain.ErrConfiguration)
	}
}
