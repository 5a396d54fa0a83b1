package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

func TestFuse_Endpoints(t *testing.T) {
	dense := []float64{0.9, 0.1, 0, 0.4}
	sparse := []float64{0, 2.5, 1.2, 0.4}

	assert.Equal(t, sparse, Fuse(dense, sparse, 0))
	assert.Equal(t, dense, Fuse(dense, sparse, 1))
}

func TestFuse_Interpolates(t *testing.T) {
	got := Fuse([]float64{1, 0}, []float64{0, 1}, 0.25)
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, got, 1e-12)
}

func TestFuse_MissingComponentIsZero(t *testing.T) {
	got := Fuse([]float64{0.8}, []float64{0.2, 0.6}, 0.5)
	assert.InDeltaSlice(t, []float64{0.5, 0.3}, got, 1e-12)
}

func TestApplyFloor(t *testing.T) {
	tests := []struct {
		name      string
		dense     []float64
		sparse    []float64
		alpha     float64
		floor     float64
		positions []int
	}{
		{
			name:      "drops below floor",
			dense:     []float64{0.9, 0.3, 0.1},
			sparse:    []float64{0, 0, 0},
			alpha:     0.5,
			floor:     0.2,
			positions: []int{0},
		},
		{
			name:      "drops both-zero even with zero floor",
			dense:     []float64{0, 0.1},
			sparse:    []float64{0, 0},
			alpha:     0.5,
			floor:     0,
			positions: []int{1},
		},
		{
			name:      "ties keep corpus order",
			dense:     []float64{0.5, 0.7, 0.5},
			sparse:    []float64{0.5, 0.7, 0.5},
			alpha:     0.5,
			floor:     0.2,
			positions: []int{1, 0, 2},
		},
		{
			name:      "keeps equal to floor",
			dense:     []float64{0.4},
			sparse:    []float64{0},
			alpha:     0.5,
			floor:     0.2,
			positions: []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFloor(tt.dense, tt.sparse, tt.alpha, tt.floor, nil)
			positions := make([]int, len(got))
			for i, c := range got {
				positions[i] = c.Position
			}
			assert.Equal(t, tt.positions, positions)
		})
	}
}

func TestApplyFloor_BothZeroNeverSurvives(t *testing.T) {
	dense := []float64{0, 0.9, 0, 0.3}
	sparse := []float64{0, 0, 4.2, 0.3}
	for _, alpha := range []float64{0, 0.1, 0.25, 0.5, 0.75, 1} {
		for _, c := range ApplyFloor(dense, sparse, alpha, -1, nil) {
			assert.NotEqual(t, 0, c.Position, "alpha %v", alpha)
		}
	}
}

func TestApplyFloor_Include(t *testing.T) {
	got := ApplyFloor([]float64{0.9, 0.8}, []float64{0.9, 0.8}, 0.5, 0.2, func(i int) bool { return i == 1 })
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Position)
	assert.InDelta(t, 0.8, got[0].Hybrid, 1e-12)
}

func TestValidateAlpha(t *testing.T) {
	assert.NoError(t, ValidateAlpha(0))
	assert.NoError(t, ValidateAlpha(1))
	err := ValidateAlpha(1.5)
	require.Error(t, err)
	assert.Equal(t, lexerrors.ErrCodeInvalidAlpha, lexerrors.GetCode(err))
	assert.Error(t, ValidateAlpha(-0.1))
}

func TestNormalizeMax(t *testing.T) {
	assert.Equal(t, []float64{0.5, 1, 0}, NormalizeMax([]float64{2, 4, 0}))
	assert.Equal(t, []float64{0, 0}, NormalizeMax([]float64{0, 0}))

	in := []float64{3}
	_ = NormalizeMax(in)
	assert.Equal(t, []float64{3}, in, "input is not modified")
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 0.1235, round4(0.123456))
	assert.Equal(t, 2.0, round4(2))
}
