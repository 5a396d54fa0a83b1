package search

import (
	"fmt"
	"math"
	"sort"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

// Candidate is a corpus position with its component and fused scores.
type Candidate struct {
	Position int
	Dense    float64
	Sparse   float64
	Hybrid   float64
}

// ValidateAlpha rejects weights outside [0, 1].
func ValidateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return lexerrors.New(lexerrors.ErrCodeInvalidAlpha,
			fmt.Sprintf("alpha must be between 0 and 1, got %v", alpha), nil)
	}
	return nil
}

// Fuse returns alpha*dense + (1-alpha)*sparse element-wise. The result has
// the length of the longer input; a missing component counts as 0.
func Fuse(dense, sparse []float64, alpha float64) []float64 {
	n := max(len(dense), len(sparse))
	out := make([]float64, n)
	for i := range out {
		var d, s float64
		if i < len(dense) {
			d = dense[i]
		}
		if i < len(sparse) {
			s = sparse[i]
		}
		out[i] = alpha*d + (1-alpha)*s
	}
	return out
}

// ApplyFloor fuses the component scores and keeps positions whose hybrid
// score reaches floor and that have at least one non-zero component. The
// survivors are sorted by descending hybrid score, ties in corpus order.
// include, when non-nil, restricts the candidate positions.
func ApplyFloor(dense, sparse []float64, alpha, floor float64, include func(int) bool) []Candidate {
	hybrid := Fuse(dense, sparse, alpha)
	out := make([]Candidate, 0, len(hybrid))
	for i, h := range hybrid {
		if include != nil && !include(i) {
			continue
		}
		c := Candidate{Position: i, Hybrid: h}
		if i < len(dense) {
			c.Dense = dense[i]
		}
		if i < len(sparse) {
			c.Sparse = sparse[i]
		}
		if c.Dense == 0 && c.Sparse == 0 {
			continue
		}
		if h < floor {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Hybrid > out[j].Hybrid
	})
	return out
}

// NormalizeMax divides scores by their maximum so the best score is 1.
// All-zero or negative-only input is returned unchanged.
func NormalizeMax(scores []float64) []float64 {
	top := 0.0
	for _, s := range scores {
		if s > top {
			top = s
		}
	}
	out := make([]float64, len(scores))
	copy(out, scores)
	if top == 0 {
		return out
	}
	for i := range out {
		out[i] /= top
	}
	return out
}

// round4 rounds to four decimals for display.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
