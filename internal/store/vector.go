package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

// Dense backend names.
const (
	DenseBackendFlat = "flat"
	DenseBackendHNSW = "hnsw"
)

// VectorHit is a scored corpus position.
type VectorHit struct {
	Position int
	Score    float64 // cosine similarity in [-1, 1]
}

// VectorIndex stores one vector per corpus position and answers cosine
// nearest-neighbour queries.
type VectorIndex interface {
	// Add appends vectors; the i-th vector of the first call is position 0.
	Add(ctx context.Context, vectors [][]float32) error

	// Search returns at most k hits sorted by descending score, ties broken
	// by ascending position.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	Dimensions() int
	Len() int
	Close() error
}

// NewVectorIndex creates an empty vector index for the named backend.
func NewVectorIndex(backend string, dimensions int) (VectorIndex, error) {
	switch strings.ToLower(backend) {
	case "", DenseBackendFlat:
		return NewFlatIndex(dimensions), nil
	case DenseBackendHNSW:
		return NewHNSWIndex(HNSWConfig{Dimensions: dimensions}), nil
	default:
		return nil, fmt.Errorf("unknown dense backend %q", backend)
	}
}

// FlatIndex is an exact brute-force cosine index.
type FlatIndex struct {
	dims int

	mu      sync.RWMutex
	vectors [][]float32 // unit length, or all zeros
}

// NewFlatIndex returns an empty index of the given dimensionality.
func NewFlatIndex(dimensions int) *FlatIndex {
	return &FlatIndex{dims: dimensions}
}

// Add appends normalized copies of vectors.
func (f *FlatIndex) Add(_ context.Context, vectors [][]float32) error {
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != f.dims {
			return dimensionMismatch(f.dims, len(v))
		}
		normalized[i] = Normalized(v)
	}

	f.mu.Lock()
	f.vectors = append(f.vectors, normalized...)
	f.mu.Unlock()
	return nil
}

// Search scores every stored vector.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]VectorHit, error) {
	if len(query) != f.dims {
		return nil, dimensionMismatch(f.dims, len(query))
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if k <= 0 || len(f.vectors) == 0 {
		return []VectorHit{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := Normalized(query)
	hits := make([]VectorHit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = VectorHit{Position: i, Score: Dot(q, v)}
	}
	SortHits(hits)
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Dimensions returns the vector dimensionality.
func (f *FlatIndex) Dimensions() int { return f.dims }

// Len returns the number of stored vectors.
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Close releases the vectors.
func (f *FlatIndex) Close() error {
	f.mu.Lock()
	f.vectors = nil
	f.mu.Unlock()
	return nil
}

var _ VectorIndex = (*FlatIndex)(nil)

// SortHits orders hits by descending score, then ascending position.
func SortHits(hits []VectorHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})
}

// Normalized returns a unit-length copy of v. Zero vectors stay zero.
func Normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	var sum float64
	for _, x := range out {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range out {
		out[i] *= inv
	}
	return out
}

// Dot returns the dot product clamped to [-1, 1], which for unit vectors is
// the cosine similarity.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return math.Max(-1, math.Min(1, s))
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero or
// the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}

// IsZero reports whether every component of v is 0.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func dimensionMismatch(expected, got int) error {
	return lexerrors.New(lexerrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("vector dimension mismatch: expected %d, got %d", expected, got), nil).
		WithDetail("expected", fmt.Sprint(expected)).
		WithDetail("got", fmt.Sprint(got))
}
