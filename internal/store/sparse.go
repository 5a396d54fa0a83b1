package store

import (
	"context"
	"fmt"
	"strings"
)

// Sparse backend names.
const (
	SparseBackendMemory = "memory"
	SparseBackendSQLite = "sqlite"
	SparseBackendBleve  = "bleve"
)

// SparseIndex scores a tokenized query against every document of a
// tokenized corpus.
type SparseIndex interface {
	// Build replaces the indexed documents. docs[i] holds the tokens of
	// corpus position i.
	Build(ctx context.Context, docs [][]string) error

	// ScoreAll returns one score per document in corpus order. Documents
	// sharing no term with the query score exactly 0.
	ScoreAll(ctx context.Context, query []string) ([]float64, error)

	// Len returns the number of indexed documents.
	Len() int

	Close() error
}

// BM25Config holds Okapi BM25 parameters.
type BM25Config struct {
	K1 float64
	B  float64
	// Epsilon floors negative IDF values at Epsilon * mean IDF.
	Epsilon float64
}

// DefaultBM25Config returns k1=1.5, b=0.75, epsilon=0.25.
func DefaultBM25Config() BM25Config {
	return BM25Config{K1: 1.5, B: 0.75, Epsilon: 0.25}
}

// NewSparseIndex creates an empty sparse index for the named backend.
func NewSparseIndex(backend string, cfg BM25Config) (SparseIndex, error) {
	switch strings.ToLower(backend) {
	case "", SparseBackendMemory:
		return NewMemoryBM25(cfg), nil
	case SparseBackendSQLite:
		return NewSQLiteBM25Index("")
	case SparseBackendBleve:
		return NewBleveBM25Index()
	default:
		return nil, fmt.Errorf("unknown sparse backend %q", backend)
	}
}
