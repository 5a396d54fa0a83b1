package index

import (
	"context"
	"log/slog"
	"time"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/store"
)

// Sparse holds BM25 term statistics over the tokenized corpus.
type Sparse struct {
	index   store.SparseIndex
	backend string
	size    int
}

// NewSparse tokenizes every chunk of corpus and builds the named backend.
func NewSparse(ctx context.Context, corpus *store.Corpus, backend string, cfg store.BM25Config) (*Sparse, error) {
	if backend == "" {
		backend = store.SparseBackendMemory
	}
	idx, err := store.NewSparseIndex(backend, cfg)
	if err != nil {
		return nil, lexerrors.ConfigError(err.Error(), err)
	}

	start := time.Now()
	docs := make([][]string, corpus.Len())
	for i := range docs {
		docs[i] = store.Tokenize(corpus.At(i).Content)
	}
	if len(docs) > 0 {
		if err := idx.Build(ctx, docs); err != nil {
			_ = idx.Close()
			return nil, lexerrors.New(lexerrors.ErrCodeIndexFailed, "failed to build sparse index", err)
		}
	}

	slog.Info("sparse_index_built",
		slog.String("backend", backend),
		slog.Int("chunks", len(docs)),
		slog.Duration("duration", time.Since(start)))
	return &Sparse{index: idx, backend: backend, size: len(docs)}, nil
}

// ScoreAll returns one BM25 score per chunk in corpus order. Chunks that
// share no term with the query score exactly 0.
func (s *Sparse) ScoreAll(ctx context.Context, queryTokens []string) ([]float64, error) {
	if s == nil || s.size == 0 {
		return []float64{}, nil
	}
	if len(queryTokens) == 0 {
		return make([]float64, s.size), nil
	}
	scores, err := s.index.ScoreAll(ctx, queryTokens)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, lexerrors.New(lexerrors.ErrCodeSearchFailed, "sparse scoring failed", err)
	}
	return scores, nil
}

// Len returns the number of indexed chunks.
func (s *Sparse) Len() int {
	if s == nil {
		return 0
	}
	return s.size
}

// Backend returns the sparse backend name.
func (s *Sparse) Backend() string { return s.backend }

// Close releases the backend.
func (s *Sparse) Close() error {
	if s == nil {
		return nil
	}
	return s.index.Close()
}
