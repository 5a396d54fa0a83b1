// Package index builds the dense and sparse indexes over a corpus. Both
// are built once per corpus version and are read-only afterwards.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/lexmind/internal/embed"
	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/store"
)

// DenseOptions configures dense index construction.
type DenseOptions struct {
	// Backend is a store dense backend name (flat or hnsw).
	Backend string

	// BatchSize is the number of chunks per EmbedBatch call.
	BatchSize int

	// Progress, if set, is called after each batch with the number of
	// chunks embedded so far.
	Progress ProgressFunc
}

// ProgressFunc reports done of total chunks embedded.
type ProgressFunc func(done, total int)

// DenseHit is a corpus position with its cosine similarity to the query.
type DenseHit = store.VectorHit

// Dense holds one embedding per corpus chunk.
type Dense struct {
	embedder embed.Embedder
	vectors  store.VectorIndex
	backend  string
	zeroed   int
}

// NewDense embeds every chunk of corpus and loads the vectors into the
// configured backend. Chunks whose embedding fails or has the wrong length
// are stored as zero vectors and score 0 for every query.
func NewDense(ctx context.Context, corpus *store.Corpus, embedder embed.Embedder, opts DenseOptions) (*Dense, error) {
	if embedder == nil {
		return nil, lexerrors.InternalError("dense index needs an embedder", nil)
	}
	dims := embedder.Dimensions()
	if dims <= 0 {
		return nil, lexerrors.New(lexerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedder %s reports %d dimensions", embedder.ModelName(), dims), nil)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = embed.DefaultBatchSize
	}
	if opts.Backend == "" {
		opts.Backend = store.DenseBackendFlat
	}

	vectors, err := store.NewVectorIndex(opts.Backend, dims)
	if err != nil {
		return nil, lexerrors.ConfigError(err.Error(), err)
	}

	d := &Dense{embedder: embedder, vectors: vectors, backend: opts.Backend}
	start := time.Now()

	contents := corpus.Contents()
	embeddings := make([][]float32, 0, len(contents))
	for batchStart := 0; batchStart < len(contents); batchStart += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			_ = vectors.Close()
			return nil, err
		}
		batchEnd := min(batchStart+opts.BatchSize, len(contents))
		embeddings = append(embeddings, d.embedBatch(ctx, contents[batchStart:batchEnd], batchStart)...)
		if opts.Progress != nil {
			opts.Progress(batchEnd, len(contents))
		}
	}

	if err := vectors.Add(ctx, embeddings); err != nil {
		_ = vectors.Close()
		return nil, lexerrors.New(lexerrors.ErrCodeIndexFailed, "failed to load dense vectors", err)
	}

	slog.Info("dense_index_built",
		slog.String("model", embedder.ModelName()),
		slog.String("backend", opts.Backend),
		slog.Int("chunks", len(contents)),
		slog.Int("dimensions", dims),
		slog.Int("zero_vectors", d.zeroed),
		slog.Duration("duration", time.Since(start)))
	return d, nil
}

// embedBatch embeds one batch, falling back to per-chunk calls when the
// batch call fails. The result always has len(texts) vectors of the index
// dimension.
func (d *Dense) embedBatch(ctx context.Context, texts []string, offset int) [][]float32 {
	dims := d.vectors.Dimensions()

	vecs, err := d.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		if err == nil {
			err = fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(texts))
		}
		slog.Warn("dense_batch_embedding_failed",
			slog.Int("offset", offset),
			slog.Int("size", len(texts)),
			slog.String("error", err.Error()))

		vecs = make([][]float32, len(texts))
		for i, text := range texts {
			v, cerr := d.embedder.Embed(ctx, text)
			if cerr != nil {
				slog.Warn("dense_chunk_embedding_failed",
					slog.Int("position", offset+i),
					slog.String("error", cerr.Error()))
				continue
			}
			vecs[i] = v
		}
	}

	out := make([][]float32, len(texts))
	for i, v := range vecs {
		switch {
		case v == nil:
			out[i] = make([]float32, dims)
			d.zeroed++
		case len(v) != dims:
			slog.Warn("dense_chunk_dimension_mismatch",
				slog.Int("position", offset+i),
				slog.Int("expected", dims),
				slog.Int("got", len(v)))
			out[i] = make([]float32, dims)
			d.zeroed++
		default:
			out[i] = v
		}
	}
	return out
}

// SimilaritySearch embeds queryText and returns at most k hits by
// descending cosine similarity, ties in corpus order.
func (d *Dense) SimilaritySearch(ctx context.Context, queryText string, k int) ([]DenseHit, error) {
	if d == nil || d.vectors.Len() == 0 || k <= 0 {
		return []DenseHit{}, nil
	}

	q, err := d.embedder.Embed(ctx, queryText)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, lexerrors.New(lexerrors.ErrCodeEmbeddingFailed, "failed to embed query", err)
	}
	if len(q) != d.vectors.Dimensions() {
		return nil, lexerrors.New(lexerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query embedding has %d dimensions, index has %d", len(q), d.vectors.Dimensions()), nil).
			WithSuggestion("Rebuild the index after changing the embedding provider")
	}
	return d.vectors.Search(ctx, q, k)
}

// ScoreAll returns the cosine similarity of queryText to every chunk in
// corpus order. Positions an approximate backend did not return score 0.
func (d *Dense) ScoreAll(ctx context.Context, queryText string) ([]float64, error) {
	n := d.Len()
	scores := make([]float64, n)
	if n == 0 {
		return scores, nil
	}
	hits, err := d.SimilaritySearch(ctx, queryText, n)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		scores[h.Position] = h.Score
	}
	return scores, nil
}

// Len returns the number of indexed chunks.
func (d *Dense) Len() int {
	if d == nil {
		return 0
	}
	return d.vectors.Len()
}

// Dimensions returns the index dimensionality.
func (d *Dense) Dimensions() int { return d.vectors.Dimensions() }

// ZeroVectors returns how many chunks were stored as zero vectors.
func (d *Dense) ZeroVectors() int { return d.zeroed }

// Backend returns the vector backend name.
func (d *Dense) Backend() string { return d.backend }

// Model returns the embedding model the index was built with.
func (d *Dense) Model() string { return d.embedder.ModelName() }

// Close releases the vector backend. The embedder is owned by the caller.
func (d *Dense) Close() error {
	if d == nil {
		return nil
	}
	return d.vectors.Close()
}
