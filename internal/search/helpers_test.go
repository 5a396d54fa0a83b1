package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/lexmind/internal/embed"
	"github.com/Aman-CERP/lexmind/internal/index"
	"github.com/Aman-CERP/lexmind/internal/store"
)

// mapEmbedder returns fixed vectors by text and zero vectors otherwise.
type mapEmbedder struct {
	dims    int
	vectors map[string][]float32
	fail    bool
	calls   int
}

func (m *mapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (m *mapEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.fail {
		return nil, errors.New("embedding service down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = make([]float32, m.dims)
	}
	return out, nil
}

func (m *mapEmbedder) Dimensions() int                { return m.dims }
func (m *mapEmbedder) ModelName() string              { return "map" }
func (m *mapEmbedder) Available(context.Context) bool { return true }
func (m *mapEmbedder) Close() error                   { return nil }

var _ embed.Embedder = (*mapEmbedder)(nil)

func buildCorpus(t *testing.T, chunks ...store.Chunk) *store.Corpus {
	t.Helper()
	corpus, err := store.NewCorpus(chunks)
	require.NoError(t, err)
	return corpus
}

func buildRetriever(t *testing.T, corpus *store.Corpus, emb embed.Embedder, cfg Config) *Retriever {
	t.Helper()
	ctx := context.Background()
	dense, err := index.NewDense(ctx, corpus, emb, index.DenseOptions{})
	require.NoError(t, err)
	sparse, err := index.NewSparse(ctx, corpus, store.SparseBackendMemory, store.DefaultBM25Config())
	require.NoError(t, err)
	r, err := NewRetriever(corpus, dense, sparse, emb, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func ptr(v float64) *float64 { return &v }
