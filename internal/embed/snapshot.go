package embed

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Aman-CERP/lexmind/internal/store"
)

// SnapshotFileName is the embedding snapshot database inside the data directory.
const SnapshotFileName = "embeddings.db"

// SnapshotEmbedder persists computed vectors so a restart with an unchanged
// corpus does not re-embed it. Reads and writes are best effort: a failing
// snapshot degrades to calling the inner embedder.
type SnapshotEmbedder struct {
	inner Embedder
	cache *store.EmbeddingCache
	lock  *FileLock
}

// NewSnapshotEmbedder opens the snapshot under dataDir.
func NewSnapshotEmbedder(inner Embedder, dataDir string) (*SnapshotEmbedder, error) {
	cache, err := store.OpenEmbeddingCache(filepath.Join(dataDir, SnapshotFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding snapshot: %w", err)
	}
	return &SnapshotEmbedder{inner: inner, cache: cache, lock: NewFileLock(dataDir)}, nil
}

// Embed embeds a single text through the snapshot.
func (s *SnapshotEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch serves stored vectors and embeds and stores the rest.
func (s *SnapshotEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := s.inner.ModelName()
	hashes := make([]string, len(texts))
	for i, t := range texts {
		hashes[i] = store.ContentHash(t)
	}

	stored, err := s.cache.Get(ctx, model, hashes)
	if err != nil {
		slog.Warn("embedding_snapshot_read_failed", slog.String("error", err.Error()))
		stored = nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, h := range hashes {
		if v, ok := stored[h]; ok && len(v) == s.inner.Dimensions() {
			results[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	toStore := make(map[string][]float32, len(fresh))
	for j, idx := range missIdx {
		results[idx] = fresh[j]
		toStore[hashes[idx]] = fresh[j]
	}
	s.store(ctx, model, toStore)
	return results, nil
}

func (s *SnapshotEmbedder) store(ctx context.Context, model string, vectors map[string][]float32) {
	if err := s.lock.Lock(); err != nil {
		slog.Warn("embedding_snapshot_lock_failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := s.cache.Put(ctx, model, vectors); err != nil {
		slog.Warn("embedding_snapshot_write_failed",
			slog.Int("vectors", len(vectors)),
			slog.String("error", err.Error()))
	}
}

// Stored returns the number of snapshot vectors for the current model.
func (s *SnapshotEmbedder) Stored(ctx context.Context) (int, error) {
	return s.cache.Count(ctx, s.inner.ModelName())
}

// Dimensions passes through to the inner embedder.
func (s *SnapshotEmbedder) Dimensions() int { return s.inner.Dimensions() }

// ModelName passes through to the inner embedder.
func (s *SnapshotEmbedder) ModelName() string { return s.inner.ModelName() }

// Available passes through to the inner embedder.
func (s *SnapshotEmbedder) Available(ctx context.Context) bool { return s.inner.Available(ctx) }

// Close closes the snapshot and the inner embedder.
func (s *SnapshotEmbedder) Close() error {
	cerr := s.cache.Close()
	if err := s.inner.Close(); err != nil {
		return err
	}
	return cerr
}

var _ Embedder = (*SnapshotEmbedder)(nil)
