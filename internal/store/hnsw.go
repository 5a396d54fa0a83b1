package store

import (
	"context"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWConfig tunes the approximate index.
type HNSWConfig struct {
	Dimensions int
	M          int // neighbours per node (default 16)
	EfSearch   int // candidate list size (default 64)
}

// HNSWIndex is an approximate cosine index backed by coder/hnsw. Zero
// vectors are not inserted into the graph; they can only score 0.
// Candidate scores are recomputed exactly and re-sorted.
type HNSWIndex struct {
	cfg HNSWConfig

	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	vectors [][]float32
}

// NewHNSWIndex returns an empty graph index.
func NewHNSWIndex(cfg HNSWConfig) *HNSWIndex {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWIndex{cfg: cfg, graph: graph}
}

// Add appends vectors, inserting non-zero ones into the graph.
func (h *HNSWIndex) Add(_ context.Context, vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != h.cfg.Dimensions {
			return dimensionMismatch(h.cfg.Dimensions, len(v))
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, v := range vectors {
		vec := Normalized(v)
		key := uint64(len(h.vectors))
		h.vectors = append(h.vectors, vec)
		if IsZero(vec) {
			continue
		}
		h.graph.Add(hnsw.MakeNode(key, vec))
	}
	return nil
}

// Search queries the graph for k candidates.
func (h *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]VectorHit, error) {
	if len(query) != h.cfg.Dimensions {
		return nil, dimensionMismatch(h.cfg.Dimensions, len(query))
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if k <= 0 || h.graph.Len() == 0 {
		return []VectorHit{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := Normalized(query)
	if IsZero(q) {
		return []VectorHit{}, nil
	}

	nodes := h.graph.Search(q, k)
	hits := make([]VectorHit, 0, len(nodes))
	for _, node := range nodes {
		pos := int(node.Key)
		hits = append(hits, VectorHit{Position: pos, Score: Dot(q, h.vectors[pos])})
	}
	SortHits(hits)
	return hits, nil
}

// Dimensions returns the vector dimensionality.
func (h *HNSWIndex) Dimensions() int { return h.cfg.Dimensions }

// Len returns the number of positions, zero vectors included.
func (h *HNSWIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.vectors)
}

// Close drops the graph.
func (h *HNSWIndex) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = hnsw.NewGraph[uint64]()
	h.vectors = nil
	return nil
}

var _ VectorIndex = (*HNSWIndex)(nil)
