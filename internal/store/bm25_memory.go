package store

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryBM25 is an in-memory Okapi BM25 index.
type MemoryBM25 struct {
	cfg BM25Config

	mu       sync.RWMutex
	termFreq []map[string]int
	docLen   []float64
	avgDL    float64
	idf      map[string]float64
}

// NewMemoryBM25 returns an empty index.
func NewMemoryBM25(cfg BM25Config) *MemoryBM25 {
	return &MemoryBM25{cfg: cfg, idf: map[string]float64{}}
}

// Build indexes docs, replacing previous content.
func (m *MemoryBM25) Build(_ context.Context, docs [][]string) error {
	termFreq := make([]map[string]int, len(docs))
	docLen := make([]float64, len(docs))
	docFreq := make(map[string]int)
	var total float64

	for i, tokens := range docs {
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			docFreq[t]++
		}
		termFreq[i] = tf
		docLen[i] = float64(len(tokens))
		total += float64(len(tokens))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.termFreq = termFreq
	m.docLen = docLen
	m.avgDL = 0
	if len(docs) > 0 {
		m.avgDL = total / float64(len(docs))
	}
	m.idf = computeIDF(docFreq, len(docs), m.cfg.Epsilon)
	return nil
}

// computeIDF applies idf = ln(N-n+0.5) - ln(n+0.5) and replaces negative
// values with epsilon times the mean idf. Terms are visited in sorted order
// so the mean is reproducible.
func computeIDF(docFreq map[string]int, n int, epsilon float64) map[string]float64 {
	terms := make([]string, 0, len(docFreq))
	for t := range docFreq {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	idf := make(map[string]float64, len(terms))
	var sum float64
	var negative []string
	for _, t := range terms {
		df := float64(docFreq[t])
		v := math.Log(float64(n)-df+0.5) - math.Log(df+0.5)
		idf[t] = v
		sum += v
		if v < 0 {
			negative = append(negative, t)
		}
	}
	if len(terms) == 0 {
		return idf
	}
	floor := epsilon * (sum / float64(len(terms)))
	for _, t := range negative {
		idf[t] = floor
	}
	return idf
}

// ScoreAll returns BM25 scores aligned with corpus order. Repeated query
// terms contribute once per occurrence.
func (m *MemoryBM25) ScoreAll(ctx context.Context, query []string) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := make([]float64, len(m.termFreq))
	if len(query) == 0 || m.avgDL == 0 {
		return scores, nil
	}

	k1, b := m.cfg.K1, m.cfg.B
	for _, q := range query {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idf, ok := m.idf[q]
		if !ok {
			continue
		}
		for i, tf := range m.termFreq {
			f := float64(tf[q])
			if f == 0 {
				continue
			}
			norm := k1 * (1 - b + b*m.docLen[i]/m.avgDL)
			scores[i] += idf * (f * (k1 + 1)) / (f + norm)
		}
	}
	return scores, nil
}

// Len returns the number of indexed documents.
func (m *MemoryBM25) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.termFreq)
}

// Close is a no-op.
func (m *MemoryBM25) Close() error { return nil }

var _ SparseIndex = (*MemoryBM25)(nil)
