// Package embed provides embedding providers for dense retrieval and
// semantic highlighting: an offline hash embedder, Ollama, and
// OpenAI-compatible servers, plus LRU and on-disk snapshot caches.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the default number of texts per provider request.
	DefaultBatchSize = 32

	// MaxBatchSize caps provider requests.
	MaxBatchSize = 256

	// DefaultTimeout bounds a single remote embedding request.
	DefaultTimeout = 60 * time.Second

	// StaticDimensions is the default dimensionality of the static embedder.
	StaticDimensions = 256
)

// Embedder maps text to vectors. Implementations are safe for concurrent use.
type Embedder interface {
	// Embed generates the embedding of a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length.
	Dimensions() int

	// ModelName identifies the model; cache keys include it.
	ModelName() string

	// Available reports whether the provider can serve requests.
	Available(ctx context.Context) bool

	Close() error
}

// normalizeVector returns a unit-length copy of v; zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}

// toFloat32 converts provider float64 vectors.
func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
