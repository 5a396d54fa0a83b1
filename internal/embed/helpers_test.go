package embed

import (
	"context"
	"errors"
	"sync"
)

// countingEmbedder records provider calls and returns length-derived vectors.
type countingEmbedder struct {
	mu        sync.Mutex
	calls     int
	texts     int
	failBatch bool
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failBatch {
		return nil, errors.New("provider down")
	}
	c.calls++
	c.texts += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int                { return 3 }
func (c *countingEmbedder) ModelName() string              { return "counting" }
func (c *countingEmbedder) Available(context.Context) bool { return true }
func (c *countingEmbedder) Close() error                   { return nil }
