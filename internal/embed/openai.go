package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

// OpenAIConfig configures an OpenAI-compatible embedding endpoint
// (llama.cpp server, vLLM, LocalAI, or the OpenAI API itself).
type OpenAIConfig struct {
	BaseURL    string
	Token      string // "none" for local servers without auth
	Model      string
	Dimensions int // 0 = detect with a probe request
}

// OpenAIEmbedder embeds through langchaingo's OpenAI client.
type OpenAIEmbedder struct {
	cfg      OpenAIConfig
	embedder embeddings.Embedder
	logger   *slog.Logger

	mu     sync.RWMutex
	dims   int
	closed bool
}

// NewOpenAIEmbedder creates the client and detects dimensions.
func NewOpenAIEmbedder(ctx context.Context, cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Token == "" {
		cfg.Token = "none"
	}
	if cfg.Model == "" {
		return nil, lexerrors.ConfigError("embeddings.model is required for the openai provider", nil)
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.Token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	e := &OpenAIEmbedder{
		cfg:      cfg,
		embedder: emb,
		logger:   slog.Default().With("component", "openai-embedder"),
		dims:     cfg.Dimensions,
	}

	if e.dims == 0 {
		v, err := emb.EmbedQuery(ctx, "dimension probe")
		if err != nil {
			return nil, lexerrors.New(lexerrors.ErrCodeNetworkUnavailable,
				fmt.Sprintf("openai-compatible endpoint unavailable at %s", cfg.BaseURL), err)
		}
		e.dims = len(v)
	}
	return e, nil
}

// Embed embeds one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts; langchaingo splits them into request batches.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	e.logger.Debug("embedding texts", "count", len(texts))
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, lexerrors.New(lexerrors.ErrCodeEmbeddingFailed, "openai embedding request failed", err)
	}
	if len(vecs) != len(texts) {
		return nil, lexerrors.New(lexerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("endpoint returned %d embeddings for %d inputs", len(vecs), len(texts)), nil)
	}
	return vecs, nil
}

// Dimensions returns the vector length.
func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model with an openai/ prefix.
func (e *OpenAIEmbedder) ModelName() string { return "openai/" + e.cfg.Model }

// Available reports whether the embedder is open. The endpoint is probed at
// construction.
func (e *OpenAIEmbedder) Available(context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close marks the embedder closed.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
