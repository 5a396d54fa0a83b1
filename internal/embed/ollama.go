package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

const (
	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is a multilingual embedding model with good German coverage.
	DefaultOllamaModel = "bge-m3"
)

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int // 0 = detect with a probe request
	BatchSize  int
	Timeout    time.Duration
	Retry      lexerrors.RetryConfig
}

// DefaultOllamaConfig returns local defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:      DefaultOllamaHost,
		Model:     DefaultOllamaModel,
		BatchSize: DefaultBatchSize,
		Timeout:   DefaultTimeout,
		Retry:     lexerrors.DefaultRetryConfig(),
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaEmbedder calls the Ollama /api/embed endpoint.
type OllamaEmbedder struct {
	cfg    OllamaConfig
	client *http.Client

	mu     sync.RWMutex
	dims   int
	closed bool
}

// NewOllamaEmbedder connects to Ollama and detects the model dimensions.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	def := DefaultOllamaConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = def.Retry
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")

	// No http.Client.Timeout: per-request contexts carry the deadline.
	e := &OllamaEmbedder{
		cfg:    cfg,
		client: &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 4, IdleConnTimeout: 90 * time.Second}},
		dims:   cfg.Dimensions,
	}

	if e.dims == 0 {
		vecs, err := e.doEmbed(ctx, []string{"dimension probe"})
		if err != nil {
			return nil, fmt.Errorf("ollama unavailable at %s: %w", cfg.Host, err)
		}
		e.dims = len(vecs[0])
		slog.Info("ollama_embedder_ready",
			slog.String("model", cfg.Model),
			slog.Int("dimensions", e.dims))
	}
	return e, nil
}

// Embed embeds one text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in provider-sized batches.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))
		batch := texts[start:end]

		vecs, err := lexerrors.RetryWithResult(ctx, e.cfg.Retry, func() ([][]float32, error) {
			return e.doEmbed(ctx, batch)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.cfg.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		code := lexerrors.ErrCodeEmbeddingFailed
		if resp.StatusCode >= 500 {
			code = lexerrors.ErrCodeNetworkUnavailable
		}
		return nil, lexerrors.New(code,
			fmt.Sprintf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), nil)
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, lexerrors.New(lexerrors.ErrCodeEmbeddingFailed, "failed to decode ollama response", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, lexerrors.New(lexerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("ollama returned %d embeddings for %d inputs", len(parsed.Embeddings), len(texts)), nil)
	}

	out := make([][]float32, len(parsed.Embeddings))
	for i, v := range parsed.Embeddings {
		out[i] = toFloat32(v)
	}
	return out, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return lexerrors.New(lexerrors.ErrCodeNetworkTimeout, "embedding request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return lexerrors.New(lexerrors.ErrCodeNetworkUnavailable, "embedding provider unreachable", err)
}

// Dimensions returns the detected or configured vector length.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the Ollama model tag.
func (e *OllamaEmbedder) ModelName() string { return "ollama/" + e.cfg.Model }

// Available pings /api/tags.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.Host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}

var _ Embedder = (*OllamaEmbedder)(nil)
