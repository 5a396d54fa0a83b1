package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/lexmind/internal/config"
)

// Provider names.
const (
	ProviderStatic = "static"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// New builds the configured embedder: the provider, optionally wrapped in
// the on-disk snapshot, then the in-memory LRU. Remote providers that are
// unreachable return an error; there is no silent fallback to static
// vectors, whose scores are not comparable.
func New(ctx context.Context, cfg config.EmbeddingsConfig, dataDir string) (Embedder, error) {
	var (
		base Embedder
		err  error
	)

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderStatic:
		base = NewStaticEmbedder(cfg.Dimensions)
	case ProviderOllama:
		oc := DefaultOllamaConfig()
		oc.Host = cfg.OllamaHost
		if cfg.Model != "" {
			oc.Model = cfg.Model
		}
		oc.BatchSize = cfg.BatchSize
		base, err = NewOllamaEmbedder(ctx, oc)
	case ProviderOpenAI:
		base, err = NewOpenAIEmbedder(ctx, OpenAIConfig{
			BaseURL: cfg.OpenAIBaseURL,
			Token:   cfg.OpenAIToken,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Snapshot && dataDir != "" {
		snap, serr := NewSnapshotEmbedder(base, dataDir)
		if serr != nil {
			slog.Warn("embedding_snapshot_disabled", slog.String("error", serr.Error()))
		} else {
			base = snap
		}
	}

	slog.Debug("embedder_created",
		slog.String("model", base.ModelName()),
		slog.Int("dimensions", base.Dimensions()),
		slog.Bool("snapshot", cfg.Snapshot))

	return NewCachedEmbedder(base, cfg.CacheSize), nil
}
