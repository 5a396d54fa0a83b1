// Package session owns the searchable state of one corpus folder. A
// generation (corpus, indexes, retriever) is built in full and swapped in
// atomically; searches see either the old or the new generation.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/lexmind/internal/config"
	"github.com/Aman-CERP/lexmind/internal/embed"
	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/index"
	"github.com/Aman-CERP/lexmind/internal/ingest"
	"github.com/Aman-CERP/lexmind/internal/search"
	"github.com/Aman-CERP/lexmind/internal/store"
)

// Loader reads a corpus folder.
type Loader interface {
	LoadFolder(ctx context.Context, dir string) (*store.Corpus, *ingest.Report, error)
}

type generation struct {
	number    int
	corpus    *store.Corpus
	retriever *search.Retriever
	report    *ingest.Report
	builtAt   time.Time
	duration  time.Duration
	dense     *index.Dense
	sparse    *index.Sparse
}

// Session serves searches over the current generation.
type Session struct {
	cfg      *config.Config
	embedder embed.Embedder
	loader   Loader
	progress index.ProgressFunc

	// reloadMu serializes builds; mu guards the swap.
	reloadMu sync.Mutex
	mu       sync.RWMutex
	gen      *generation
	lastErr  error
	builds   int
}

// Option configures a Session.
type Option func(*Session)

// WithLoader replaces the folder loader.
func WithLoader(l Loader) Option {
	return func(s *Session) {
		s.loader = l
	}
}

// WithProgress reports embedding progress of every build to fn.
func WithProgress(fn index.ProgressFunc) Option {
	return func(s *Session) {
		s.progress = fn
	}
}

// New builds the first generation from cfg.Corpus.Path. A failed build
// leaves the session inert: searches return empty results and Status
// reports the error. The error is returned as well so callers can surface
// it once.
func New(ctx context.Context, cfg *config.Config, embedder embed.Embedder, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:      cfg,
		embedder: embedder,
		loader:   ingest.NewLoader(cfg.Corpus.Extensions),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, s.Reload(ctx)
}

// Reload rebuilds the generation from the corpus folder and swaps it in.
// On failure the previous generation keeps serving.
func (s *Session) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	gen, err := s.build(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		inert := s.gen == nil
		s.mu.Unlock()
		level := slog.LevelError
		if lexerrors.IsRecoverable(err) && !inert {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "corpus_build_failed",
			slog.String("corpus", s.cfg.Corpus.Path),
			slog.Bool("inert", inert),
			slog.Bool("recoverable", lexerrors.IsRecoverable(err)),
			slog.String("error", err.Error()))
		return err
	}

	s.mu.Lock()
	old := s.gen
	s.builds++
	gen.number = s.builds
	s.gen = gen
	s.lastErr = nil
	s.mu.Unlock()

	if old != nil {
		if err := old.retriever.Close(); err != nil {
			slog.Warn("generation_close_failed", slog.String("error", err.Error()))
		}
	}

	status := s.Status()
	slog.Info("corpus_generation_ready",
		slog.Int("generation", gen.number),
		slog.Int("chunks", status.Chunks),
		slog.Int("sources", len(status.Sources)),
		slog.Duration("duration", gen.duration))

	if s.cfg.Storage.DataDir != "" {
		if err := SaveStatus(s.cfg.Storage.DataDir, status); err != nil {
			slog.Warn("status_save_failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *Session) build(ctx context.Context) (*generation, error) {
	start := time.Now()

	corpus, report, err := s.loader.LoadFolder(ctx, s.cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}
	dense, err := index.NewDense(ctx, corpus, s.embedder, index.DenseOptions{
		Backend:   s.cfg.Search.DenseBackend,
		BatchSize: s.cfg.Embeddings.BatchSize,
		Progress:  s.progress,
	})
	if err != nil {
		return nil, err
	}
	sparse, err := index.NewSparse(ctx, corpus, s.cfg.Search.SparseBackend, store.DefaultBM25Config())
	if err != nil {
		_ = dense.Close()
		return nil, err
	}
	retriever, err := search.NewRetriever(corpus, dense, sparse, s.embedder, search.ConfigFrom(s.cfg))
	if err != nil {
		return nil, errors.Join(err, dense.Close(), sparse.Close())
	}

	return &generation{
		corpus:    corpus,
		retriever: retriever,
		report:    report,
		builtAt:   time.Now(),
		duration:  time.Since(start),
		dense:     dense,
		sparse:    sparse,
	}, nil
}

// Search runs query against the current generation. An inert session
// returns an empty response.
func (s *Session) Search(ctx context.Context, query string, opts search.Options) (*search.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r *search.Retriever
	if s.gen != nil {
		r = s.gen.retriever
	}
	return r.Search(ctx, query, opts)
}

// Corpus returns the current corpus; nil while inert.
func (s *Session) Corpus() *store.Corpus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gen == nil {
		return nil
	}
	return s.gen.corpus
}

// Inert reports whether no generation has been built.
func (s *Session) Inert() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen == nil
}

// Err returns the error of the most recent failed build, or nil.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Close releases the current generation. The embedder belongs to the caller.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == nil {
		return nil
	}
	err := s.gen.retriever.Close()
	s.gen = nil
	return err
}
