package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/lexmind/internal/embed"
	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/index"
	"github.com/Aman-CERP/lexmind/internal/store"
)

// Backend names reported in Response.Degraded.
const (
	BackendDense  = "dense"
	BackendSparse = "sparse"
)

// Retriever answers hybrid queries over one corpus generation. It is safe
// for concurrent use; nothing it holds is mutated after construction.
type Retriever struct {
	corpus      *store.Corpus
	dense       *index.Dense
	sparse      *index.Sparse
	highlighter *Highlighter
	cfg         Config
}

// NewRetriever composes the indexes of corpus. embedder drives the
// semantic highlighting pass and may be nil. Zero K and snippet length
// fields take the defaults; alpha, floor and highlight threshold are used
// as given.
func NewRetriever(corpus *store.Corpus, dense *index.Dense, sparse *index.Sparse, embedder embed.Embedder, cfg Config) (*Retriever, error) {
	cfg = withDefaults(cfg)
	if err := ValidateAlpha(cfg.Alpha); err != nil {
		return nil, err
	}
	return &Retriever{
		corpus:      corpus,
		dense:       dense,
		sparse:      sparse,
		highlighter: NewHighlighter(embedder, cfg.Highlight),
		cfg:         cfg,
	}, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = def.DefaultK
	}
	if cfg.MaxK <= 0 {
		cfg.MaxK = def.MaxK
	}
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = def.SnippetLength
	}
	if cfg.SparseNormalization == "" {
		cfg.SparseNormalization = def.SparseNormalization
	}
	return cfg
}

// Len returns the number of searchable chunks. A nil retriever is inert.
func (r *Retriever) Len() int {
	if r == nil {
		return 0
	}
	return r.corpus.Len()
}

// Config returns the effective configuration.
func (r *Retriever) Config() Config { return r.cfg }

// Search runs the dense and sparse lookups concurrently, fuses their
// scores, drops candidates under the relevance floor, and returns the top
// K chunks with highlighted snippets.
//
// An empty query or corpus gives an empty response. If one backend fails
// its scores count as 0 and the response is marked degraded; if both fail
// the search fails. Exceeding the configured timeout fails the search.
func (r *Retriever) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	start := time.Now()
	query = strings.TrimSpace(query)

	resp := &Response{Query: query, Results: []Result{}}
	if r == nil {
		return resp, nil
	}

	resp.K = r.resolveK(opts.K)
	resp.Alpha = r.cfg.Alpha
	if opts.Alpha != nil {
		resp.Alpha = *opts.Alpha
	}
	if err := ValidateAlpha(resp.Alpha); err != nil {
		return nil, err
	}

	if query == "" || r.Len() == 0 {
		resp.Duration = time.Since(start)
		return resp, nil
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	dense, sparse, degraded, err := r.score(ctx, query)
	if err != nil {
		return nil, err
	}
	resp.Degraded = degraded

	if r.cfg.SparseNormalization == NormalizationMax {
		sparse = NormalizeMax(sparse)
	}

	var include func(int) bool
	if opts.Category != "" {
		include = func(i int) bool {
			return strings.EqualFold(r.corpus.At(i).Category, opts.Category)
		}
	}

	candidates := ApplyFloor(dense, sparse, resp.Alpha, r.cfg.RelevanceFloor, include)
	resp.Candidates = len(candidates)

	if opts.Debug {
		resp.Diagnostics = make([]Diagnostic, len(candidates))
		for i, c := range candidates {
			snippet := ExtractSnippet(r.corpus.At(c.Position).Content, query, r.cfg.SnippetLength)
			resp.Diagnostics[i] = Diagnostic{
				Snippet: prefixRunes(snippet, DiagnosticSnippetLength),
				Sparse:  round4(c.Sparse),
				Dense:   round4(c.Dense),
				Hybrid:  round4(c.Hybrid),
			}
		}
	}

	if len(candidates) > resp.K {
		candidates = candidates[:resp.K]
	}
	for _, c := range candidates {
		chunk := r.corpus.At(c.Position)
		snippet := ExtractSnippet(chunk.Content, query, r.cfg.SnippetLength)
		chunk.Content = r.highlighter.Highlight(ctx, snippet, query)
		resp.Results = append(resp.Results, Result{
			Chunk:       chunk,
			Score:       c.Hybrid,
			DenseScore:  c.Dense,
			SparseScore: c.Sparse,
			Snippet:     snippet,
			Position:    c.Position,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, timeoutError(err)
	}

	resp.Duration = time.Since(start)
	slog.Debug("search_completed",
		slog.String("query", query),
		slog.Int("results", len(resp.Results)),
		slog.Int("candidates", resp.Candidates),
		slog.Float64("alpha", resp.Alpha),
		slog.Duration("duration", resp.Duration))
	return resp, nil
}

// score returns dense and sparse scores for every chunk. A failing backend
// is replaced by zeros and named in degraded.
func (r *Retriever) score(ctx context.Context, query string) (dense, sparse []float64, degraded string, err error) {
	tokens := store.Tokenize(query)
	n := r.Len()

	g, gctx := errgroup.WithContext(ctx)
	var denseErr, sparseErr error

	g.Go(func() error {
		if r.dense == nil {
			denseErr = lexerrors.New(lexerrors.ErrCodeEmbeddingFailed, "dense index unavailable", nil)
			return nil
		}
		dense, denseErr = r.dense.ScoreAll(gctx, query)
		return nil
	})

	g.Go(func() error {
		if r.sparse == nil {
			sparseErr = lexerrors.New(lexerrors.ErrCodeSearchFailed, "sparse index unavailable", nil)
			return nil
		}
		sparse, sparseErr = r.sparse.ScoreAll(gctx, tokens)
		return nil
	})

	_ = g.Wait()
	if cerr := ctx.Err(); cerr != nil {
		return nil, nil, "", timeoutError(cerr)
	}

	switch {
	case denseErr != nil && sparseErr != nil:
		return nil, nil, "", lexerrors.New(lexerrors.ErrCodeSearchFailed,
			"dense and sparse retrieval both failed", errors.Join(denseErr, sparseErr))
	case denseErr != nil:
		logDegraded(BackendDense, denseErr)
		dense, degraded = make([]float64, n), BackendDense
	case sparseErr != nil:
		logDegraded(BackendSparse, sparseErr)
		sparse, degraded = make([]float64, n), BackendSparse
	}
	return dense, sparse, degraded, nil
}

// logDegraded logs a failed backend. Embedding outages and dimension
// mismatches are expected and logged as warnings, anything else as an error.
func logDegraded(backend string, err error) {
	level := slog.LevelError
	if lexerrors.IsRecoverable(err) {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "search_backend_degraded",
		slog.String("backend", backend),
		slog.String("code", lexerrors.GetCode(err)),
		slog.String("error", err.Error()))
}

func (r *Retriever) resolveK(k int) int {
	if k <= 0 {
		k = r.cfg.DefaultK
	}
	return max(1, min(k, r.cfg.MaxK))
}

func timeoutError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return lexerrors.New(lexerrors.ErrCodeNetworkTimeout, "search timed out", err)
	}
	return err
}

func prefixRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Close releases both indexes.
func (r *Retriever) Close() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.dense.Close(), r.sparse.Close())
}
