// Package search implements hybrid retrieval over a legal corpus: dense
// cosine similarity and sparse BM25 are fused with a tunable weight,
// filtered by a relevance floor, and each hit is reduced to its best
// sentence with matching terms marked.
package search

import (
	"time"

	"github.com/Aman-CERP/lexmind/internal/config"
	"github.com/Aman-CERP/lexmind/internal/store"
)

// Sparse score normalisation modes.
const (
	NormalizationNone = "none"
	NormalizationMax  = "max"
)

// DiagnosticSnippetLength is the snippet prefix shown in diagnostic rows.
const DiagnosticSnippetLength = 100

// Config tunes the retriever.
type Config struct {
	Alpha               float64
	DefaultK            int
	MaxK                int
	RelevanceFloor      float64
	SnippetLength       int
	SparseNormalization string
	Timeout             time.Duration
	Highlight           HighlightConfig
}

// DefaultConfig returns alpha 0.5, k 3 (max 10), floor 0.2, 300-rune snippets.
func DefaultConfig() Config {
	return Config{
		Alpha:               0.5,
		DefaultK:            3,
		MaxK:                10,
		RelevanceFloor:      0.2,
		SnippetLength:       300,
		SparseNormalization: NormalizationNone,
		Timeout:             10 * time.Second,
		Highlight:           DefaultHighlightConfig(),
	}
}

// ConfigFrom maps the search section of the application config.
func ConfigFrom(cfg *config.Config) Config {
	s := cfg.Search
	return Config{
		Alpha:               s.Alpha,
		DefaultK:            s.DefaultK,
		MaxK:                s.MaxK,
		RelevanceFloor:      s.RelevanceFloor,
		SnippetLength:       s.SnippetLength,
		SparseNormalization: s.SparseNormalization,
		Timeout:             cfg.SearchTimeout(),
		Highlight: HighlightConfig{
			Threshold: s.HighlightThreshold,
			MarkOpen:  s.MarkOpen,
			MarkClose: s.MarkClose,
		},
	}
}

// Options configures one search call.
type Options struct {
	// K is the number of results (0 = config default, clamped to [1, MaxK]).
	K int

	// Alpha overrides the configured dense weight when non-nil.
	Alpha *float64

	// Debug fills Response.Diagnostics.
	Debug bool

	// Category restricts results to chunks with this category label.
	Category string
}

// Result is one ranked chunk. Chunk.Content holds the highlighted snippet;
// all other chunk metadata is preserved.
type Result struct {
	Chunk       store.Chunk `json:"chunk"`
	Score       float64     `json:"score"`
	DenseScore  float64     `json:"dense_score"`
	SparseScore float64     `json:"sparse_score"`
	Snippet     string      `json:"snippet"`
	Position    int         `json:"position"`
}

// Diagnostic is one row of the debug score table.
type Diagnostic struct {
	Snippet string  `json:"snippet"`
	Sparse  float64 `json:"sparse"`
	Dense   float64 `json:"dense"`
	Hybrid  float64 `json:"hybrid"`
}

// Response is the outcome of a search. It carries what a caller needs to
// write a search log entry.
type Response struct {
	Query       string        `json:"query"`
	K           int           `json:"k"`
	Alpha       float64       `json:"alpha"`
	Results     []Result      `json:"results"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
	Candidates  int           `json:"candidates"`
	Duration    time.Duration `json:"duration_ns"`

	// Degraded names the backend that failed and was scored as 0, if any.
	Degraded string `json:"degraded,omitempty"`
}
