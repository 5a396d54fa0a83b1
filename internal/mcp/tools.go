package mcp

import (
	"time"

	"github.com/Aman-CERP/lexmind/internal/search"
	"github.com/Aman-CERP/lexmind/internal/session"
)

// SearchInput is the input schema of the search tool.
type SearchInput struct {
	Query    string   `json:"query" jsonschema:"the legal search query, e.g. Kündigungsfrist Mietvertrag"`
	K        int      `json:"k,omitempty" jsonschema:"number of results, default from config, capped at max_k"`
	Alpha    *float64 `json:"alpha,omitempty" jsonschema:"dense weight between 0 (keywords only) and 1 (semantic only)"`
	Category string   `json:"category,omitempty" jsonschema:"restrict to a category: Verträge, Urkunden, Klagen, Other"`
	Debug    bool     `json:"debug,omitempty" jsonschema:"include per-candidate dense, sparse and hybrid scores"`
}

// SearchOutput is the output schema of the search tool.
type SearchOutput struct {
	Query       string               `json:"query"`
	K           int                  `json:"k"`
	Alpha       float64              `json:"alpha"`
	Results     []SearchResultOutput `json:"results"`
	Diagnostics []search.Diagnostic  `json:"diagnostics,omitempty"`
	Degraded    string               `json:"degraded,omitempty" jsonschema:"backend that failed and was scored as 0"`
	Notice      string               `json:"notice,omitempty"`
}

// SearchResultOutput is one ranked chunk.
type SearchResultOutput struct {
	Source      string  `json:"source" jsonschema:"file name of the original document"`
	Page        int     `json:"page,omitempty"`
	Heading     string  `json:"heading"`
	Category    string  `json:"category"`
	Snippet     string  `json:"snippet" jsonschema:"best sentence with <mark> highlights"`
	Score       float64 `json:"score"`
	DenseScore  float64 `json:"dense_score"`
	SparseScore float64 `json:"sparse_score"`
	ChunkID     string  `json:"chunk_id"`
}

// CorpusStatusInput is the (empty) input schema of corpus_status.
type CorpusStatusInput struct{}

// CorpusStatusOutput is the output schema of corpus_status.
type CorpusStatusOutput struct {
	CorpusPath    string         `json:"corpus_path"`
	Ready         bool           `json:"ready"`
	Generation    int            `json:"generation"`
	Chunks        int            `json:"chunks"`
	Sources       []string       `json:"sources"`
	Categories    map[string]int `json:"categories"`
	Skipped       []string       `json:"skipped,omitempty"`
	Model         string         `json:"model"`
	Dimensions    int            `json:"dimensions"`
	ZeroVectors   int            `json:"zero_vectors"`
	DenseBackend  string         `json:"dense_backend"`
	SparseBackend string         `json:"sparse_backend"`
	BuiltAt       string         `json:"built_at,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
	Version       string         `json:"version"`
}

// ToSearchOutput converts an engine response.
func ToSearchOutput(resp *search.Response) SearchOutput {
	out := SearchOutput{
		Query:       resp.Query,
		K:           resp.K,
		Alpha:       resp.Alpha,
		Results:     make([]SearchResultOutput, 0, len(resp.Results)),
		Diagnostics: resp.Diagnostics,
		Degraded:    resp.Degraded,
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, SearchResultOutput{
			Source:      r.Chunk.Source,
			Page:        r.Chunk.Page,
			Heading:     r.Chunk.Heading,
			Category:    r.Chunk.Category,
			Snippet:     r.Chunk.Content,
			Score:       r.Score,
			DenseScore:  r.DenseScore,
			SparseScore: r.SparseScore,
			ChunkID:     r.Chunk.ID,
		})
	}
	return out
}

// ToCorpusStatusOutput converts a session status.
func ToCorpusStatusOutput(st session.Status) CorpusStatusOutput {
	out := CorpusStatusOutput{
		CorpusPath:    st.CorpusPath,
		Ready:         !st.Inert,
		Generation:    st.Generation,
		Chunks:        st.Chunks,
		Sources:       st.Sources,
		Categories:    st.Categories,
		Model:         st.Model,
		Dimensions:    st.Dimensions,
		ZeroVectors:   st.ZeroVectors,
		DenseBackend:  st.DenseBackend,
		SparseBackend: st.SparseBackend,
		LastError:     st.LastError,
		Version:       st.Version,
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	for _, sk := range st.Skipped {
		out.Skipped = append(out.Skipped, sk.Name)
	}
	if !st.BuiltAt.IsZero() {
		out.BuiltAt = st.BuiltAt.Format(time.RFC3339)
	}
	return out
}
