package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// TokenListTokenizerName splits pre-tokenized, space-joined text.
	TokenListTokenizerName = "lexmind_token_list"

	// TokenListAnalyzerName is the default analyzer of the Bleve index.
	TokenListAnalyzerName = "lexmind_token_list_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(TokenListTokenizerName, tokenListTokenizerConstructor)
}

// BleveBM25Index scores documents with an in-memory Bleve index using the
// BM25 scoring model. Document IDs are corpus positions.
type BleveBM25Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	count  int
	closed bool
}

type bleveDocument struct {
	Content string `json:"content"`
}

// NewBleveBM25Index creates an empty in-memory index.
func NewBleveBM25Index() (*BleveBM25Index, error) {
	m, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &BleveBM25Index{index: idx}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(TokenListAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": TokenListTokenizerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = TokenListAnalyzerName
	indexMapping.ScoringModel = "bm25"
	return indexMapping, nil
}

// Build replaces the index content. Bleve has no truncate, so a fresh
// in-memory index is swapped in.
func (b *BleveBM25Index) Build(ctx context.Context, docs [][]string) error {
	m, err := createIndexMapping()
	if err != nil {
		return err
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	batch := idx.NewBatch()
	for i, tokens := range docs {
		if err := ctx.Err(); err != nil {
			_ = idx.Close()
			return err
		}
		if err := batch.Index(strconv.Itoa(i), bleveDocument{Content: strings.Join(tokens, " ")}); err != nil {
			_ = idx.Close()
			return fmt.Errorf("failed to index document %d: %w", i, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("failed to execute batch: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		_ = idx.Close()
		return fmt.Errorf("index is closed")
	}
	old := b.index
	b.index = idx
	b.count = len(docs)
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// ScoreAll runs a disjunctive match query over the tokens.
func (b *BleveBM25Index) ScoreAll(ctx context.Context, query []string) ([]float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	scores := make([]float64, b.count)
	text := strings.TrimSpace(strings.Join(query, " "))
	if text == "" || b.count == 0 {
		return scores, nil
	}

	matchQuery := bleve.NewMatchQuery(text)
	matchQuery.SetField("content")
	req := bleve.NewSearchRequest(matchQuery)
	req.Size = b.count

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	for _, hit := range result.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil || pos < 0 || pos >= b.count {
			continue
		}
		scores[pos] = hit.Score
	}
	return scores, nil
}

// Len returns the number of indexed documents.
func (b *BleveBM25Index) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Close closes the index.
func (b *BleveBM25Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

var _ SparseIndex = (*BleveBM25Index)(nil)

func tokenListTokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &tokenListTokenizer{}, nil
}

// tokenListTokenizer emits one token per space-separated field.
type tokenListTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *tokenListTokenizer) Tokenize(input []byte) analysis.TokenStream {
	stream := make(analysis.TokenStream, 0, 16)
	pos := 1
	start := -1
	for i := 0; i <= len(input); i++ {
		if i < len(input) && input[i] != ' ' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			stream = append(stream, &analysis.Token{
				Term:     append([]byte(nil), input[start:i]...),
				Start:    start,
				End:      i,
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
			start = -1
		}
	}
	return stream
}
