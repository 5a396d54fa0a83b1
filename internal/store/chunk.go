// Package store holds the corpus model and the index backends behind
// retrieval: the German tokenizer, sparse BM25 indexes (in-memory Okapi,
// SQLite FTS5, Bleve) and vector indexes (exact flat scan, HNSW graph).
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

// NoHeading marks a chunk that precedes the first heading of its document.
const NoHeading = "none"

// DefaultCategory is assigned when no category keyword matches.
const DefaultCategory = "Other"

// Chunk is one retrievable unit of a legal document.
type Chunk struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	Page     int    `json:"page,omitempty"` // 1-based; 0 when the format has no pages
	Heading  string `json:"heading"`
	Category string `json:"category"`
}

// ChunkID derives a stable identifier from a chunk's provenance and content.
func ChunkID(source string, page int, heading, content string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(page)))
	h.Write([]byte{0})
	h.Write([]byte(heading))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Corpus is an ordered, read-only collection of chunks. Positions are the
// join key between the dense and sparse indexes.
type Corpus struct {
	chunks []Chunk
}

// NewCorpus validates chunks and returns a corpus over a private copy.
// Missing IDs, headings and categories are filled in.
func NewCorpus(chunks []Chunk) (*Corpus, error) {
	out := make([]Chunk, len(chunks))
	for i, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			return nil, lexerrors.ValidationError(
				fmt.Sprintf("chunk %d from %q has empty content", i, c.Source), nil)
		}
		if c.Heading == "" {
			c.Heading = NoHeading
		}
		if c.Category == "" {
			c.Category = DefaultCategory
		}
		if c.ID == "" {
			c.ID = ChunkID(c.Source, c.Page, c.Heading, c.Content)
		}
		out[i] = c
	}
	return &Corpus{chunks: out}, nil
}

// Len returns the number of chunks. A nil corpus is empty.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.chunks)
}

// At returns a copy of the chunk at position i.
func (c *Corpus) At(i int) Chunk {
	return c.chunks[i]
}

// Contents returns chunk texts in corpus order.
func (c *Corpus) Contents() []string {
	out := make([]string, c.Len())
	for i := range out {
		out[i] = c.chunks[i].Content
	}
	return out
}

// Sources returns the distinct source names in first-seen order.
func (c *Corpus) Sources() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < c.Len(); i++ {
		s := c.chunks[i].Source
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// CategoryCounts returns the number of chunks per category.
func (c *Corpus) CategoryCounts() map[string]int {
	out := make(map[string]int)
	for i := 0; i < c.Len(); i++ {
		out[c.chunks[i].Category]++
	}
	return out
}
