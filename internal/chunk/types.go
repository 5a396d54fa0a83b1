// Package chunk splits legal documents into heading-delimited chunks and
// tags each chunk with a keyword category.
package chunk

import (
	"context"

	"github.com/Aman-CERP/lexmind/internal/store"
)

// DefaultMaxChunkRunes bounds a chunk; longer sections are split at
// paragraph breaks.
const DefaultMaxChunkRunes = 6000

// Page is the text of one page. Number is 1-based, or 0 for formats
// without pages.
type Page struct {
	Number int
	Text   string
}

// Document is an extracted source file.
type Document struct {
	// Source is the file name the chunks refer back to.
	Source string
	Pages  []Page
}

// Section is a heading and the text that follows it up to the next heading.
type Section struct {
	Heading string
	Content string
}

// Chunker turns a document into corpus chunks.
type Chunker interface {
	Chunk(ctx context.Context, doc *Document) ([]store.Chunk, error)
}
