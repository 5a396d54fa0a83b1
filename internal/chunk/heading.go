package chunk

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/lexmind/internal/store"
)

// headingPattern matches a line opening a statutory or contractual section:
// "§ 5", "§§ 12", "Art. 3", "Ziff. 2", "Artikel 7".
var headingPattern = regexp.MustCompile(`^\s*(§{1,2}\s*\d+|Art\.?\s*\d+|Ziff\.?\s*\d+|Artikel\s+\d+)`)

// IsHeading reports whether line opens a new section.
func IsHeading(line string) bool {
	return headingPattern.MatchString(line)
}

// SplitByHeading splits text at heading lines. Text before the first
// heading becomes a section with heading store.NoHeading. Sections with
// empty content are dropped.
func SplitByHeading(text string) []Section {
	var (
		sections []Section
		heading  = store.NoHeading
		body     strings.Builder
	)
	flush := func() {
		if content := strings.TrimSpace(body.String()); content != "" {
			sections = append(sections, Section{Heading: heading, Content: content})
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if IsHeading(line) {
			flush()
			heading = strings.TrimSpace(line)
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()
	return sections
}

// HeadingChunkerOptions configures the heading chunker.
type HeadingChunkerOptions struct {
	// MaxChunkRunes splits longer sections at blank lines (DefaultMaxChunkRunes when 0).
	MaxChunkRunes int
}

// HeadingChunker splits each page at headings and assigns categories.
type HeadingChunker struct {
	options HeadingChunkerOptions
}

// NewHeadingChunker creates a heading chunker with default options.
func NewHeadingChunker() *HeadingChunker {
	return NewHeadingChunkerWithOptions(HeadingChunkerOptions{})
}

// NewHeadingChunkerWithOptions creates a heading chunker with custom options.
func NewHeadingChunkerWithOptions(opts HeadingChunkerOptions) *HeadingChunker {
	if opts.MaxChunkRunes <= 0 {
		opts.MaxChunkRunes = DefaultMaxChunkRunes
	}
	return &HeadingChunker{options: opts}
}

// Chunk returns the chunks of doc in page and section order.
func (c *HeadingChunker) Chunk(ctx context.Context, doc *Document) ([]store.Chunk, error) {
	var chunks []store.Chunk
	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, sec := range SplitByHeading(page.Text) {
			for _, part := range c.splitLarge(sec.Content) {
				chunks = append(chunks, store.Chunk{
					ID:       store.ChunkID(doc.Source, page.Number, sec.Heading, part),
					Content:  part,
					Source:   doc.Source,
					Page:     page.Number,
					Heading:  sec.Heading,
					Category: AssignCategory(part),
				})
			}
		}
	}
	return chunks, nil
}

// splitLarge packs paragraphs into parts of at most MaxChunkRunes. A single
// paragraph longer than the limit stays whole.
func (c *HeadingChunker) splitLarge(content string) []string {
	if utf8.RuneCountInString(content) <= c.options.MaxChunkRunes {
		return []string{content}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		n := utf8.RuneCountInString(para)
		if curLen > 0 && curLen+2+n > c.options.MaxChunkRunes {
			parts = append(parts, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteString("\n\n")
			curLen += 2
		}
		cur.WriteString(para)
		curLen += n
	}
	if curLen > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

var _ Chunker = (*HeadingChunker)(nil)
