package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/lexmind/internal/embed"
	"github.com/Aman-CERP/lexmind/internal/store"
)

// Default highlight markers.
const (
	DefaultMarkOpen  = "<mark>"
	DefaultMarkClose = "</mark>"
)

// MinSemanticWordLength is the shortest word (in runes) compared by embedding.
const MinSemanticWordLength = 4

// HighlightConfig configures the highlighter.
type HighlightConfig struct {
	// Threshold is the cosine a word needs against the query embedding.
	Threshold float64
	MarkOpen  string
	MarkClose string
}

// DefaultHighlightConfig returns threshold 0.75 and <mark> markers.
func DefaultHighlightConfig() HighlightConfig {
	return HighlightConfig{Threshold: 0.75, MarkOpen: DefaultMarkOpen, MarkClose: DefaultMarkClose}
}

// Highlighter marks query terms, their legal synonyms and semantically
// close words in a snippet.
type Highlighter struct {
	embedder embed.Embedder
	cfg      HighlightConfig
	synonyms []SynonymCluster
}

// NewHighlighter returns a highlighter. A nil embedder disables the
// semantic pass.
func NewHighlighter(embedder embed.Embedder, cfg HighlightConfig) *Highlighter {
	def := DefaultHighlightConfig()
	if cfg.MarkOpen == "" {
		cfg.MarkOpen = def.MarkOpen
	}
	if cfg.MarkClose == "" {
		cfg.MarkClose = def.MarkClose
	}
	return &Highlighter{embedder: embedder, cfg: cfg, synonyms: LegalSynonyms}
}

type span struct {
	start, end int
}

// Highlight wraps every matched word or phrase of text in the configured
// markers. Matches never overlap: the earliest match wins, the longer one
// at equal start. Text already inside markers is left alone, so applying
// Highlight twice gives the same result. When the query or a word cannot
// be embedded, or dimensions disagree, text is returned unchanged.
func (h *Highlighter) Highlight(ctx context.Context, text, query string) string {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(query) == "" {
		return text
	}

	protected := h.markedRegions(text)
	words := make([]store.Word, 0)
	for _, w := range store.Words(text) {
		if !inside(protected, w.Start, w.End) {
			words = append(words, w)
		}
	}

	terms := store.TokenSet(query)
	var phrases [][]string
	for _, term := range ExpandSynonyms(query, h.synonyms) {
		parts := store.Words(term)
		if len(parts) == 1 {
			terms[parts[0].Lower] = struct{}{}
			continue
		}
		phrase := make([]string, len(parts))
		for i, p := range parts {
			phrase[i] = p.Lower
		}
		phrases = append(phrases, phrase)
	}

	if h.embedder != nil {
		similar, ok := h.semanticMatches(ctx, words, terms, query)
		if !ok {
			return text
		}
		for w := range similar {
			terms[w] = struct{}{}
		}
	}

	var spans []span
	for i, w := range words {
		if _, ok := terms[w.Lower]; ok {
			spans = append(spans, span{w.Start, w.End})
		}
		for _, phrase := range phrases {
			if end, ok := matchPhrase(words, i, phrase, text); ok {
				spans = append(spans, span{w.Start, end})
			}
		}
	}
	return h.wrap(text, selectSpans(spans))
}

// semanticMatches returns the candidate words whose embedding reaches the
// threshold. ok is false when embedding failed.
func (h *Highlighter) semanticMatches(ctx context.Context, words []store.Word, lexical map[string]struct{}, query string) (map[string]struct{}, bool) {
	seen := make(map[string]struct{})
	var candidates []string
	for _, w := range words {
		if utf8.RuneCountInString(w.Lower) < MinSemanticWordLength || store.IsStopWord(w.Lower) {
			continue
		}
		if _, ok := lexical[w.Lower]; ok {
			continue
		}
		if _, ok := seen[w.Lower]; ok {
			continue
		}
		seen[w.Lower] = struct{}{}
		candidates = append(candidates, w.Lower)
	}
	if len(candidates) == 0 {
		return nil, true
	}

	vecs, err := h.embedder.EmbedBatch(ctx, append([]string{query}, candidates...))
	if err != nil || len(vecs) != len(candidates)+1 {
		msg := "short batch"
		if err != nil {
			msg = err.Error()
		}
		slog.Warn("highlight_embedding_failed", slog.String("error", msg))
		return nil, false
	}

	q := vecs[0]
	out := make(map[string]struct{})
	for i, word := range candidates {
		v := vecs[i+1]
		if len(v) != len(q) {
			slog.Warn("highlight_dimension_mismatch",
				slog.Int("query", len(q)),
				slog.Int("word", len(v)))
			return nil, false
		}
		if store.Cosine(q, v) >= h.cfg.Threshold {
			out[word] = struct{}{}
		}
	}
	return out, true
}

// matchPhrase reports whether phrase starts at words[i] with only
// whitespace between its words, returning the end offset.
func matchPhrase(words []store.Word, i int, phrase []string, text string) (int, bool) {
	if i+len(phrase) > len(words) {
		return 0, false
	}
	for j, p := range phrase {
		w := words[i+j]
		if w.Lower != p {
			return 0, false
		}
		if j > 0 && strings.TrimSpace(text[words[i+j-1].End:w.Start]) != "" {
			return 0, false
		}
	}
	return words[i+len(phrase)-1].End, true
}

// selectSpans keeps non-overlapping spans, earliest start first and the
// longest one on equal starts.
func selectSpans(spans []span) []span {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})
	out := make([]span, 0, len(spans))
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		out = append(out, s)
		lastEnd = s.end
	}
	return out
}

func (h *Highlighter) wrap(text string, spans []span) string {
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(h.cfg.MarkOpen)+len(h.cfg.MarkClose)))
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s.start])
		b.WriteString(h.cfg.MarkOpen)
		b.WriteString(text[s.start:s.end])
		b.WriteString(h.cfg.MarkClose)
		prev = s.end
	}
	b.WriteString(text[prev:])
	return b.String()
}

// markedRegions returns the byte ranges of text enclosed in markers,
// markers included.
func (h *Highlighter) markedRegions(text string) []span {
	var out []span
	offset := 0
	for {
		open := strings.Index(text[offset:], h.cfg.MarkOpen)
		if open < 0 {
			return out
		}
		start := offset + open
		closeIdx := strings.Index(text[start+len(h.cfg.MarkOpen):], h.cfg.MarkClose)
		if closeIdx < 0 {
			return append(out, span{start, len(text)})
		}
		end := start + len(h.cfg.MarkOpen) + closeIdx + len(h.cfg.MarkClose)
		out = append(out, span{start, end})
		offset = end
	}
}

func inside(regions []span, start, end int) bool {
	for _, r := range regions {
		if start < r.end && end > r.start {
			return true
		}
	}
	return false
}
