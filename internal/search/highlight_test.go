package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func lexicalHighlighter() *Highlighter {
	return NewHighlighter(nil, DefaultHighlightConfig())
}

func TestHighlight_Lexical(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  string
	}{
		{
			name:  "query term",
			text:  "Die Kündigungsfrist beträgt drei Monate.",
			query: "Kündigungsfrist",
			want:  "Die <mark>Kündigungsfrist</mark> beträgt drei Monate.",
		},
		{
			name:  "case-insensitive whole words only",
			text:  "KÜNDIGUNGSFRIST und Kündigungsfristen",
			query: "kündigungsfrist",
			want:  "<mark>KÜNDIGUNGSFRIST</mark> und Kündigungsfristen",
		},
		{
			name:  "stop words in query are not marked",
			text:  "Der Notar und die Urkunde",
			query: "der Notar",
			want:  "Der <mark>Notar</mark> und die Urkunde",
		},
		{
			name:  "no match",
			text:  "Der Notar beglaubigt.",
			query: "Miete",
			want:  "Der Notar beglaubigt.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lexicalHighlighter().Highlight(context.Background(), tt.text, tt.query))
		})
	}
}

func TestHighlight_SynonymsWithoutSimilarity(t *testing.T) {
	// Given: an embedder under which no word is similar to anything
	h := NewHighlighter(&mapEmbedder{dims: 2}, DefaultHighlightConfig())

	// When: the query names one term of a synonym cluster
	got := h.Highlight(context.Background(), "Die Abtretung erfolgt durch Zession.", "Zession")

	// Then: both terms are marked
	assert.Equal(t, "Die <mark>Abtretung</mark> erfolgt durch <mark>Zession</mark>.", got)
}

func TestHighlight_SynonymPhrase(t *testing.T) {
	got := lexicalHighlighter().Highlight(context.Background(),
		"Der Beschluss über die Erhöhung des Aktienkapitals wurde gefasst.", "Kapitalerhöhung")
	assert.Equal(t, "Der Beschluss über die <mark>Erhöhung des Aktienkapitals</mark> wurde gefasst.", got)
}

func TestHighlight_LongestSpanWinsAtSameStart(t *testing.T) {
	got := lexicalHighlighter().Highlight(context.Background(),
		"Erhöhung des Aktienkapitals", "Kapitalerhöhung Erhöhung")
	assert.Equal(t, "<mark>Erhöhung des Aktienkapitals</mark>", got)
}

func TestHighlight_Semantic(t *testing.T) {
	emb := &mapEmbedder{dims: 2, vectors: map[string][]float32{
		"Kündigung":  {1, 0},
		"beendigung": {1, 0.1},
		"vertrags":   {0, 1},
	}}
	h := NewHighlighter(emb, DefaultHighlightConfig())

	got := h.Highlight(context.Background(), "Die Beendigung des Vertrags.", "Kündigung")
	assert.Equal(t, "Die <mark>Beendigung</mark> des Vertrags.", got)
}

func TestHighlight_EmbeddingFailureReturnsInput(t *testing.T) {
	h := NewHighlighter(&mapEmbedder{dims: 2, fail: true}, DefaultHighlightConfig())
	text := "Die Abtretung erfolgt durch Zession."
	assert.Equal(t, text, h.Highlight(context.Background(), text, "Zession"))
}

func TestHighlight_DimensionMismatchReturnsInput(t *testing.T) {
	emb := &mapEmbedder{dims: 2, vectors: map[string][]float32{
		"beendigung": {1, 0, 0},
	}}
	h := NewHighlighter(emb, DefaultHighlightConfig())
	text := "Die Beendigung des Vertrags."
	assert.Equal(t, text, h.Highlight(context.Background(), text, "Kündigung"))
}

func TestHighlight_Idempotent(t *testing.T) {
	h := NewHighlighter(&mapEmbedder{dims: 2}, DefaultHighlightConfig())
	ctx := context.Background()
	query := "Zession Kündigungsfrist"

	once := h.Highlight(ctx, "Zession und Abtretung; die Kündigungsfrist läuft.", query)
	twice := h.Highlight(ctx, once, query)

	assert.Equal(t, once, twice)
}

func TestHighlight_SkipsAlreadyMarkedText(t *testing.T) {
	got := lexicalHighlighter().Highlight(context.Background(), "<mark>Zession</mark> und Zession", "Zession")
	assert.Equal(t, "<mark>Zession</mark> und <mark>Zession</mark>", got)
}

func TestHighlight_CustomMarkers(t *testing.T) {
	h := NewHighlighter(nil, HighlightConfig{Threshold: 0.75, MarkOpen: "[[", MarkClose: "]]"})
	assert.Equal(t, "Der [[Notar]]", h.Highlight(context.Background(), "Der Notar", "Notar"))
}

func TestHighlight_ShortWordsAreNotEmbedded(t *testing.T) {
	emb := &mapEmbedder{dims: 2}
	h := NewHighlighter(emb, DefaultHighlightConfig())

	h.Highlight(context.Background(), "Das ist gut", "Notar")
	assert.Equal(t, 0, emb.calls)
}

func TestExpandSynonyms(t *testing.T) {
	assert.Equal(t, []string{"zession", "abtretung", "zessionserklärung"}, ExpandSynonyms("ABTRETUNG von Forderungen", LegalSynonyms))
	assert.Empty(t, ExpandSynonyms("Mietvertrag", LegalSynonyms))
	assert.Empty(t, ExpandSynonyms("  ", LegalSynonyms))
}
