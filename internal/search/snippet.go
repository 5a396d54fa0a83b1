package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Aman-CERP/lexmind/internal/store"
)

// Ellipsis is appended to truncated snippets.
const Ellipsis = "…"

// DefaultSnippetLength is the snippet length in runes.
const DefaultSnippetLength = 300

// SplitSentences splits text after '.', '!' or '?' followed by whitespace.
// The whitespace between sentences is dropped. Text without a boundary is
// a single sentence.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next >= len(text) {
			break
		}
		nr, _ := utf8.DecodeRuneInString(text[next:])
		if !unicode.IsSpace(nr) {
			continue
		}
		if s := strings.TrimSpace(text[start:next]); s != "" {
			sentences = append(sentences, s)
		}
		start = next
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// ExtractSnippet returns the sentence of text sharing the most word
// occurrences with the query's tokens, the first such sentence on ties,
// truncated to maxLen runes plus an ellipsis. maxLen <= 0 uses
// DefaultSnippetLength.
func ExtractSnippet(text, query string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSnippetLength
	}
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return ""
	}

	queryTokens := store.TokenSet(query)
	best, bestScore := 0, -1
	for i, s := range sentences {
		score := 0
		for _, w := range store.Words(s) {
			if _, ok := queryTokens[w.Lower]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return truncateRunes(sentences[best], maxLen)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + Ellipsis
}
