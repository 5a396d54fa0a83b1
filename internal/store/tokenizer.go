package store

import (
	"regexp"
	"strings"
)

// wordRegex matches runs of letters, combining marks, digits and underscores.
var wordRegex = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// GermanStopWords are function words dropped before indexing and query
// matching. Lowercase.
var GermanStopWords = []string{
	"ein", "eine", "einer", "eines", "einem", "einen",
	"der", "die", "das", "den", "dem", "des",
	"und", "oder", "aber", "für", "mit", "in", "im", "auf", "an", "am",
	"aus", "bei", "von", "vom", "zu", "zum", "zur", "als",
	"ist", "sind", "es", "dass", "welche", "dies", "diese", "dieser", "dieses",
	"etc", "sofern", "wenn", "wie", "auch", "sich", "nicht",
}

var stopWords = BuildStopWordMap(GermanStopWords)

// Word is a word occurrence with its byte span in the source text.
type Word struct {
	Text  string // as written
	Lower string
	Start int
	End   int
}

// Tokenize lowercases text, splits it into words and drops stop words.
// No stemming is applied.
func Tokenize(text string) []string {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopWords[w]; !stop {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// Words returns every word of text with its position, stop words included.
func Words(text string) []Word {
	spans := wordRegex.FindAllStringIndex(text, -1)
	words := make([]Word, 0, len(spans))
	for _, s := range spans {
		w := text[s[0]:s[1]]
		words = append(words, Word{Text: w, Lower: strings.ToLower(w), Start: s[0], End: s[1]})
	}
	return words
}

// IsStopWord reports whether the lowercased word is a stop word.
func IsStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// BuildStopWordMap converts a word list to a lowercase lookup set.
func BuildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}
