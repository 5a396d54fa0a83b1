package search

import "strings"

// SynonymCluster is a set of terms naming the same legal concept. Terms may
// be phrases.
type SynonymCluster []string

// LegalSynonyms are the clusters the highlighter expands. Embedding models
// tend to miss this jargon, so a triggered cluster is marked regardless of
// similarity.
var LegalSynonyms = []SynonymCluster{
	{"Zession", "Abtretung", "Zessionserklärung"},
	{"Kapitalerhöhung", "Kapitalband", "Erhöhung des Aktienkapitals"},
	{"Dienstbarkeit", "Leitungsrecht", "Wegrecht"},
	{"Kaufrecht", "Vorkaufsrecht", "Vorhandrecht"},
	{"Vertragsstrafe", "Konventionalstrafe", "Pönale"},
	{"Gesellschaftsvertrag", "Statuten", "Satzung"},
	{"Bürgschaft", "Bürgschaftserklärung", "Solidarbürgschaft"},
}

// ExpandSynonyms returns the lowercased terms of every cluster with a term
// that occurs as a substring of the lowercased query, in table order.
func ExpandSynonyms(query string, clusters []SynonymCluster) []string {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return nil
	}
	var out []string
	for _, cluster := range clusters {
		triggered := false
		for _, term := range cluster {
			if strings.Contains(q, strings.ToLower(term)) {
				triggered = true
				break
			}
		}
		if !triggered {
			continue
		}
		for _, term := range cluster {
			out = append(out, strings.ToLower(term))
		}
	}
	return out
}
