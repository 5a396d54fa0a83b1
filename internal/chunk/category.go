package chunk

import (
	"strings"

	"github.com/Aman-CERP/lexmind/internal/store"
)

// Category labels.
const (
	CategoryContracts = "Verträge"
	CategoryDeeds     = "Urkunden"
	CategoryLawsuits  = "Klagen"
)

type categoryRule struct {
	label    string
	keywords []string
}

// categoryRules are checked in order; the first label with a keyword
// occurring in the lowercased text wins.
var categoryRules = []categoryRule{
	{CategoryContracts, []string{
		"vertrag", "klausel", "vereinbarung", "vereinbart", "vereinigen", "konditionen",
		"vertragsdauer", "laufzeit", "kündigungsfrist", "kündigung", "parteien", "schuldner",
		"vertragsgegenstand", "vertragsstrafe", "zahlungspflicht", "gesellschafter",
		"gesellschaftervertrag", "gesellschafterbindungsvertrag", "bindung", "bindungsklausel",
		"aktionsplan", "optionsvertrag", "darlehen", "leasing", "lizenz", "miete", "kaufvertrag",
		"lieferung", "liefervertrag", "dienstleistung", "consultingvertrag", "rahmenvertrag",
		"arbeitsvertrag", "werkvertrag", "auftrag", "vertragspartner", "abrede",
	}},
	{CategoryDeeds, []string{
		"urkunde", "notar", "notariell", "beglaubigung", "beurkundung", "öffentlich",
		"gründung", "gründungsurkunde", "gründungsvertrag", "gesellschaftsgründung",
		"register", "handelsregister", "registereintrag", "eintragung",
		"statuten", "satzung", "gesellschafterliste", "geschäftsanteil", "übertragung",
		"abtretung", "anteilsübertragung", "registergericht", "protokoll", "notariat",
	}},
	{CategoryLawsuits, []string{
		"klage", "klagen", "gericht", "gerichtsurteil", "prozess", "rechtsstreit", "streitfall",
		"rechtsstreitigkeit", "anwalt", "forderung", "gerichtsbeschluss", "verfahren",
	}},
}

// AssignCategory returns the label of the first category with a keyword
// contained in text, or store.DefaultCategory.
func AssignCategory(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return store.DefaultCategory
}

// Categories lists every label, the fallback last.
func Categories() []string {
	out := make([]string, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		out = append(out, rule.label)
	}
	return append(out, store.DefaultCategory)
}

// Keywords returns a copy of the keyword list of label.
func Keywords(label string) []string {
	for _, rule := range categoryRules {
		if rule.label == label {
			return append([]string(nil), rule.keywords...)
		}
	}
	return nil
}
