package constants

import "strings"

// SummaryNotApplicable is the sentinel the map prompt asks the model to emit
// for irrelevant chunks (index pages, blank pages). A chunk summary containing
// it is dropped at aggregation.
const SummaryNotApplicable = "N/A"

// SummarySeparator joins surviving chunk summaries, strictly in chunk order.
const SummarySeparator = "\n\n--- NOVO SUMÁRIO ---\n\n"

// placeholderValues are model filler strings that must never overwrite
// known-good data during a merge. Compared upper-cased and trimmed.
var placeholderValues = map[string]struct{}{
	"N/A":              {},
	"NA":               {},
	"NÃO ESPECIFICADO": {},
	"NAO ESPECIFICADO": {},
	"NÃO INFORMADO":    {},
	"NAO INFORMADO":    {},
	"NÃO CONSTA":       {},
	"NAO CONSTA":       {},
	"NOT SPECIFIED":    {},
	"NULL":             {},
	"NONE":             {},
	"-":                {},
}

// IsPlaceholder reports whether v is null, empty, or one of the known
// placeholder strings a model emits when it has nothing to say.
func IsPlaceholder(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return true
	}
	_, hit := placeholderValues[s]
	return hit
}

// ProcessFalsePositiveMarkers flag process-number values that are really
// generic legal citations (e.g. "Lei nº 9.514/1997"), not CVM process
// numbers. Tokens are compared accent-stripped and upper-cased, whole-word.
var ProcessFalsePositiveMarkers = []string{
	"LEI",
	"DECRETO",
	"CIRCULAR",
	"RESOLUCAO",
	"INSTRUCAO",
	"PORTARIA",
	"DELIBERACAO",
}
