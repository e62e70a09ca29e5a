// Package treatment provides normalization and synonym resolution for
// free-form treatment names. Normalization is the correctness anchor of the
// matcher: case and whitespace variants of the same treatment must never
// produce different verdicts.
package treatment

import (
	"regexp"
	"strings"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Normalize canonicalizes a free-form treatment string: trims, collapses
// internal whitespace runs to a single space, and case-folds. The result is
// suitable as a lookup key; it is not a display string.
func Normalize(input string) string {
	s := strings.TrimSpace(input)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}

// Equal reports whether two treatment names denote the same treatment under
// normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// SynonymTable maps normalized synonym forms to canonical treatment names.
// Exact-match semantics remain the fallback of record: a name absent from the
// table resolves to itself, so behavior stays auditable with or without a
// table.
type SynonymTable struct {
	canonical map[string]string
}

// NewSynonymTable builds a table from synonym -> canonical name pairs.
// Synonym keys are normalized on insertion; canonical names are kept verbatim
// because they must match the knowledge base spelling.
func NewSynonymTable(pairs map[string]string) *SynonymTable {
	canonical := make(map[string]string, len(pairs))
	for synonym, name := range pairs {
		canonical[Normalize(synonym)] = name
	}
	return &SynonymTable{canonical: canonical}
}

// Resolve returns the canonical treatment name for the input, or the
// normalized input itself when no synonym is recorded. The second return
// reports whether a synonym mapping was applied.
func (t *SynonymTable) Resolve(input string) (string, bool) {
	normalized := Normalize(input)
	if t == nil {
		return normalized, false
	}
	if name, ok := t.canonical[normalized]; ok {
		return name, true
	}
	return normalized, false
}

// Len returns the number of synonym mappings in the table.
func (t *SynonymTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.canonical)
}

// DefaultSynonyms returns the built-in synonym table covering the common
// clinical shorthand seen in consultation submissions.
func DefaultSynonyms() *SynonymTable {
	return NewSynonymTable(map[string]string{
		"chemo":                     "Chemotherapy",
		"chemotherapy":              "Chemotherapy",
		"radiotherapy":              "Radiation Therapy",
		"radiation":                 "Radiation Therapy",
		"radiation therapy":         "Radiation Therapy",
		"sbrt":                      "Radiation Therapy",
		"surgical resection":        "Surgery",
		"resection":                 "Surgery",
		"surgery":                   "Surgery",
		"operation":                 "Surgery",
		"immune therapy":            "Immunotherapy",
		"immunotherapy":             "Immunotherapy",
		"targeted therapy":          "Targeted Therapy",
		"hormone therapy":           "Hormonal Therapy",
		"hormonal therapy":          "Hormonal Therapy",
		"endocrine therapy":         "Hormonal Therapy",
		"adt":                       "Hormonal Therapy",
		"watchful waiting":          "Active Surveillance",
		"observation":               "Active Surveillance",
		"active surveillance":       "Active Surveillance",
		"chemoradiation":            "Chemoradiation",
		"chemoradiotherapy":         "Chemoradiation",
		"concurrent chemoradiation": "Chemoradiation",
	})
}
