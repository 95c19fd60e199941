package translate

import (
	"sort"
	"strings"
)

// DefaultLanguages maps lowercase language names to the provider codes used by
// the Indic NMT endpoint.
var DefaultLanguages = map[string]string{
	"assamese":         "as",
	"bengali":          "bn",
	"english":          "en",
	"gujarati":         "gu",
	"hindi":            "hi",
	"kannada":          "kn",
	"malayalam":        "ml",
	"marathi":          "mr",
	"odia":             "or",
	"punjabi":          "pa",
	"tamil":            "ta",
	"telugu":           "te",
	"dogri":            "doi",
	"maithili":         "mai",
	"santali":          "sat",
	"bodo":             "brx",
	"sanskrit":         "sa",
	"nepali":           "ne",
	"manipuri":         "mni",
	"konkani":          "kok",
	"kashmiri":         "ks",
	"kashmiri(arabic)": "kas-IN",
	"urdu":             "ur",
}

// LanguageTable resolves human-readable language names to provider codes.
// It is read-only after construction and safe for concurrent use.
type LanguageTable struct {
	codes map[string]string
}

// NewLanguageTable creates a table from name -> code pairs.
// Names are normalized to lowercase; the input map is copied.
func NewLanguageTable(entries map[string]string) *LanguageTable {
	codes := make(map[string]string, len(entries))
	for name, code := range entries {
		codes[strings.ToLower(strings.TrimSpace(name))] = code
	}
	return &LanguageTable{codes: codes}
}

// NewDefaultLanguageTable returns the built-in table.
func NewDefaultLanguageTable() *LanguageTable {
	return NewLanguageTable(DefaultLanguages)
}

// Lookup converts a language name to its provider code.
// Matching is case-insensitive. Examples:
//   - "Hindi" -> "hi"
//   - "KASHMIRI(ARABIC)" -> "kas-IN"
func (t *LanguageTable) Lookup(name string) (string, bool) {
	code, ok := t.codes[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// Names returns every known language name, sorted.
func (t *LanguageTable) Names() []string {
	names := make([]string, 0, len(t.codes))
	for name := range t.codes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Codes returns the distinct provider codes, sorted.
func (t *LanguageTable) Codes() []string {
	seen := make(map[string]struct{}, len(t.codes))
	codes := make([]string, 0, len(t.codes))
	for _, code := range t.codes {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
