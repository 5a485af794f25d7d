// Package match implements best-effort matching of school and district
// names against NCES rosters: an inverted token index proposes
// candidates, and the harmonic mean of token-Jaccard and Levenshtein
// similarity scores them.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folder strips diacritics so "José Martí" tokenizes like "Jose Marti".
var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Tokenize lowercases, folds diacritics, and splits on non-letter
// runes, dropping empty tokens.
func Tokenize(s string) []string {
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	var tokens []string
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			tokens = append(tokens, sb.String())
			sb.Reset()
		}
	}
	for _, r := range strings.ToLower(folded) {
		if r >= 'a' && r <= 'z' {
			sb.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// StopWords are tokens too common in school and district names to
// discriminate candidates.
var StopWords = map[string]struct{}{
	"school":     {},
	"district":   {},
	"high":       {},
	"middle":     {},
	"elementary": {},
	"academy":    {},
	"charter":    {},
}
