// Package normalize produces the comparison key used by every lookup in the
// resolution pipeline. Two names are considered the same iff their keys are
// equal.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key canonicalizes free text into a comparison key: uppercase, diacritics
// stripped, everything outside [A-Z0-9 ] removed, whitespace collapsed.
// It is pure and total; empty or whitespace-only input yields "".
func Key(text string) string {
	decomposed, _, err := transform.String(stripMarks, text)
	if err != nil {
		// Strip failures fall back to the raw text; the filter below still
		// guarantees the output alphabet.
		decomposed = text
	}

	upper := strings.ToUpper(decomposed)

	var b strings.Builder
	b.Grow(len(upper))
	lastSpace := true
	for _, r := range upper {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// Tokens splits a normalized key into significant tokens of at least minLen
// characters. Used by the classifier when learning rules from corrections.
func Tokens(key string, minLen int) []string {
	var tokens []string
	for _, word := range strings.Fields(key) {
		if len(word) >= minLen {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
