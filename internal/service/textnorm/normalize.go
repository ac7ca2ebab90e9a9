// Package textnorm provides locale-insensitive text normalization used for
// comparing transcript text against search queries.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text, strips diacritical marks and trims surrounding
// whitespace, so "Popayán" and " POPAYAN " compare equal.
//
// It never fails: text that cannot be transformed is returned lower-cased and
// trimmed. The result is only meant for comparison, never for display.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Lower-case first: some upper-case runes (e.g. U+0130) lower to a base
	// letter plus a combining mark, which must be stripped below.
	lowered := strings.ToLower(text)

	// transform.Chain keeps internal state and is not safe for reuse across
	// goroutines, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, lowered)
	if err != nil {
		return strings.TrimSpace(lowered)
	}
	return strings.TrimSpace(stripped)
}
