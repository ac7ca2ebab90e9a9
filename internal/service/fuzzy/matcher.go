// Package fuzzy scores how closely a query resembles a piece of transcript text.
package fuzzy

import (
	"github.com/pmezard/go-difflib/difflib"

	"transcript-search-service/internal/service/textnorm"
)

// Similarity returns a ratio in [0,1] describing how similar candidate is to
// query once both are normalized.
//
// The ratio is 2*M/T where M is the number of runes in the longest matching
// blocks and T the total rune count of both strings. Matching blocks are found
// with the query as the first sequence, so the ratio is not guaranteed to be
// symmetric; callers must keep the (query, candidate) order.
//
// Two empty strings are identical (1.0); one empty string scores 0.
func Similarity(query, candidate string) float64 {
	a := splitRunes(textnorm.Normalize(query))
	b := splitRunes(textnorm.Normalize(candidate))

	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	return difflib.NewMatcher(a, b).Ratio()
}

// Matcher adapts Similarity to an interface so the search engine can be
// exercised with a different scoring function.
type Matcher interface {
	Similarity(query, candidate string) float64
}

// SequenceMatcher is the default Matcher backed by Similarity.
type SequenceMatcher struct{}

// Similarity implements Matcher.
func (SequenceMatcher) Similarity(query, candidate string) float64 {
	return Similarity(query, candidate)
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
