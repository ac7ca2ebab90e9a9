// Package search finds a query inside a segment index, tolerating case,
// diacritics and small ASR misspellings, and returns ranked hits with their
// surrounding context and audio-seek timestamp.
package search

import (
	"math"
	"sort"
	"strings"

	"transcript-search-service/internal/service/fuzzy"
	"transcript-search-service/internal/service/segment"
	"transcript-search-service/internal/service/textnorm"
)

// ConfidenceTier is a coarse bucket summarizing match quality for display.
type ConfidenceTier string

const (
	TierExact    ConfidenceTier = "exact"
	TierProbable ConfidenceTier = "probable"
	TierSimilar  ConfidenceTier = "similar"
)

// ProbableThreshold is the lowest fuzzy score reported as TierProbable.
const ProbableThreshold = 0.85

// Defaults used when callers do not supply options.
const (
	DefaultContextWindow  = 1
	DefaultFuzzyThreshold = 0.7
)

// Result is one segment matching a query. It is derived and never persisted.
type Result struct {
	SegmentIndex     int            `json:"segmentIndex"`
	Timestamp        float64        `json:"timestamp"`
	End              float64        `json:"end"`
	MatchedText      string         `json:"matchedText"`
	PrecedingContext string         `json:"precedingContext"`
	FollowingContext string         `json:"followingContext"`
	Tier             ConfidenceTier `json:"confidenceTier"`
	Score            float64        `json:"score"`
}

// Options tune a single search.
type Options struct {
	// ContextWindow is the number of neighbouring segments joined on each side
	// of a hit. Negative values are treated as 0.
	ContextWindow int
	// FuzzyThreshold is the minimum similarity for a non-exact hit, clamped
	// to [0,1].
	FuzzyThreshold float64
}

// DefaultOptions returns the context window and threshold used when a caller
// sets neither.
func DefaultOptions() Options {
	return Options{
		ContextWindow:  DefaultContextWindow,
		FuzzyThreshold: DefaultFuzzyThreshold,
	}
}

// Engine scores segments against a query. The zero value is not usable;
// construct with New or NewWithMatcher.
//
// Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	matcher fuzzy.Matcher
}

// New returns an engine using the sequence-matcher similarity.
func New() *Engine {
	return &Engine{matcher: fuzzy.SequenceMatcher{}}
}

// NewWithMatcher returns an engine using a custom similarity function.
func NewWithMatcher(m fuzzy.Matcher) *Engine {
	return &Engine{matcher: m}
}

// Search returns every segment of idx matching query, ordered by descending
// score. Ties keep chronological order.
//
// An empty or whitespace-only query, or an empty index, yields an empty
// (non-nil) slice. Search never fails.
func (e *Engine) Search(query string, idx *segment.Index, opts Options) []Result {
	results := []Result{}

	normQuery := textnorm.Normalize(query)
	if normQuery == "" || idx.Len() == 0 {
		return results
	}

	window := min(max(opts.ContextWindow, 0), idx.Len())
	threshold := clamp01(opts.FuzzyThreshold)

	for i := 0; i < idx.Len(); i++ {
		seg := idx.At(i)

		isExact := strings.Contains(textnorm.Normalize(seg.Text), normQuery)
		score := 1.0
		if !isExact {
			score = e.matcher.Similarity(query, seg.Text)
		}
		if !isExact && score < threshold {
			continue
		}

		results = append(results, Result{
			SegmentIndex:     i,
			Timestamp:        seg.Start,
			End:              seg.End,
			MatchedText:      seg.Text,
			PrecedingContext: idx.JoinTexts(i-window, i),
			FollowingContext: idx.JoinTexts(i+1, i+window+1),
			Tier:             tierFor(isExact, score),
			Score:            score,
		})
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	return results
}

func tierFor(isExact bool, score float64) ConfidenceTier {
	switch {
	case isExact:
		return TierExact
	case score >= ProbableThreshold:
		return TierProbable
	default:
		return TierSimilar
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultFuzzyThreshold
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
