// Package segment provides the validated, ordered sequence of time-coded
// transcript segments produced by an ASR collaborator.
package segment

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Errors for segments that violate the timing invariants.
var (
	ErrNegativeStart  = errors.New("segment start is negative")
	ErrEndBeforeStart = errors.New("segment end is before start")
	ErrOutOfOrder     = errors.New("segment starts before the previous segment")
	ErrInvalidTime    = errors.New("segment time is not a finite number")
	ErrLengthMismatch = errors.New("text count does not match segment count")
)

// Segment is one ASR-produced time slice.
type Segment struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Text  string  `json:"text" yaml:"text"`
}

// Duration returns End-Start in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Index is an immutable, chronologically ordered sequence of segments.
//
// Invariants, checked by NewIndex:
//   - Start >= 0 and End >= Start for every segment
//   - segments[i].Start <= segments[i+1].Start
//
// An Index is never mutated after construction. Corrections produce a new
// Index through WithTexts, which keeps every (Start, End) pair untouched.
type Index struct {
	segments []Segment
}

// NewIndex validates segs and returns an Index holding a private copy.
func NewIndex(segs []Segment) (*Index, error) {
	owned := make([]Segment, len(segs))
	for i, s := range segs {
		if err := validate(i, s); err != nil {
			return nil, err
		}
		if i > 0 && s.Start < segs[i-1].Start {
			return nil, fmt.Errorf("segment %d: %w (%.3f < %.3f)", i, ErrOutOfOrder, s.Start, segs[i-1].Start)
		}
		owned[i] = s
	}
	return &Index{segments: owned}, nil
}

// MustIndex is NewIndex for fixtures known to be valid; it panics otherwise.
func MustIndex(segs []Segment) *Index {
	idx, err := NewIndex(segs)
	if err != nil {
		panic(err)
	}
	return idx
}

func validate(i int, s Segment) error {
	if math.IsNaN(s.Start) || math.IsInf(s.Start, 0) || math.IsNaN(s.End) || math.IsInf(s.End, 0) {
		return fmt.Errorf("segment %d: %w", i, ErrInvalidTime)
	}
	if s.Start < 0 {
		return fmt.Errorf("segment %d: %w (%.3f)", i, ErrNegativeStart, s.Start)
	}
	if s.End < s.Start {
		return fmt.Errorf("segment %d: %w (%.3f < %.3f)", i, ErrEndBeforeStart, s.End, s.Start)
	}
	return nil
}

// Len returns the number of segments. A nil Index is empty.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.segments)
}

// At returns the segment at position i.
func (x *Index) At(i int) Segment {
	return x.segments[i]
}

// Segments returns a copy of the segments.
func (x *Index) Segments() []Segment {
	if x == nil {
		return nil
	}
	out := make([]Segment, len(x.segments))
	copy(out, x.segments)
	return out
}

// Texts returns the text of every segment in order.
func (x *Index) Texts() []string {
	if x == nil {
		return nil
	}
	out := make([]string, len(x.segments))
	for i, s := range x.segments {
		out[i] = s.Text
	}
	return out
}

// JoinTexts joins the text of segments [from, to) with a single space,
// clamping the range to the index bounds. Empty texts are skipped.
func (x *Index) JoinTexts(from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > x.Len() {
		to = x.Len()
	}
	if from >= to {
		return ""
	}
	parts := make([]string, 0, to-from)
	for _, s := range x.segments[from:to] {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// FullText re-derives the transcript by joining every segment text with a
// single space.
func (x *Index) FullText() string {
	return x.JoinTexts(0, x.Len())
}

// WordCount returns the number of whitespace-delimited tokens across all
// segments.
func (x *Index) WordCount() int {
	n := 0
	for i := 0; i < x.Len(); i++ {
		n += len(strings.Fields(x.segments[i].Text))
	}
	return n
}

// Duration returns the end time of the last segment, or 0 for an empty index.
func (x *Index) Duration() float64 {
	if x.Len() == 0 {
		return 0
	}
	end := 0.0
	for _, s := range x.segments {
		if s.End > end {
			end = s.End
		}
	}
	return end
}

// WithTexts returns a new Index with the same timings and the given texts.
// len(texts) must equal Len().
func (x *Index) WithTexts(texts []string) (*Index, error) {
	if len(texts) != x.Len() {
		return nil, fmt.Errorf("%w: %d texts for %d segments", ErrLengthMismatch, len(texts), x.Len())
	}
	out := make([]Segment, len(texts))
	for i, t := range texts {
		out[i] = Segment{Start: x.segments[i].Start, End: x.segments[i].End, Text: t}
	}
	return &Index{segments: out}, nil
}
