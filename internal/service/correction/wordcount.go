package correction

import (
	"strings"

	"transcript-search-service/internal/service/segment"
)

// WordCountReport describes a word-count realignment.
type WordCountReport struct {
	OriginalWords  int  `json:"originalWords"`
	CorrectedWords int  `json:"correctedWords"`
	Mismatched     bool `json:"mismatched"`
}

// AlignWordCount splits corrected into whitespace tokens and hands each
// segment, in order, as many tokens as its original text had words. Leftover
// tokens go to the last segment; once tokens run out, the remaining segments
// get empty text. Every token lands in exactly one segment.
//
// When the corrector merged or split words the per-segment boundaries drift.
// Mismatched in the report flags that case; it is not corrected here.
func AlignWordCount(idx *segment.Index, corrected string) (*segment.Index, WordCountReport) {
	tokens := strings.Fields(corrected)
	report := WordCountReport{
		OriginalWords:  idx.WordCount(),
		CorrectedWords: len(tokens),
	}
	report.Mismatched = report.OriginalWords != report.CorrectedWords

	n := idx.Len()
	if n == 0 {
		return idx, report
	}

	texts := make([]string, n)
	pos := 0
	for i := 0; i < n; i++ {
		take := len(strings.Fields(idx.At(i).Text))
		if i == n-1 {
			take = len(tokens) - pos
		}
		end := pos + take
		if end > len(tokens) {
			end = len(tokens)
		}
		texts[i] = strings.Join(tokens[pos:end], " ")
		pos = end
	}

	out, _ := idx.WithTexts(texts)
	return out, report
}
