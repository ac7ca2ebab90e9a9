package correction

import (
	"strings"
	"unicode/utf8"
)

// Batch defaults.
const (
	DefaultSeparator = "|||"
	DefaultBatchSize = 10
)

// DiscardReason explains why a batch kept its original text.
type DiscardReason string

const (
	ReasonNone              DiscardReason = ""
	ReasonCountMismatch     DiscardReason = "count_mismatch"
	ReasonEmptyPiece        DiscardReason = "empty_piece"
	ReasonSeparatorInSource DiscardReason = "separator_in_source"
	ReasonMangledSeparator  DiscardReason = "mangled_separator"
	ReasonCollaboratorError DiscardReason = "collaborator_error"
)

// BatchReport describes what happened to one batch.
type BatchReport struct {
	Batch   int           `json:"batch"`
	Batches int           `json:"batches"`
	From    int           `json:"from"`
	To      int           `json:"to"`
	Outcome BatchOutcome  `json:"outcome"`
	Reason  DiscardReason `json:"reason,omitempty"`
	Err     error         `json:"-"`
}

// Applied reports whether the corrected pieces were assigned.
func (r BatchReport) Applied() bool {
	return r.Outcome == BatchApplied
}

// JoinBatch joins texts with the separator surrounded by single spaces.
func JoinBatch(texts []string, sep string) string {
	return strings.Join(texts, " "+sep+" ")
}

// SplitReply splits a corrector reply on sep and trims every piece.
func SplitReply(reply, sep string) []string {
	pieces := strings.Split(reply, sep)
	for i, p := range pieces {
		pieces[i] = strings.TrimSpace(p)
	}
	return pieces
}

// containsSeparator reports whether any original text already holds sep, in
// which case a split could never be trusted.
func containsSeparator(texts []string, sep string) bool {
	for _, t := range texts {
		if strings.Contains(t, sep) {
			return true
		}
	}
	return false
}

// ApplyReply maps a corrector reply back onto the batch texts. The reply is
// accepted only if it splits into exactly len(originals) pieces, no piece is
// blank where the original was not, and no piece carries leftovers of a
// mangled separator ("A |||| B" splits into "A" and "| B"). Otherwise the
// originals are returned unchanged with the reason.
func ApplyReply(originals []string, reply, sep string) ([]string, DiscardReason) {
	pieces := SplitReply(reply, sep)
	if len(pieces) != len(originals) {
		return originals, ReasonCountMismatch
	}
	for i, p := range pieces {
		original := strings.TrimSpace(originals[i])
		if p == "" && original != "" {
			return originals, ReasonEmptyPiece
		}
		if separatorResidue(p, original, sep) {
			return originals, ReasonMangledSeparator
		}
	}
	return pieces, ReasonNone
}

// separatorResidue reports whether piece starts or ends with a rune of sep
// that the original text did not start or end with.
func separatorResidue(piece, original, sep string) bool {
	if piece == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(piece)
	last, _ := utf8.DecodeLastRuneInString(piece)
	if strings.ContainsRune(sep, first) && !strings.HasPrefix(original, string(first)) {
		return true
	}
	return strings.ContainsRune(sep, last) && !strings.HasSuffix(original, string(last))
}
