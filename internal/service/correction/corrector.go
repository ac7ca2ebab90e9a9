// Package correction realigns externally corrected transcript text onto the
// timing of a segment index.
//
// Two strategies are offered. The word-count split sends the whole transcript
// and redistributes the corrected tokens by the original per-segment word
// counts. The batched strategy sends consecutive segments joined by a
// separator and applies a batch only when the reply splits back into exactly
// as many pieces as were sent; any other reply leaves the batch untouched.
package correction

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCorrection is returned when the corrector replies with blank text.
var ErrEmptyCorrection = errors.New("corrector returned empty text")

// Request is the input handed to a Corrector.
type Request struct {
	// Text is the transcript fragment to correct.
	Text string
	// Separator, when set, appears Pieces-1 times in Text and must be kept
	// verbatim and in the same count in the reply.
	Separator string
	Pieces    int
}

// Corrector is the external correction collaborator (typically an LLM).
type Corrector interface {
	Correct(ctx context.Context, req Request) (string, error)
}

// CorrectorFunc adapts a function to the Corrector interface.
type CorrectorFunc func(ctx context.Context, req Request) (string, error)

// Correct calls f.
func (f CorrectorFunc) Correct(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Outcome is the result of one collaborator call. When OK is false, Text
// holds the original input and Err says why.
type Outcome struct {
	Text string
	OK   bool
	Err  error
}

// Attempt calls the corrector and folds every failure mode (error, panic,
// blank reply, cancelled context) into a failed Outcome carrying the input.
func Attempt(ctx context.Context, c Corrector, req Request) (out Outcome) {
	fallback := Outcome{Text: req.Text}

	if err := ctx.Err(); err != nil {
		fallback.Err = err
		return fallback
	}

	defer func() {
		if r := recover(); r != nil {
			fallback.Err = fmt.Errorf("corrector panicked: %v", r)
			out = fallback
		}
	}()

	text, err := c.Correct(ctx, req)
	if err != nil {
		fallback.Err = err
		return fallback
	}
	if strings.TrimSpace(text) == "" {
		fallback.Err = ErrEmptyCorrection
		return fallback
	}
	return Outcome{Text: text, OK: true}
}
