// Package stt defines the interface for Speech-to-Text adapters.
package stt

import (
	"context"
	"errors"
	"strings"

	"transcript-search-service/internal/service/segment"
)

// ErrEmptyTranscript is returned when the provider recognised no speech.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Transcript is the result of transcribing one audio file.
type Transcript struct {
	Text     string            `json:"text"`
	Language string            `json:"language"`
	Duration float64           `json:"duration"`
	Segments []segment.Segment `json:"segments"`
}

// Transcriber defines the interface for STT providers (Groq Whisper, Google, mock).
type Transcriber interface {
	// Transcribe recognises speech in the audio file at path.
	Transcribe(ctx context.Context, audioPath string) (*Transcript, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// Index validates the transcript and builds its segment index.
//
// A transcript with text but no segments becomes a single segment spanning
// [0, Duration]. A transcript without any text is ErrEmptyTranscript.
func (t *Transcript) Index() (*segment.Index, error) {
	if t == nil {
		return nil, ErrEmptyTranscript
	}

	segs := make([]segment.Segment, 0, len(t.Segments))
	hasText := false
	for _, s := range t.Segments {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text != "" {
			hasText = true
		}
		segs = append(segs, s)
	}

	text := strings.TrimSpace(t.Text)
	if !hasText {
		if text == "" {
			return nil, ErrEmptyTranscript
		}
		segs = []segment.Segment{{Start: 0, End: t.Duration, Text: text}}
	}
	return segment.NewIndex(segs)
}
