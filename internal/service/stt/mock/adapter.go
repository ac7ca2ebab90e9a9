// Package mock provides a mock STT adapter for testing without cloud credentials.
// It returns a fixed Spanish transcript with realistic ASR defects: missing
// accents and a phonetically broken word.
package mock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"transcript-search-service/internal/service/segment"
	"transcript-search-service/internal/service/stt"
)

// DefaultSegments is the demo transcript returned by the mock adapter.
var DefaultSegments = []segment.Segment{
	{Start: 0.0, End: 2.4, Text: "buenos dias a todos y bienvenidos"},
	{Start: 2.4, End: 5.1, Text: "hoy hablamos desde popayan sobre la musica del pacifico"},
	{Start: 5.1, End: 7.8, Text: "como estas maria gracias por acompanarnos"},
	{Start: 7.8, End: 10.2, Text: "bien gracias es un gusto estar aqui"},
	{Start: 10.2, End: 13.5, Text: "cuentanos como empezo el festival el ano pasado"},
	{Start: 13.5, End: 16.9, Text: "todo empezo con un grupo de amigos en la plaza"},
	{Start: 16.9, End: 19.4, Text: "y despues llegaron musicos de todo el pais"},
	{Start: 19.4, End: 22.0, Text: "muchas gracias y nos vemos manana"},
}

// Adapter implements stt.Transcriber with a canned transcript.
type Adapter struct {
	mu       sync.Mutex
	segments []segment.Segment
	delay    time.Duration
	err      error
	calls    int
}

// New creates a new mock STT adapter returning DefaultSegments.
func New() *Adapter {
	return &Adapter{segments: DefaultSegments}
}

// WithSegments replaces the canned transcript.
func (a *Adapter) WithSegments(segs []segment.Segment) *Adapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.segments = segs
	return a
}

// WithDelay simulates provider latency.
func (a *Adapter) WithDelay(d time.Duration) *Adapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delay = d
	return a
}

// WithError makes every call fail with err.
func (a *Adapter) WithError(err error) *Adapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
	return a
}

// Calls returns the number of Transcribe calls.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Name implements stt.Transcriber.
func (a *Adapter) Name() string {
	return "mock"
}

// Transcribe implements stt.Transcriber. The audio file must exist but its
// content is ignored.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (*stt.Transcript, error) {
	a.mu.Lock()
	a.calls++
	segs := append([]segment.Segment(nil), a.segments...)
	delay, err := a.delay, a.err
	a.mu.Unlock()

	if _, statErr := os.Stat(audioPath); statErr != nil {
		return nil, fmt.Errorf("read audio: %w", statErr)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	idx, idxErr := segment.NewIndex(segs)
	if idxErr != nil {
		return nil, idxErr
	}
	if idx.FullText() == "" {
		return nil, stt.ErrEmptyTranscript
	}
	return &stt.Transcript{
		Text:     idx.FullText(),
		Language: "es",
		Duration: idx.Duration(),
		Segments: segs,
	}, nil
}
