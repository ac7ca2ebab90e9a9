// Package groq provides a Whisper transcription adapter for the Groq API.
package groq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"transcript-search-service/internal/observability/metrics"
	"transcript-search-service/internal/service/groqapi"
	"transcript-search-service/internal/service/segment"
	"transcript-search-service/internal/service/stt"
)

const providerName = "groq"

// DefaultModel is the Whisper model used for transcription.
const DefaultModel = "whisper-large-v3"

// AudioClient is the subset of groqapi.Client used here.
type AudioClient interface {
	Transcribe(ctx context.Context, req groqapi.TranscriptionRequest) (*groqapi.TranscriptionResponse, error)
}

// Config holds Whisper configuration.
type Config struct {
	Model       string
	Language    string
	Temperature float64
	// Prompt biases recognition towards names and jargon.
	Prompt string
}

// Adapter implements stt.Transcriber using Groq-hosted Whisper.
type Adapter struct {
	client  AudioClient
	cfg     Config
	metrics *metrics.Metrics
}

// New creates a new Groq Whisper adapter.
func New(client AudioClient, cfg Config, m *metrics.Metrics) *Adapter {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Language == "" {
		cfg.Language = "es"
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Adapter{client: client, cfg: cfg, metrics: m}
}

// Name implements stt.Transcriber.
func (a *Adapter) Name() string {
	return providerName
}

// Transcribe implements stt.Transcriber.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (*stt.Transcript, error) {
	start := time.Now()
	resp, err := a.client.Transcribe(ctx, groqapi.TranscriptionRequest{
		FilePath:    audioPath,
		Model:       a.cfg.Model,
		Language:    a.cfg.Language,
		Temperature: a.cfg.Temperature,
		Prompt:      a.cfg.Prompt,
	})
	a.metrics.RecordCollaborator("asr", providerName, err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("groq transcription: %w", err)
	}

	tr := &stt.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: make([]segment.Segment, 0, len(resp.Segments)),
	}
	if tr.Language == "" {
		tr.Language = a.cfg.Language
	}
	for _, s := range resp.Segments {
		tr.Segments = append(tr.Segments, segment.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}

	if tr.Text == "" {
		return nil, stt.ErrEmptyTranscript
	}
	return tr, nil
}
