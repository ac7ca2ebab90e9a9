// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"

	"transcript-search-service/internal/observability/metrics"
	"transcript-search-service/internal/service/segment"
	"transcript-search-service/internal/service/stt"
)

const providerName = "google"

// Config holds Google STT configuration.
type Config struct {
	LanguageCode    string
	SampleRateHz    int
	AudioEncoding   string
	Model           string
	AutoPunctuation bool
}

// DefaultConfig returns the configuration for Spanish interviews.
func DefaultConfig() Config {
	return Config{
		LanguageCode:    "es-ES",
		SampleRateHz:    16000,
		AudioEncoding:   "LINEAR16",
		AutoPunctuation: true,
	}
}

// RecognizeFunc performs a synchronous recognition call.
type RecognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Adapter implements stt.Transcriber using Google Cloud Speech-to-Text.
// It uses synchronous Recognize, which accepts up to one minute of audio.
type Adapter struct {
	recognize RecognizeFunc
	close     func() error
	cfg       Config
	metrics   *metrics.Metrics
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config, m *metrics.Metrics) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	a := NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return c.Recognize(ctx, req)
	}, cfg, m)
	a.close = c.Close
	return a, nil
}

// NewWithRecognizer creates an adapter around an existing recognizer.
func NewWithRecognizer(fn RecognizeFunc, cfg Config, m *metrics.Metrics) *Adapter {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Adapter{recognize: fn, cfg: cfg, metrics: m}
}

// Name implements stt.Transcriber.
func (a *Adapter) Name() string {
	return providerName
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	if a.close != nil {
		return a.close()
	}
	return nil
}

// Transcribe implements stt.Transcriber.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (*stt.Transcript, error) {
	content, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	start := time.Now()
	resp, err := a.recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   parseAudioEncoding(a.cfg.AudioEncoding),
			SampleRateHertz:            int32(a.cfg.SampleRateHz),
			LanguageCode:               a.cfg.LanguageCode,
			Model:                      a.cfg.Model,
			EnableWordTimeOffsets:      true,
			EnableAutomaticPunctuation: a.cfg.AutoPunctuation,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	})
	a.metrics.RecordCollaborator("asr", providerName, err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("google recognize: %w", err)
	}

	tr := toTranscript(resp, a.cfg.LanguageCode)
	if strings.TrimSpace(tr.Text) == "" {
		return nil, stt.ErrEmptyTranscript
	}
	return tr, nil
}

// toTranscript turns recognition results into segments. Each result becomes
// one segment starting where its first word starts (or where the previous
// result ended) and ending at the result end offset.
func toTranscript(resp *speechpb.RecognizeResponse, language string) *stt.Transcript {
	tr := &stt.Transcript{Language: language}
	texts := make([]string, 0, len(resp.GetResults()))
	prevEnd := 0.0

	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		alt := r.GetAlternatives()[0]
		text := strings.TrimSpace(alt.GetTranscript())
		if text == "" {
			continue
		}

		start := prevEnd
		end := seconds(r.GetResultEndTime())
		if words := alt.GetWords(); len(words) > 0 {
			if ws := seconds(words[0].GetStartTime()); ws >= prevEnd {
				start = ws
			}
			if end == 0 {
				end = seconds(words[len(words)-1].GetEndTime())
			}
		}
		if end < start {
			end = start
		}

		tr.Segments = append(tr.Segments, segment.Segment{Start: start, End: end, Text: text})
		texts = append(texts, text)
		prevEnd = end
		if lc := r.GetLanguageCode(); lc != "" {
			tr.Language = lc
		}
	}

	tr.Text = strings.Join(texts, " ")
	tr.Duration = prevEnd
	return tr
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}

// parseAudioEncoding maps an encoding name to the API enum, falling back to
// LINEAR16 for unknown names.
func parseAudioEncoding(name string) speechpb.RecognitionConfig_AudioEncoding {
	switch name {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
