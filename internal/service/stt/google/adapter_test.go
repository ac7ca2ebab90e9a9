package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"

	"transcript-search-service/internal/service/stt"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "es-ES" {
		t.Errorf("expected default language 'es-ES', got %s", cfg.LanguageCode)
	}
	if cfg.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.SampleRateHz)
	}
	if cfg.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.AudioEncoding)
	}
	if !cfg.AutoPunctuation {
		t.Error("expected automatic punctuation on by default")
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"AMR", speechpb.RecognitionConfig_AMR},
		{"AMR_WB", speechpb.RecognitionConfig_AMR_WB},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"SPEEX_WITH_HEADER_BYTE", speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"UNKNOWN", speechpb.RecognitionConfig_LINEAR16},  // fallback
		{"linear16", speechpb.RecognitionConfig_LINEAR16}, // lowercase -> fallback
		{"", speechpb.RecognitionConfig_LINEAR16},         // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func dur(s float64) *durationpb.Duration {
	return durationpb.New(time.Duration(s * float64(time.Second)))
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("RIFFfake"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribe_BuildsSegments(t *testing.T) {
	var got *speechpb.RecognizeRequest
	a := NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		got = req
		return &speechpb.RecognizeResponse{
			Results: []*speechpb.SpeechRecognitionResult{
				{
					Alternatives: []*speechpb.SpeechRecognitionAlternative{{
						Transcript: "buenos días",
						Words: []*speechpb.WordInfo{
							{Word: "buenos", StartTime: dur(0.2), EndTime: dur(0.6)},
							{Word: "días", StartTime: dur(0.6), EndTime: dur(1.0)},
						},
					}},
					ResultEndTime: dur(1.1),
					LanguageCode:  "es-es",
				},
				{Alternatives: nil},
				{
					Alternatives:  []*speechpb.SpeechRecognitionAlternative{{Transcript: " cómo estás "}},
					ResultEndTime: dur(2.5),
				},
			},
		}, nil
	}, DefaultConfig(), nil)

	tr, err := a.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !got.Config.EnableWordTimeOffsets || got.Config.LanguageCode != "es-ES" {
		t.Errorf("unexpected recognition config %+v", got.Config)
	}
	if string(got.Audio.GetContent()) != "RIFFfake" {
		t.Error("expected file content to be sent inline")
	}

	if len(tr.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(tr.Segments))
	}
	if s := tr.Segments[0]; s.Start != 0.2 || s.End != 1.1 || s.Text != "buenos días" {
		t.Errorf("unexpected first segment %+v", s)
	}
	// No word offsets: starts where the previous result ended.
	if s := tr.Segments[1]; s.Start != 1.1 || s.End != 2.5 || s.Text != "cómo estás" {
		t.Errorf("unexpected second segment %+v", s)
	}
	if tr.Text != "buenos días cómo estás" || tr.Duration != 2.5 || tr.Language != "es-es" {
		t.Errorf("unexpected transcript %+v", tr)
	}
	if _, err := tr.Index(); err != nil {
		t.Errorf("segments should form a valid index: %v", err)
	}
}

func TestTranscribe_Empty(t *testing.T) {
	a := NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return &speechpb.RecognizeResponse{}, nil
	}, DefaultConfig(), nil)

	if _, err := a.Transcribe(context.Background(), writeAudio(t)); !errors.Is(err, stt.ErrEmptyTranscript) {
		t.Errorf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestTranscribe_Errors(t *testing.T) {
	boom := errors.New("permission denied")
	a := NewWithRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return nil, boom
	}, DefaultConfig(), nil)

	if _, err := a.Transcribe(context.Background(), writeAudio(t)); !errors.Is(err, boom) {
		t.Errorf("expected recognizer error, got %v", err)
	}
	if _, err := a.Transcribe(context.Background(), "/does/not/exist.wav"); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestAdapter_Name(t *testing.T) {
	if NewWithRecognizer(nil, DefaultConfig(), nil).Name() != "google" {
		t.Error("unexpected provider name")
	}
}
