package groqapi

import (
	"context"
	"fmt"
	"strconv"
)

// TranscriptionRequest describes an audio transcription call.
type TranscriptionRequest struct {
	FilePath    string
	Model       string
	Language    string
	Temperature float64
	Prompt      string
}

// TranscriptionSegment is one verbose_json segment.
type TranscriptionSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionResponse is the verbose_json transcription body.
type TranscriptionResponse struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language"`
	Duration float64                `json:"duration"`
	Segments []TranscriptionSegment `json:"segments"`
}

// Transcribe uploads an audio file and returns the verbose transcription.
func (c *Client) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	form := map[string]string{
		"model":           req.Model,
		"response_format": "verbose_json",
		"temperature":     strconv.FormatFloat(req.Temperature, 'f', -1, 64),
	}
	if req.Language != "" {
		form["language"] = req.Language
	}
	if req.Prompt != "" {
		form["prompt"] = req.Prompt
	}

	var out TranscriptionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", req.FilePath).
		SetFormData(form).
		SetResult(&out).
		Post("/audio/transcriptions")
	if err != nil {
		return nil, fmt.Errorf("audio transcription: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &out, nil
}
