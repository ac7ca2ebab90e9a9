package mcpserver

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"transcript-search-service/internal/schema"
	"transcript-search-service/internal/service/correction"
	"transcript-search-service/internal/service/search"
	"transcript-search-service/internal/service/segment"
	"transcript-search-service/internal/service/session"
)

type LoadArgs struct {
	SessionID string                  `json:"session_id,omitempty" jsonschema:"Existing session to replace the transcript of; a new session is created when empty"`
	AudioPath string                  `json:"audio_path,omitempty" jsonschema:"Path of an audio file to transcribe"`
	Text      string                  `json:"text,omitempty" jsonschema:"Plain transcript text, used when no segments are given"`
	Language  string                  `json:"language,omitempty" jsonschema:"Language code of the transcript, e.g. es"`
	Segments  []schema.SegmentPayload `json:"segments,omitempty" jsonschema:"Timed segments in chronological order"`
}

type LoadResult struct {
	SessionID string  `json:"session_id"`
	Source    string  `json:"source"`
	Segments  int     `json:"segments"`
	Words     int     `json:"words"`
	Duration  float64 `json:"duration"`
}

type SearchArgs struct {
	SessionID string   `json:"session_id" jsonschema:"Session returned by load_transcript"`
	Query     string   `json:"query" jsonschema:"Word or phrase to find"`
	Context   *int     `json:"context,omitempty" jsonschema:"Neighbouring segments to include on each side (default 1)"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"Minimum similarity for non-exact hits between 0 and 1 (default 0.7)"`
}

type SearchOutput struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Results []search.Result `json:"results"`
}

type CorrectArgs struct {
	SessionID string `json:"session_id" jsonschema:"Session returned by load_transcript"`
	Strategy  string `json:"strategy,omitempty" jsonschema:"batched (default) or wordcount"`
	BatchSize int    `json:"batch_size,omitempty" jsonschema:"Segments per corrector call for the batched strategy"`
}

type CorrectOutput struct {
	SessionID string `json:"session_id"`
	JobID     string `json:"job_id"`
	State     string `json:"state"`
	Applied   int    `json:"applied"`
	Discarded int    `json:"discarded"`
	Skipped   int    `json:"skipped"`
	Text      string `json:"text"`
}

func (s *Server) handleLoad(ctx context.Context, req *sdk.CallToolRequest, args LoadArgs) (*sdk.CallToolResult, LoadResult, error) {
	importReq := schema.ImportRequest{Text: args.Text, Language: args.Language, Segments: args.Segments}
	if args.AudioPath == "" {
		if err := s.validator.Validate(importReq); err != nil {
			return nil, LoadResult{}, err
		}
	}

	var sess *session.Session
	var err error
	if args.SessionID != "" {
		sess, err = s.store.Get(args.SessionID)
	} else {
		sess, err = s.store.Create()
	}
	if err != nil {
		return nil, LoadResult{}, err
	}

	var idx *segment.Index
	if args.AudioPath != "" {
		idx, err = s.pipeline.Transcribe(ctx, sess, args.AudioPath)
	} else {
		idx, err = s.pipeline.Import(ctx, sess, importReq.Text, importReq.Language, importReq.ToSegments())
	}
	if err != nil {
		return nil, LoadResult{}, fmt.Errorf("load transcript: %w", err)
	}

	out := LoadResult{
		SessionID: sess.ID(),
		Source:    sess.Info().Source,
		Segments:  idx.Len(),
		Words:     idx.WordCount(),
		Duration:  idx.Duration(),
	}
	return textResult(out), out, nil
}

func (s *Server) handleSearch(ctx context.Context, req *sdk.CallToolRequest, args SearchArgs) (*sdk.CallToolResult, SearchOutput, error) {
	if err := s.validator.Validate(schema.SearchRequest{Query: args.Query, Context: args.Context, Threshold: args.Threshold}); err != nil {
		return nil, SearchOutput{}, err
	}
	sess, err := s.store.Get(args.SessionID)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	opts := s.pipeline.SearchDefaults()
	if args.Context != nil {
		opts.ContextWindow = *args.Context
	}
	if args.Threshold != nil {
		opts.FuzzyThreshold = *args.Threshold
	}
	results, err := s.pipeline.Search(sess, args.Query, &opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if results == nil {
		results = []search.Result{}
	}
	out := SearchOutput{Query: args.Query, Count: len(results), Results: results}
	return textResult(out), out, nil
}

func (s *Server) handleCorrect(ctx context.Context, req *sdk.CallToolRequest, args CorrectArgs) (*sdk.CallToolResult, CorrectOutput, error) {
	if err := s.validator.Validate(schema.CorrectRequest{Strategy: args.Strategy, BatchSize: args.BatchSize}); err != nil {
		return nil, CorrectOutput{}, err
	}
	sess, err := s.store.Get(args.SessionID)
	if err != nil {
		return nil, CorrectOutput{}, err
	}

	corrected, report, err := s.pipeline.Correct(ctx, sess, session.CorrectOptions{
		Strategy:  correction.Strategy(args.Strategy),
		BatchSize: args.BatchSize,
	})
	if err != nil {
		return nil, CorrectOutput{}, err
	}
	out := CorrectOutput{
		SessionID: sess.ID(),
		JobID:     report.JobID,
		State:     report.State.String(),
		Applied:   report.Applied,
		Discarded: report.Discarded,
		Skipped:   report.Skipped,
		Text:      corrected.FullText(),
	}
	return textResult(out), out, nil
}

// textResult renders v as the JSON text content of a tool result.
func textResult(v any) *sdk.CallToolResult {
	text, err := sonic.MarshalString(v)
	if err != nil {
		text = fmt.Sprintf("%+v", v)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}
}
