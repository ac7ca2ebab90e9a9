package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"transcript-search-service/internal/events"
	"transcript-search-service/internal/models"
	"transcript-search-service/internal/observability/logging"
	"transcript-search-service/internal/observability/metrics"
	"transcript-search-service/internal/service/chat"
	"transcript-search-service/internal/service/correction"
	"transcript-search-service/internal/service/search"
	"transcript-search-service/internal/service/segment"
	"transcript-search-service/internal/service/stt"
)

// Errors for operations whose collaborator is not wired.
var (
	ErrNoTranscriber = errors.New("no transcriber configured")
	ErrNoCorrector   = errors.New("no corrector configured")
	ErrNoChat        = errors.New("no chat model configured")
)

// Source names recorded on a session.
const (
	SourceImport = "import"
)

// CorrectOptions tune one correction job started through the pipeline.
type CorrectOptions struct {
	Strategy    correction.Strategy
	BatchSize   int
	Separator   string
	Parallelism int
}

// Pipeline coordinates the collaborators (ASR, corrector, chat) with the
// session state and the event publisher.
type Pipeline struct {
	transcriber stt.Transcriber
	aligner     *correction.Aligner
	engine      *search.Engine
	chat        *chat.Service
	publisher   *events.Publisher
	metrics     *metrics.Metrics

	correctDefaults CorrectOptions
	searchDefaults  search.Options
	jobTimeout      time.Duration
}

// PipelineConfig holds the collaborators and defaults of a Pipeline. Nil
// collaborators disable the operations that need them.
type PipelineConfig struct {
	Transcriber stt.Transcriber
	Aligner     *correction.Aligner
	Engine      *search.Engine
	Chat        *chat.Service
	Publisher   *events.Publisher
	Metrics     *metrics.Metrics

	Correct CorrectOptions
	Search  search.Options
	// JobTimeout bounds a whole correction job. Zero means no bound.
	JobTimeout time.Duration
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Engine == nil {
		cfg.Engine = search.New()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.New(nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultMetrics
	}
	return &Pipeline{
		transcriber:     cfg.Transcriber,
		aligner:         cfg.Aligner,
		engine:          cfg.Engine,
		chat:            cfg.Chat,
		publisher:       cfg.Publisher,
		metrics:         cfg.Metrics,
		correctDefaults: cfg.Correct,
		searchDefaults:  cfg.Search,
		jobTimeout:      cfg.JobTimeout,
	}
}

// ChatEnabled reports whether a chat model is wired.
func (p *Pipeline) ChatEnabled() bool {
	return p.chat != nil
}

// SearchDefaults returns the search options used when a caller sets none.
func (p *Pipeline) SearchDefaults() search.Options {
	return p.searchDefaults
}

// Transcribe runs ASR on the audio file and stores the result as the
// session's raw transcript. ASR failures fail the job and leave the session
// untouched.
func (p *Pipeline) Transcribe(ctx context.Context, sess *Session, audioPath string) (*segment.Index, error) {
	if p.transcriber == nil {
		return nil, ErrNoTranscriber
	}
	logger := logging.WithSession(sess.ID())

	tr, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		logger.Error().Err(err).Str("provider", p.transcriber.Name()).Msg("Transcription failed")
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	idx, err := tr.Index()
	if err != nil {
		logger.Error().Err(err).Str("provider", p.transcriber.Name()).Msg("Transcript rejected")
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	sess.SetTranscript(idx, filepath.Base(audioPath), p.transcriber.Name(), tr.Language)
	logger.Info().
		Str("provider", p.transcriber.Name()).
		Int("segments", idx.Len()).
		Float64("duration", idx.Duration()).
		Msg("Transcript stored")

	p.publishTranscribed(ctx, sess, idx)
	return idx, nil
}

// Import stores a caller-supplied transcript. When segments is empty the text
// becomes a single zero-length segment.
func (p *Pipeline) Import(ctx context.Context, sess *Session, text, language string, segments []segment.Segment) (*segment.Index, error) {
	tr := &stt.Transcript{Text: text, Language: language, Segments: segments}
	idx, err := tr.Index()
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	sess.SetTranscript(idx, SourceImport, SourceImport, language)
	logger := logging.WithSession(sess.ID())
	logger.Info().Int("segments", idx.Len()).Msg("Transcript imported")

	p.publishTranscribed(ctx, sess, idx)
	return idx, nil
}

// Correct runs a correction job over the session's raw transcript and stores
// the result as its corrected transcript. Collaborator failures degrade the
// result (batches keep their original text) but never fail the call; errors
// are returned only when the job could not run or its result was superseded.
func (p *Pipeline) Correct(ctx context.Context, sess *Session, opts CorrectOptions) (*segment.Index, *correction.Report, error) {
	if p.aligner == nil {
		return nil, nil, ErrNoCorrector
	}
	base, err := sess.beginCorrection()
	if err != nil {
		return nil, nil, err
	}

	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	aopts := p.alignOptions(sess.ID(), opts)
	jobID := aopts.JobID
	aopts.OnBatch = func(r correction.BatchReport) {
		p.publishBatch(ctx, sess.ID(), jobID, r)
	}

	out, report := p.aligner.Align(ctx, base, aopts)
	p.publishCompleted(ctx, sess.ID(), report)

	if err := sess.finishCorrection(base, out, report); err != nil {
		logger := logging.WithJob(sess.ID(), report.JobID, string(report.Strategy))
		logger.Warn().Err(err).Msg("Correction result dropped")
		return nil, report, err
	}
	return out, report, nil
}

func (p *Pipeline) alignOptions(sessionID string, opts CorrectOptions) correction.Options {
	d := p.correctDefaults
	if opts.Strategy == "" {
		opts.Strategy = d.Strategy
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = d.BatchSize
	}
	if opts.Separator == "" {
		opts.Separator = d.Separator
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = d.Parallelism
	}
	// Resolved here so the batch events carry the same ID as the report.
	return correction.Options{
		Strategy:    opts.Strategy,
		JobID:       uuid.NewString(),
		SessionID:   sessionID,
		BatchSize:   opts.BatchSize,
		Separator:   opts.Separator,
		Parallelism: opts.Parallelism,
	}
}

// Search runs a query over the session's current transcript.
func (p *Pipeline) Search(sess *Session, query string, opts *search.Options) ([]search.Result, error) {
	idx, err := sess.Current()
	if err != nil {
		return nil, err
	}
	o := p.searchDefaults
	if opts != nil {
		o = *opts
	}

	start := time.Now()
	results := p.engine.Search(query, idx, o)
	p.metrics.RecordSearch(lo.Map(results, func(r search.Result, _ int) string {
		return string(r.Tier)
	}), time.Since(start).Seconds())
	return results, nil
}

// Chat streams an answer grounded on the session's current transcript. On
// success the exchange is appended to the session history; a failed stream
// records nothing.
func (p *Pipeline) Chat(ctx context.Context, sess *Session, question string, onDelta func(string) error) (string, error) {
	if p.chat == nil {
		return "", ErrNoChat
	}
	idx, err := sess.Current()
	if err != nil {
		return "", err
	}

	answer, err := p.chat.Ask(ctx, chat.Request{
		Transcript: idx.FullText(),
		History:    sess.History(),
		Question:   question,
	}, onDelta)
	if err != nil {
		return "", err
	}
	sess.AppendExchange(strings.TrimSpace(question), answer)
	return answer, nil
}

func (p *Pipeline) publishTranscribed(ctx context.Context, sess *Session, idx *segment.Index) {
	info := sess.Info()
	ev := models.SessionTranscribed{
		EventType:    models.EventSessionTranscribed,
		SessionID:    sess.ID(),
		Timestamp:    time.Now().UnixMilli(),
		Source:       info.Source,
		Provider:     info.Provider,
		Language:     info.Language,
		Duration:     idx.Duration(),
		SegmentCount: idx.Len(),
		WordCount:    idx.WordCount(),
	}
	if err := p.publisher.PublishTranscribed(ctx, ev); err != nil {
		logger := logging.WithSession(sess.ID())
		logger.Warn().Err(err).Msg("Failed to publish transcribed event")
	}
}

func (p *Pipeline) publishBatch(ctx context.Context, sessionID, jobID string, r correction.BatchReport) {
	ev := models.CorrectionBatch{
		EventType: models.EventCorrectionBatch,
		SessionID: sessionID,
		JobID:     jobID,
		Timestamp: time.Now().UnixMilli(),
		Batch:     r.Batch,
		Batches:   r.Batches,
		From:      r.From,
		To:        r.To,
		Outcome:   r.Outcome.String(),
		Reason:    string(r.Reason),
	}
	// Batch events are best effort and must not hold up the job on a
	// cancelled context.
	if err := p.publisher.PublishCorrectionBatch(context.WithoutCancel(ctx), ev); err != nil {
		logger := logging.WithBatch(jobID, r.Batch, r.Batches)
		logger.Warn().Err(err).Msg("Failed to publish batch event")
	}
}

func (p *Pipeline) publishCompleted(ctx context.Context, sessionID string, report *correction.Report) {
	ev := models.CorrectionCompleted{
		EventType:  models.EventCorrectionCompleted,
		SessionID:  sessionID,
		JobID:      report.JobID,
		Timestamp:  time.Now().UnixMilli(),
		Strategy:   string(report.Strategy),
		State:      report.State.String(),
		Applied:    report.Applied,
		Discarded:  report.Discarded,
		Skipped:    report.Skipped,
		DurationMs: report.Duration.Milliseconds(),
	}
	if report.WordCount != nil {
		ev.WordMismatch = report.WordCount.Mismatched
	}
	if err := p.publisher.PublishCorrectionCompleted(context.WithoutCancel(ctx), ev); err != nil {
		logger := logging.WithJob(sessionID, report.JobID, string(report.Strategy))
		logger.Warn().Err(err).Msg("Failed to publish completed event")
	}
}
