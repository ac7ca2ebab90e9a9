package correction

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"transcript-search-service/internal/observability/logging"
	"transcript-search-service/internal/observability/metrics"
	"transcript-search-service/internal/service/segment"
)

// Strategy selects the realignment algorithm.
type Strategy string

const (
	StrategyWordCount Strategy = "wordcount"
	StrategyBatched   Strategy = "batched"
)

// ParseStrategy maps a name to a Strategy. An empty name selects batched.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyBatched:
		return StrategyBatched, nil
	case StrategyWordCount:
		return StrategyWordCount, nil
	default:
		return "", fmt.Errorf("unknown correction strategy %q", s)
	}
}

// Options tune a single correction job.
type Options struct {
	Strategy Strategy
	// JobID identifies the job in logs and events. Generated when empty.
	JobID     string
	SessionID string

	// Batched strategy only.
	BatchSize int
	Separator string
	// Parallelism bounds concurrent batch calls. Values <= 1 run batches
	// sequentially.
	Parallelism int

	// OnBatch is called once per finished batch. Calls are serialized.
	OnBatch func(BatchReport)
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategyBatched
	}
	if o.JobID == "" {
		o.JobID = uuid.NewString()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.Parallelism < 1 {
		o.Parallelism = 1
	}
	return o
}

// Report summarizes a finished correction job.
type Report struct {
	JobID     string           `json:"jobId"`
	Strategy  Strategy         `json:"strategy"`
	State     State            `json:"state"`
	Batches   []BatchReport    `json:"batches,omitempty"`
	Applied   int              `json:"applied"`
	Discarded int              `json:"discarded"`
	Skipped   int              `json:"skipped"`
	WordCount *WordCountReport `json:"wordCount,omitempty"`
	Duration  time.Duration    `json:"-"`
}

// Aligner runs correction jobs against a Corrector.
type Aligner struct {
	corrector Corrector
	metrics   *metrics.Metrics
}

// NewAligner creates an aligner. A nil metrics uses metrics.DefaultMetrics.
func NewAligner(c Corrector, m *metrics.Metrics) *Aligner {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Aligner{
		corrector: c,
		metrics:   m,
	}
}

// Align corrects idx and returns a new index with identical timings.
//
// Correction never fails the job: collaborator errors leave the affected
// scope (whole text or batch) uncorrected. Cancelling ctx stops issuing new
// batches; batches already applied are kept and the rest keep their
// original text.
func (a *Aligner) Align(ctx context.Context, idx *segment.Index, opts Options) (*segment.Index, *Report) {
	opts = opts.withDefaults()
	start := time.Now()
	job := NewLifecycle(opts.JobID)
	logger := logging.WithJob(opts.SessionID, opts.JobID, string(opts.Strategy))

	var (
		out    *segment.Index
		report *Report
	)
	switch opts.Strategy {
	case StrategyWordCount:
		out, report = a.alignWordCount(ctx, idx, job, logger)
	default:
		out, report = a.alignBatched(ctx, idx, job, opts, logger)
	}

	report.JobID = opts.JobID
	report.Strategy = opts.Strategy
	report.Applied, report.Discarded = job.Counts()
	report.State = job.State()
	report.Duration = time.Since(start)

	a.metrics.RecordCorrectionJob(string(opts.Strategy), strings.ToLower(report.State.String()), report.Duration.Seconds())
	logger.Info().
		Str("state", report.State.String()).
		Int("applied", report.Applied).
		Int("discarded", report.Discarded).
		Int("skipped", report.Skipped).
		Dur("duration", report.Duration).
		Msg("Correction job finished")

	return out, report
}

func (a *Aligner) alignWordCount(ctx context.Context, idx *segment.Index, job *Lifecycle, logger zerolog.Logger) (*segment.Index, *Report) {
	report := &Report{}
	if idx.Len() == 0 {
		transition(job, logger, "complete", job.Complete())
		return idx, report
	}
	transition(job, logger, "start", job.Start(1))

	if ctx.Err() != nil {
		job.Cancel()
		report.Skipped = 1
		return idx, report
	}

	outcome := Attempt(ctx, a.corrector, Request{Text: idx.FullText()})
	if !outcome.OK {
		transition(job, logger, "record", job.RecordBatch(BatchDiscarded))
		a.metrics.RecordBatchDiscarded(string(ReasonCollaboratorError))
		logger.Warn().Err(outcome.Err).Msg("Correction failed, keeping original transcript")
		transition(job, logger, "complete", job.Complete())
		return idx, report
	}

	out, wc := AlignWordCount(idx, outcome.Text)
	report.WordCount = &wc
	if wc.Mismatched {
		a.metrics.RecordWordCountMismatch()
		logger.Warn().
			Int("originalWords", wc.OriginalWords).
			Int("correctedWords", wc.CorrectedWords).
			Msg("Corrected word count differs, segment boundaries are approximate")
	}
	transition(job, logger, "record", job.RecordBatch(BatchApplied))
	a.metrics.RecordBatchApplied()
	transition(job, logger, "complete", job.Complete())
	return out, report
}

func (a *Aligner) alignBatched(ctx context.Context, idx *segment.Index, job *Lifecycle, opts Options, logger zerolog.Logger) (*segment.Index, *Report) {
	batches := lo.Chunk(idx.Texts(), opts.BatchSize)
	report := &Report{Batches: make([]BatchReport, 0, len(batches))}
	if len(batches) == 0 {
		transition(job, logger, "complete", job.Complete())
		return idx, report
	}
	transition(job, logger, "start", job.Start(len(batches)))

	// Indexed by batch number; batch j only ever writes corrected[j].
	corrected := make([][]string, len(batches))
	done := make([]bool, len(batches))

	var mu sync.Mutex
	finish := func(r BatchReport) {
		transition(job, logger, "record", job.RecordBatch(r.Outcome))
		if r.Applied() {
			a.metrics.RecordBatchApplied()
		} else {
			a.metrics.RecordBatchDiscarded(string(r.Reason))
			logger := logging.WithBatch(opts.JobID, r.Batch, r.Batches)
			logger.Warn().
				Err(r.Err).
				Str("reason", string(r.Reason)).
				Int("from", r.From).
				Int("to", r.To).
				Msg("Correction batch discarded, keeping original text")
		}

		mu.Lock()
		defer mu.Unlock()
		done[r.Batch] = true
		report.Batches = append(report.Batches, r)
		if opts.OnBatch != nil {
			opts.OnBatch(r)
		}
	}

	run := func(j int) {
		texts, r := a.correctBatch(ctx, batches[j], j, len(batches), opts)
		corrected[j] = texts
		finish(r)
	}

	if opts.Parallelism <= 1 {
		for j := range batches {
			if ctx.Err() != nil {
				break
			}
			run(j)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(opts.Parallelism)
		for j := range batches {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				run(j)
				return nil
			})
		}
		g.Wait()
	}
	sort.Slice(report.Batches, func(i, k int) bool {
		return report.Batches[i].Batch < report.Batches[k].Batch
	})

	for j, ok := range done {
		if !ok {
			corrected[j] = batches[j]
			report.Skipped++
		}
	}
	if report.Skipped > 0 {
		job.Cancel()
		logger.Warn().Int("skipped", report.Skipped).Msg("Correction job cancelled, remaining batches keep original text")
	} else {
		transition(job, logger, "complete", job.Complete())
	}

	out, err := idx.WithTexts(lo.Flatten(corrected))
	if err != nil {
		// Unreachable: every batch contributes exactly its own length.
		logger.Error().Err(err).Msg("Realigned text count mismatch, keeping original transcript")
		return idx, report
	}
	return out, report
}

// transition logs a lifecycle step the job refused.
func transition(job *Lifecycle, logger zerolog.Logger, step string, err error) {
	if err == nil {
		return
	}
	logger.Error().
		Err(err).
		Str("step", step).
		Str("state", job.State().String()).
		Msg("Correction job transition rejected")
}

// correctBatch runs one batch through the corrector and returns the texts to
// store for it: the corrected pieces, or the originals on any failure.
func (a *Aligner) correctBatch(ctx context.Context, texts []string, j, total int, opts Options) ([]string, BatchReport) {
	from := j * opts.BatchSize
	r := BatchReport{
		Batch:   j,
		Batches: total,
		From:    from,
		To:      from + len(texts),
		Outcome: BatchDiscarded,
	}

	if containsSeparator(texts, opts.Separator) {
		r.Reason = ReasonSeparatorInSource
		return texts, r
	}

	outcome := Attempt(ctx, a.corrector, Request{
		Text:      JoinBatch(texts, opts.Separator),
		Separator: opts.Separator,
		Pieces:    len(texts),
	})
	if !outcome.OK {
		r.Reason = ReasonCollaboratorError
		r.Err = outcome.Err
		return texts, r
	}

	applied, reason := ApplyReply(texts, outcome.Text, opts.Separator)
	if reason != ReasonNone {
		r.Reason = reason
		return texts, r
	}
	r.Outcome = BatchApplied
	return applied, r
}
