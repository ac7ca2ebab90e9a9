package correction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"transcript-search-service/internal/service/segment"
)

// upper is a corrector that upper-cases its input and counts calls.
type upper struct {
	calls atomic.Int32
}

func (u *upper) Correct(ctx context.Context, req Request) (string, error) {
	u.calls.Add(1)
	return strings.ToUpper(req.Text), nil
}

func numberedIndex(n int) *segment.Index {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("w%d", i)
	}
	return wordIndex(texts...)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyBatched, false},
		{"batched", StrategyBatched, false},
		{" WordCount ", StrategyWordCount, false},
		{"sentences", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAlign_BatchedAppliesAll(t *testing.T) {
	c := &upper{}
	idx := numberedIndex(25)

	out, report := NewAligner(c, nil).Align(context.Background(), idx, Options{BatchSize: 10})

	if report.State != StateCompleted {
		t.Errorf("expected COMPLETED, got %s", report.State)
	}
	if got := c.calls.Load(); got != 3 {
		t.Errorf("expected 3 batch calls for 25 segments, got %d", got)
	}
	if report.Applied != 3 || report.Discarded != 0 || report.Skipped != 0 {
		t.Errorf("unexpected counts %+v", report)
	}
	for i := 0; i < idx.Len(); i++ {
		if want := fmt.Sprintf("W%d", i); out.At(i).Text != want {
			t.Errorf("segment %d: expected %q, got %q", i, want, out.At(i).Text)
		}
		if out.At(i).Start != idx.At(i).Start || out.At(i).End != idx.At(i).End {
			t.Errorf("segment %d: timing changed", i)
		}
	}
	if report.JobID == "" {
		t.Error("expected a generated job id")
	}
}

func TestAlign_BatchedFailClosedPerBatch(t *testing.T) {
	idx := wordIndex("a", "b", "c", "d", "e", "f")

	// The middle batch comes back with a separator missing.
	c := CorrectorFunc(func(ctx context.Context, req Request) (string, error) {
		if strings.HasPrefix(req.Text, "c") {
			return "C", nil
		}
		return strings.ToUpper(req.Text), nil
	})
	var seen []BatchReport
	out, report := NewAligner(c, nil).Align(context.Background(), idx, Options{
		BatchSize: 2,
		OnBatch:   func(r BatchReport) { seen = append(seen, r) },
	})

	want := []string{"A", "B", "c", "d", "E", "F"}
	if got := out.Texts(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
	if report.Applied != 2 || report.Discarded != 1 {
		t.Errorf("expected 2 applied / 1 discarded, got %d / %d", report.Applied, report.Discarded)
	}
	if report.State != StateCompleted {
		t.Errorf("a discarded batch must not fail the job, got %s", report.State)
	}

	if len(seen) != 3 {
		t.Fatalf("expected OnBatch for every batch, got %d", len(seen))
	}
	mid := seen[1]
	if mid.Applied() || mid.Reason != ReasonCountMismatch || mid.From != 2 || mid.To != 4 {
		t.Errorf("unexpected middle batch report %+v", mid)
	}
}

func TestAlign_BatchedSpecExample(t *testing.T) {
	idx := wordIndex("a", "b", "c")
	var sent Request
	c := CorrectorFunc(func(ctx context.Context, req Request) (string, error) {
		sent = req
		return "A ||| B", nil
	})

	out, report := NewAligner(c, nil).Align(context.Background(), idx, Options{BatchSize: 3})

	if sent.Text != "a ||| b ||| c" || sent.Separator != "|||" || sent.Pieces != 3 {
		t.Errorf("unexpected request %+v", sent)
	}
	if got := out.Texts(); strings.Join(got, ",") != "a,b,c" {
		t.Errorf("expected originals to be kept, got %v", got)
	}
	if report.Discarded != 1 || report.Batches[0].Reason != ReasonCountMismatch {
		t.Errorf("expected one count-mismatch discard, got %+v", report.Batches)
	}
}

func TestAlign_BatchedCollaboratorErrorKeepsOriginals(t *testing.T) {
	idx := wordIndex("a", "b", "c", "d")
	boom := errors.New("timeout")
	c := CorrectorFunc(func(ctx context.Context, req Request) (string, error) {
		if strings.HasPrefix(req.Text, "a") {
			return "", boom
		}
		return strings.ToUpper(req.Text), nil
	})

	out, report := NewAligner(c, nil).Align(context.Background(), idx, Options{BatchSize: 2})

	if got := out.Texts(); strings.Join(got, ",") != "a,b,C,D" {
		t.Errorf("unexpected texts %v", got)
	}
	first := report.Batches[0]
	if first.Reason != ReasonCollaboratorError || !errors.Is(first.Err, boom) {
		t.Errorf("expected collaborator error, got %+v", first)
	}
}

func TestAlign_BatchedSeparatorInSource(t *testing.T) {
	idx := wordIndex("a ||| b", "c")
	c := &upper{}

	out, report := NewAligner(c, nil).Align(context.Background(), idx, Options{BatchSize: 2})

	if c.calls.Load() != 0 {
		t.Error("a batch holding the separator must not be sent")
	}
	if got := out.Texts(); strings.Join(got, ",") != "a ||| b,c" {
		t.Errorf("expected originals, got %v", got)
	}
	if report.Batches[0].Reason != ReasonSeparatorInSource {
		t.Errorf("expected separator_in_source, got %q", report.Batches[0].Reason)
	}
}

func TestAlign_CustomSeparator(t *testing.T) {
	idx := wordIndex("a", "b")
	var sent Request
	c := CorrectorFunc(func(ctx context.Context, req Request) (string, error) {
		sent = req
		return strings.ToUpper(req.Text), nil
	})

	out, _ := NewAligner(c, nil).Align(context.Background(), idx, Options{Separator: "◆◆◆"})

	if sent.Text != "a ◆◆◆ b" {
		t.Errorf("unexpected request text %q", sent.Text)
	}
	if got := out.Texts(); strings.Join(got, ",") != "A,B" {
		t.Errorf("unexpected texts %v", got)
	}
}

func TestAlign_BatchedCancellation(t *testing.T) {
	idx := wordIndex("a", "b", "c")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := CorrectorFunc(func(_ context.Context, req Request) (string, error) {
		cancel()
		return strings.ToUpper(req.Text), nil
	})

	out, report := NewAligner(c, nil).Align(ctx, idx, Options{BatchSize: 1})

	if report.State != StateCancelled {
		t.Errorf("expected CANCELLED, got %s", report.State)
	}
	if got := out.Texts(); strings.Join(got, ",") != "A,b,c" {
		t.Errorf("expected corrected-so-far plus remainder, got %v", got)
	}
	if report.Applied != 1 || report.Skipped != 2 {
		t.Errorf("expected 1 applied / 2 skipped, got %d / %d", report.Applied, report.Skipped)
	}
}

func TestAlign_BatchedParallelKeepsPositions(t *testing.T) {
	idx := numberedIndex(40)

	// Batches containing w13 drop a piece.
	var mu sync.Mutex
	var order []int
	c := CorrectorFunc(func(ctx context.Context, req Request) (string, error) {
		if strings.Contains(req.Text, "w13 ") || strings.HasSuffix(req.Text, "w13") {
			return "BROKEN", nil
		}
		return strings.ToUpper(req.Text), nil
	})

	out, report := NewAligner(c, nil).Align(context.Background(), idx, Options{
		BatchSize:   3,
		Parallelism: 4,
		OnBatch: func(r BatchReport) {
			mu.Lock()
			order = append(order, r.Batch)
			mu.Unlock()
		},
	})

	for i := 0; i < idx.Len(); i++ {
		want := fmt.Sprintf("W%d", i)
		if i >= 12 && i < 15 {
			want = fmt.Sprintf("w%d", i)
		}
		if out.At(i).Text != want {
			t.Errorf("segment %d: expected %q, got %q", i, want, out.At(i).Text)
		}
	}
	if report.Applied != 13 || report.Discarded != 1 {
		t.Errorf("expected 13 applied / 1 discarded, got %d / %d", report.Applied, report.Discarded)
	}
	if len(order) != 14 {
		t.Errorf("expected 14 OnBatch calls, got %d", len(order))
	}
	for i, r := range report.Batches {
		if r.Batch != i {
			t.Errorf("report batches must be ordered, position %d holds batch %d", i, r.Batch)
		}
	}
}

func TestAlign_WordCount(t *testing.T) {
	idx := wordIndex("buenos dias", "como estas", "bien gracias")
	c := CorrectorFunc(func(ctx context.Context, req Request) (string, error) {
		if req.Separator != "" {
			t.Errorf("word-count strategy must not request a separator")
		}
		return "Buenos días, ¿cómo estás? Bien, gracias.", nil
	})

	out, report := NewAligner(c, nil).Align(context.Background(), idx, Options{Strategy: StrategyWordCount})

	if got := out.At(1).Text; got != "¿cómo estás?" {
		t.Errorf("unexpected segment text %q", got)
	}
	if report.WordCount == nil || report.WordCount.Mismatched {
		t.Errorf("unexpected word count report %+v", report.WordCount)
	}
	if report.State != StateCompleted || report.Applied != 1 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestAlign_WordCountFailureKeepsOriginal(t *testing.T) {
	idx := wordIndex("buenos dias", "como estas")
	c := CorrectorFunc(func(ctx context.Context, req Request) (string, error) {
		return "", errors.New("503")
	})

	out, report := NewAligner(c, nil).Align(context.Background(), idx, Options{Strategy: StrategyWordCount})

	if out.FullText() != idx.FullText() {
		t.Errorf("expected original transcript, got %q", out.FullText())
	}
	if report.State != StateCompleted || report.Discarded != 1 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestAlign_EmptyIndex(t *testing.T) {
	c := &upper{}
	for _, s := range []Strategy{StrategyBatched, StrategyWordCount} {
		out, report := NewAligner(c, nil).Align(context.Background(), segment.MustIndex(nil), Options{Strategy: s})
		if out.Len() != 0 {
			t.Errorf("%s: expected empty index", s)
		}
		if report.State != StateCompleted {
			t.Errorf("%s: expected COMPLETED, got %s", s, report.State)
		}
	}
	if c.calls.Load() != 0 {
		t.Error("empty index must not call the corrector")
	}
}
