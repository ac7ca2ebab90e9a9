package correction

import (
	"sync"
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle("job-1")

	if lc.State() != StatePending {
		t.Errorf("expected StatePending, got %v", lc.State())
	}
	if lc.JobId() != "job-1" {
		t.Errorf("expected job-1, got %v", lc.JobId())
	}
	done, total := lc.Progress()
	if done != 0 || total != 0 {
		t.Errorf("expected 0/0 progress, got %d/%d", done, total)
	}
}

func TestLifecycle_Start_TransitionsToInProgress(t *testing.T) {
	lc := NewLifecycle("job-1")

	if err := lc.Start(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lc.State() != StateInProgress {
		t.Errorf("expected StateInProgress, got %v", lc.State())
	}
	if _, total := lc.Progress(); total != 3 {
		t.Errorf("expected 3 planned batches, got %d", total)
	}
}

func TestLifecycle_Start_OnlyOnce(t *testing.T) {
	lc := NewLifecycle("job-1")
	lc.Start(1)

	if err := lc.Start(1); err != ErrJobNotPending {
		t.Errorf("expected ErrJobNotPending, got %v", err)
	}
}

func TestLifecycle_RecordBatch_BeforeStart(t *testing.T) {
	lc := NewLifecycle("job-1")

	if err := lc.RecordBatch(BatchApplied); err != ErrJobNotInProgress {
		t.Errorf("expected ErrJobNotInProgress, got %v", err)
	}
}

func TestLifecycle_RecordBatch_CountsOutcomes(t *testing.T) {
	lc := NewLifecycle("job-1")
	lc.Start(3)

	lc.RecordBatch(BatchApplied)
	lc.RecordBatch(BatchDiscarded)
	lc.RecordBatch(BatchApplied)

	applied, discarded := lc.Counts()
	if applied != 2 || discarded != 1 {
		t.Errorf("expected 2 applied / 1 discarded, got %d / %d", applied, discarded)
	}
	if done, total := lc.Progress(); done != 3 || total != 3 {
		t.Errorf("expected 3/3 progress, got %d/%d", done, total)
	}

	if err := lc.RecordBatch(BatchApplied); err != ErrTooManyBatches {
		t.Errorf("expected ErrTooManyBatches, got %v", err)
	}
}

func TestLifecycle_FullCycle(t *testing.T) {
	lc := NewLifecycle("job-1")

	if err := lc.Start(2); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := lc.RecordBatch(BatchApplied); err != nil {
			t.Fatalf("batch %d failed: %v", i, err)
		}
	}
	if err := lc.Complete(); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if lc.State() != StateCompleted {
		t.Errorf("expected StateCompleted, got %v", lc.State())
	}
}

func TestLifecycle_Complete_EmptyJob(t *testing.T) {
	lc := NewLifecycle("job-1")

	if err := lc.Complete(); err != nil {
		t.Fatalf("empty job should complete from PENDING: %v", err)
	}
	if lc.State() != StateCompleted {
		t.Errorf("expected StateCompleted, got %v", lc.State())
	}
}

func TestLifecycle_OperationsFailAfterComplete(t *testing.T) {
	lc := NewLifecycle("job-1")
	lc.Start(0)
	lc.Complete()

	if err := lc.Start(1); err != ErrJobFinished {
		t.Errorf("Start: expected ErrJobFinished, got %v", err)
	}
	if err := lc.RecordBatch(BatchApplied); err != ErrJobFinished {
		t.Errorf("RecordBatch: expected ErrJobFinished, got %v", err)
	}
	if err := lc.Complete(); err != ErrJobFinished {
		t.Errorf("Complete: expected ErrJobFinished, got %v", err)
	}
}

// --- Tests for CANCELLED state ---

func TestLifecycle_Cancel_MidJob(t *testing.T) {
	lc := NewLifecycle("job-1")
	lc.Start(4)
	lc.RecordBatch(BatchApplied)

	if !lc.Cancel() {
		t.Error("expected Cancel() to return true mid-job")
	}
	if lc.State() != StateCancelled {
		t.Errorf("expected StateCancelled, got %v", lc.State())
	}

	// The applied batch stays counted, nothing is rolled back.
	if applied, _ := lc.Counts(); applied != 1 {
		t.Errorf("expected applied batch to be kept, got %d", applied)
	}
	if err := lc.RecordBatch(BatchApplied); err != ErrJobFinished {
		t.Errorf("expected ErrJobFinished after cancel, got %v", err)
	}
}

func TestLifecycle_Cancel_Idempotent(t *testing.T) {
	lc := NewLifecycle("job-1")

	if !lc.Cancel() {
		t.Error("expected first Cancel() to return true")
	}
	if lc.Cancel() {
		t.Error("expected second Cancel() to return false")
	}
}

func TestLifecycle_Cancel_FailsAfterComplete(t *testing.T) {
	lc := NewLifecycle("job-1")
	lc.Complete()

	if lc.Cancel() {
		t.Error("expected Cancel() to return false from COMPLETED state")
	}
	if lc.State() != StateCompleted {
		t.Errorf("expected StateCompleted, got %v", lc.State())
	}
}

func TestLifecycle_ConcurrentRecords(t *testing.T) {
	lc := NewLifecycle("job-1")
	lc.Start(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := BatchApplied
			if i%2 == 0 {
				outcome = BatchDiscarded
			}
			lc.RecordBatch(outcome)
		}(i)
	}
	wg.Wait()

	applied, discarded := lc.Counts()
	if applied != 50 || discarded != 50 {
		t.Errorf("expected 50/50, got %d/%d", applied, discarded)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StatePending, "PENDING"},
		{StateInProgress, "IN_PROGRESS"},
		{StateCompleted, "COMPLETED"},
		{StateCancelled, "CANCELLED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state      State
		isTerminal bool
	}{
		{StatePending, false},
		{StateInProgress, false},
		{StateCompleted, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.isTerminal {
			t.Errorf("State(%s).IsTerminal() = %v, want %v", tt.state, got, tt.isTerminal)
		}
	}
}

func TestBatchOutcome_String(t *testing.T) {
	if BatchApplied.String() != "APPLIED" || BatchDiscarded.String() != "DISCARDED" {
		t.Errorf("unexpected outcome strings: %s %s", BatchApplied, BatchDiscarded)
	}
	if BatchOutcome(7).String() != "UNKNOWN(7)" {
		t.Errorf("unexpected unknown outcome string: %s", BatchOutcome(7))
	}
}

func TestState_TextRoundTrip(t *testing.T) {
	for _, s := range []State{StatePending, StateInProgress, StateCompleted, StateCancelled} {
		b, _ := s.MarshalText()
		var got State
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Errorf("UnmarshalText(%s) = %v, %v", b, got, err)
		}
	}
	var s State
	if err := s.UnmarshalText([]byte("DONE")); err == nil {
		t.Error("expected error for unknown state")
	}

	var o BatchOutcome
	if err := o.UnmarshalText([]byte("DISCARDED")); err != nil || o != BatchDiscarded {
		t.Errorf("UnmarshalText(DISCARDED) = %v, %v", o, err)
	}
	if err := o.UnmarshalText([]byte("SKIPPED")); err == nil {
		t.Error("expected error for unknown outcome")
	}
}
