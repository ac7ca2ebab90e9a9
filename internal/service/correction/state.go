package correction

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a correction job.
type State int

const (
	// StatePending - Job created, no batch issued yet.
	StatePending State = iota
	// StateInProgress - Batches are being corrected.
	StateInProgress
	// StateCompleted - Every batch was applied or discarded.
	StateCompleted
	// StateCancelled - Job stopped before all batches were issued.
	// Batches already applied stay applied; the rest keep original text.
	StateCancelled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateCompleted:
		return "COMPLETED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// MarshalText encodes the state as its string form.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state from its string form.
func (s *State) UnmarshalText(b []byte) error {
	for _, v := range []State{StatePending, StateInProgress, StateCompleted, StateCancelled} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown job state %q", b)
}

// IsTerminal returns true if the state is terminal (COMPLETED or CANCELLED).
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// BatchOutcome records what happened to a single batch.
type BatchOutcome int

const (
	// BatchApplied - corrected pieces were assigned 1:1 to the batch segments.
	BatchApplied BatchOutcome = iota
	// BatchDiscarded - the correction was dropped and the batch kept its
	// original text. "Original text > misaligned text"
	BatchDiscarded
)

// String returns the string representation of the outcome.
func (o BatchOutcome) String() string {
	switch o {
	case BatchApplied:
		return "APPLIED"
	case BatchDiscarded:
		return "DISCARDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", o)
	}
}

// MarshalText encodes the outcome as its string form.
func (o BatchOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome from its string form.
func (o *BatchOutcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "APPLIED":
		*o = BatchApplied
	case "DISCARDED":
		*o = BatchDiscarded
	default:
		return fmt.Errorf("unknown batch outcome %q", b)
	}
	return nil
}

// Errors for invalid state transitions.
var (
	ErrJobNotPending    = errors.New("correction job already started")
	ErrJobNotInProgress = errors.New("correction job is not in progress")
	ErrJobFinished      = errors.New("correction job is finished")
	ErrTooManyBatches   = errors.New("more batches recorded than planned")
)

// Lifecycle manages the state machine for a single correction job.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	PENDING → IN_PROGRESS(batch i of n) → COMPLETED
//	              │
//	              ├── RecordBatch(APPLIED | DISCARDED) ──→ once per batch
//	              │
//	              └── Cancel() ──→ CANCELLED
//
// Rules:
//   - PENDING: Start() moves to IN_PROGRESS with the planned batch count
//   - IN_PROGRESS: RecordBatch() once per batch; Complete() once all are recorded
//   - COMPLETED/CANCELLED: all operations return errors or are no-ops
type Lifecycle struct {
	mu        sync.RWMutex
	jobId     string
	state     State
	total     int
	applied   int
	discarded int
}

// NewLifecycle creates a new job lifecycle in PENDING state.
func NewLifecycle(jobId string) *Lifecycle {
	return &Lifecycle{
		jobId: jobId,
		state: StatePending,
	}
}

// JobId returns the job ID.
func (l *Lifecycle) JobId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.jobId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Progress returns the number of recorded batches and the planned total.
func (l *Lifecycle) Progress() (done, total int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.applied + l.discarded, l.total
}

// Counts returns how many batches were applied and discarded.
func (l *Lifecycle) Counts() (applied, discarded int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.applied, l.discarded
}

// Start transitions PENDING → IN_PROGRESS with the planned number of batches.
func (l *Lifecycle) Start(totalBatches int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StatePending:
		l.state = StateInProgress
		l.total = totalBatches
		return nil
	case StateInProgress:
		return ErrJobNotPending
	case StateCompleted, StateCancelled:
		return ErrJobFinished
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// RecordBatch records the outcome of one batch.
func (l *Lifecycle) RecordBatch(outcome BatchOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateInProgress:
		if l.applied+l.discarded >= l.total {
			return ErrTooManyBatches
		}
		if outcome == BatchApplied {
			l.applied++
		} else {
			l.discarded++
		}
		return nil
	case StatePending:
		return ErrJobNotInProgress
	case StateCompleted, StateCancelled:
		return ErrJobFinished
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Complete transitions IN_PROGRESS → COMPLETED.
// A job with zero planned batches may complete straight from PENDING.
func (l *Lifecycle) Complete() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StatePending:
		if l.total != 0 {
			return ErrJobNotInProgress
		}
		l.state = StateCompleted
		return nil
	case StateInProgress:
		l.state = StateCompleted
		return nil
	case StateCompleted, StateCancelled:
		return ErrJobFinished
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Cancel transitions the job to CANCELLED.
// Already-applied batches are not rolled back.
//
// Returns true if the job was cancelled, false if already in a terminal state.
func (l *Lifecycle) Cancel() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateCancelled
	return true
}
