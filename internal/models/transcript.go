// Package models defines the data structures for transcript events.
package models

// Event types, also used as default topic names.
const (
	EventSessionTranscribed  = "transcript.session.transcribed"
	EventCorrectionBatch     = "transcript.correction.batch"
	EventCorrectionCompleted = "transcript.correction.completed"
)

// SessionTranscribed is emitted once a session holds a transcript, either
// from an ASR provider or imported by the caller.
type SessionTranscribed struct {
	EventType    string  `json:"eventType"`
	SessionID    string  `json:"sessionId"`
	Timestamp    int64   `json:"timestamp"`
	Source       string  `json:"source"`
	Provider     string  `json:"provider"`
	Language     string  `json:"language,omitempty"`
	Duration     float64 `json:"duration"`
	SegmentCount int     `json:"segmentCount"`
	WordCount    int     `json:"wordCount"`
}

// CorrectionBatch is emitted for every finished batch of a correction job.
type CorrectionBatch struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	JobID     string `json:"jobId"`
	Timestamp int64  `json:"timestamp"`
	Batch     int    `json:"batch"`
	Batches   int    `json:"batches"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
}

// CorrectionCompleted is emitted when a correction job reaches a terminal
// state.
type CorrectionCompleted struct {
	EventType    string `json:"eventType"`
	SessionID    string `json:"sessionId"`
	JobID        string `json:"jobId"`
	Timestamp    int64  `json:"timestamp"`
	Strategy     string `json:"strategy"`
	State        string `json:"state"`
	Applied      int    `json:"applied"`
	Discarded    int    `json:"discarded"`
	Skipped      int    `json:"skipped"`
	DurationMs   int64  `json:"durationMs"`
	WordMismatch bool   `json:"wordMismatch,omitempty"`
}
