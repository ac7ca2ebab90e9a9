// Package session holds per-caller transcript state and runs the
// transcribe, correct, search and chat workflow against it.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/jinzhu/copier"

	"transcript-search-service/internal/service/correction"
	"transcript-search-service/internal/service/groqapi"
	"transcript-search-service/internal/service/segment"
)

// Session errors.
var (
	ErrNotFound          = errors.New("session not found")
	ErrNoTranscript      = errors.New("session has no transcript")
	ErrCorrectionRunning = errors.New("a correction job is already running for this session")
	ErrTranscriptChanged = errors.New("transcript was replaced while the job was running")
	ErrStoreFull         = errors.New("session limit reached")
)

// Session is the explicit context object for one caller's transcript.
//
// Transcript snapshots are immutable segment indexes; the session only swaps
// pointers under its lock, so readers always see a complete index.
type Session struct {
	mu sync.RWMutex

	id         string
	createdAt  time.Time
	lastAccess time.Time

	source   string
	provider string
	language string

	raw        *segment.Index
	corrected  *segment.Index
	lastReport *correction.Report
	correcting bool

	history []groqapi.Message
}

// Info is a read-only summary of a session.
type Info struct {
	ID         string             `json:"id"`
	CreatedAt  time.Time          `json:"createdAt"`
	LastAccess time.Time          `json:"lastAccess"`
	Source     string             `json:"source,omitempty"`
	Provider   string             `json:"provider,omitempty"`
	Language   string             `json:"language,omitempty"`
	Segments   int                `json:"segments"`
	Words      int                `json:"words"`
	Duration   float64            `json:"duration"`
	Corrected  bool               `json:"corrected"`
	Correcting bool               `json:"correcting"`
	Correction *correction.Report `json:"correction,omitempty"`
	ChatTurns  int                `json:"chatTurns"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{id: id, createdAt: now, lastAccess: now}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = now
}

// idleSince reports whether the session has not been accessed since t.
// Sessions with a running correction job are never idle.
func (s *Session) idleSince(t time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.correcting && s.lastAccess.Before(t)
}

// SetTranscript replaces the raw transcript and drops any correction made
// against the previous one.
func (s *Session) SetTranscript(idx *segment.Index, source, provider, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = idx
	s.corrected = nil
	s.lastReport = nil
	s.source = source
	s.provider = provider
	s.language = language
}

// Raw returns the uncorrected transcript, or nil.
func (s *Session) Raw() *segment.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// Corrected returns the corrected transcript, or nil.
func (s *Session) Corrected() *segment.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corrected
}

// Current returns the corrected transcript when present, else the raw one.
func (s *Session) Current() (*segment.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.corrected != nil {
		return s.corrected, nil
	}
	if s.raw == nil {
		return nil, ErrNoTranscript
	}
	return s.raw, nil
}

// beginCorrection marks a job as running and returns the raw transcript it
// must correct.
func (s *Session) beginCorrection() (*segment.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return nil, ErrNoTranscript
	}
	if s.correcting {
		return nil, ErrCorrectionRunning
	}
	s.correcting = true
	return s.raw, nil
}

// finishCorrection stores the corrected index if base is still the current
// raw transcript. A transcript replaced mid-job wins over the stale result.
func (s *Session) finishCorrection(base, corrected *segment.Index, report *correction.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.correcting = false
	if s.raw != base {
		return ErrTranscriptChanged
	}
	s.corrected = corrected
	s.lastReport = report
	return nil
}

// History returns a deep copy of the chat history.
func (s *Session) History() []groqapi.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []groqapi.Message
	_ = copier.CopyWithOption(&out, &s.history, copier.Option{DeepCopy: true})
	return out
}

// AppendExchange records a completed question and answer.
func (s *Session) AppendExchange(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		groqapi.Message{Role: groqapi.RoleUser, Content: question},
		groqapi.Message{Role: groqapi.RoleAssistant, Content: answer},
	)
}

// ClearHistory drops the chat history.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.corrected
	if current == nil {
		current = s.raw
	}
	return Info{
		ID:         s.id,
		CreatedAt:  s.createdAt,
		LastAccess: s.lastAccess,
		Source:     s.source,
		Provider:   s.provider,
		Language:   s.language,
		Segments:   current.Len(),
		Words:      current.WordCount(),
		Duration:   current.Duration(),
		Corrected:  s.corrected != nil,
		Correcting: s.correcting,
		Correction: s.lastReport,
		ChatTurns:  len(s.history) / 2,
	}
}
