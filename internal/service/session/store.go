package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"transcript-search-service/internal/observability/logging"
	"transcript-search-service/internal/observability/metrics"
)

// Store keeps sessions in memory and evicts the ones idle for longer than
// the TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	maxSize  int
	metrics  *metrics.Metrics
	now      func() time.Time
	cron     *cron.Cron
}

// StoreConfig holds store configuration.
type StoreConfig struct {
	// TTL evicts sessions idle for longer. Zero disables eviction.
	TTL time.Duration
	// MaxSessions caps the number of live sessions. Zero means unlimited.
	MaxSessions int
}

// NewStore creates an empty session store.
func NewStore(cfg StoreConfig, m *metrics.Metrics) *Store {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      cfg.TTL,
		maxSize:  cfg.MaxSessions,
		metrics:  m,
		now:      time.Now,
	}
}

// Create registers a new empty session.
func (s *Store) Create() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSize > 0 && len(s.sessions) >= s.maxSize {
		return nil, ErrStoreFull
	}
	sess := newSession(uuid.NewString(), s.now())
	s.sessions[sess.id] = sess
	s.metrics.RecordSessionCreated()

	logger := logging.WithSession(sess.id)

	logger.Info().Int("sessions", len(s.sessions)).Msg("Session created")
	return sess, nil
}

// Get returns the session and refreshes its last-access time.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	s.metrics.RecordSessionDeleted()
	logger := logging.WithSession(id)
	logger.Info().Msg("Session deleted")
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			delete(s.sessions, id)
			s.metrics.RecordSessionExpired()
			evicted++
		}
	}
	if evicted > 0 {
		logger := logging.WithComponent("session-store")
		logger.Info().
			Int("evicted", evicted).
			Int("remaining", len(s.sessions)).
			Msg("Expired idle sessions")
	}
	return evicted
}

// StartJanitor runs Sweep on the given cron schedule (e.g. "@every 1m").
func (s *Store) StartJanitor(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.Sweep() }); err != nil {
		return err
	}
	c.Start()

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	return nil
}

// Stop halts the janitor and waits for a running sweep to finish.
func (s *Store) Stop(ctx context.Context) {
	s.mu.RLock()
	c := s.cron
	s.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}
