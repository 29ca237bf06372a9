package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/KaramelBytes/ags-analyzer/internal/metrics"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

type StoreConfig struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	TTL    time.Duration // idle time after which a session is dropped
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.TTL <= 0 {
		return errors.New("ttl must be greater than 0")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Store keeps sessions in memory, keyed by a random id.
type Store struct {
	log *slog.Logger
	cfg StoreConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		log:      cfg.Logger,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}, nil
}

// Create registers a new session in state NoData.
func (s *Store) Create() *Session {
	now := s.cfg.Clock.Now()
	sess := &Session{ID: uuid.NewString(), Created: now, lastSeen: now}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	s.log.Debug("session: created", "id", sess.ID)
	return sess
}

// Get returns a live session and refreshes its idle timer.
func (s *Store) Get(id string) (*Session, error) {
	now := s.cfg.Clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if now.Sub(sess.lastSeen) > s.cfg.TTL {
		s.remove(id, true)
		return nil, ErrNotFound
	}
	sess.lastSeen = now
	return sess, nil
}

// Delete drops a session. It reports whether the id was known.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	s.remove(id, false)
	return true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes every session idle for longer than the TTL and returns how
// many were removed.
func (s *Store) Sweep() int {
	now := s.cfg.Clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.cfg.TTL {
			s.remove(id, true)
			n++
		}
	}
	if n > 0 {
		s.log.Info("session: swept idle sessions", "removed", n, "active", len(s.sessions))
	}
	return n
}

// callers hold s.mu
func (s *Store) remove(id string, expired bool) {
	delete(s.sessions, id)
	if expired {
		metrics.SessionsExpiredTotal.Inc()
		s.log.Debug("session: expired", "id", id)
	}
	metrics.SessionsActive.Set(float64(len(s.sessions)))
}

// Start sweeps idle sessions every half TTL until ctx is done.
func (s *Store) Start(ctx context.Context) {
	go func() {
		ticker := s.cfg.Clock.NewTicker(s.cfg.TTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.Sweep()
			}
		}
	}()
}
