package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// DefaultSweepInterval is how often Run looks for expired sessions when no
// usable interval is given.
const DefaultSweepInterval = time.Minute

// Session pairs an ID with its store. Image data lives only here, in memory,
// and disappears when the session is deleted or expires.
type Session struct {
	ID    string
	Store *Store

	lastSeen time.Time
}

// Sessions is the in-memory session registry.
type Sessions struct {
	mu     sync.Mutex
	byID   map[string]*Session
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewSessions creates a registry that expires sessions idle for longer than ttl.
func NewSessions(ttl time.Duration, logger *zap.Logger) *Sessions {
	return &Sessions{
		byID:   make(map[string]*Session),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Create starts a new empty session.
func (s *Sessions) Create() *Session {
	id := uuid.NewString()
	sess := &Session{ID: id, Store: NewStore(id), lastSeen: s.now()}

	s.mu.Lock()
	s.byID[id] = sess
	s.mu.Unlock()

	return sess
}

// Get looks a session up and refreshes its idle timer.
func (s *Sessions) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = s.now()
	return sess, nil
}

// Delete ends a session, cancelling any job still running for it.
func (s *Sessions) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.byID[id]
	delete(s.byID, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.Store.Reset()
	return nil
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Sweep removes sessions idle since before now-ttl and returns how many went.
func (s *Sessions) Sweep(now time.Time) int {
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.byID {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.byID, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Store.Reset()
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done. A non-positive interval falls
// back to DefaultSweepInterval.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Warn("invalid sweep interval, using default",
			zap.Duration("interval", interval), zap.Duration("default", DefaultSweepInterval))
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Info("expired idle sessions", zap.Int("count", n), zap.Int("remaining", s.Len()))
			}
		}
	}
}
