// Package workflow owns the per-session state machine: upload, process, display.
//
// A Store holds the image pair and the processing status of one session. The
// Orchestrator is the only thing that moves the status between Idle, Busy and
// Failed; handlers read snapshots and replace the original image, nothing else.
package workflow

import (
	"context"
	"sync"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
)

// Snapshot is a consistent copy of a store's state.
type Snapshot struct {
	Payload  model.ImagePayload
	Status   model.Status
	Revision uint64
}

// Store is the state container for one session. HTTP requests for the same
// session may arrive on different goroutines, so every access takes the mutex.
type Store struct {
	id string

	mu       sync.Mutex
	payload  model.ImagePayload
	status   model.Status
	revision uint64 // bumped on every new original; the stale-response guard compares it
	cancel   context.CancelFunc
}

// NewStore creates an empty, idle store.
func NewStore(id string) *Store {
	return &Store{id: id, status: model.Idle()}
}

// ID returns the session ID the store belongs to.
func (s *Store) ID() string { return s.id }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Payload: s.payload, Status: s.status, Revision: s.revision}
}

// Replace installs a freshly ingested payload. The processed image is always
// cleared, the status returns to Idle, and any in-flight job is cancelled: its
// result, if it still arrives, belongs to an older revision and is dropped.
func (s *Store) Replace(p model.ImagePayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payload = model.ImagePayload{Original: p.Original, MIMEType: p.MIMEType}
	s.status = model.Idle()
	s.revision++
	s.cancelLocked()
}

// Reset drops everything, as if the session had just started.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payload = model.ImagePayload{}
	s.status = model.Idle()
	s.revision++
	s.cancelLocked()
}

func (s *Store) cancelLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// begin moves the store to Busy. It is the single-flight gate: it fails
// with ErrNoImage or ErrBusy without touching the state.
// preflight runs under the lock so a failed check lands as Failed without
// Busy ever being visible.
func (s *Store) begin(progress string, preflight func() (string, error)) (model.DataURI, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.payload.Original.IsZero() {
		return "", 0, ErrNoImage
	}
	if s.status.IsBusy() {
		return "", 0, ErrBusy
	}
	if msg, err := preflight(); err != nil {
		s.status = model.Failed(msg)
		return "", 0, err
	}

	s.status = model.Busy(progress)
	return s.payload.Original, s.revision, nil
}

// attach registers the cancel func of the job working on revision rev.
// It reports false, and cancels right away, if the original was replaced
// in the meantime.
func (s *Store) attach(rev uint64, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rev != s.revision {
		cancel()
		return false
	}
	s.cancel = cancel
	return true
}

// commit stores the processed image if rev is still current.
func (s *Store) commit(rev uint64, processed model.DataURI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rev != s.revision {
		return false
	}
	s.payload.Processed = processed
	s.status = model.Idle()
	s.cancel = nil
	return true
}

// fail records a failure if rev is still current.
func (s *Store) fail(rev uint64, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rev != s.revision {
		return false
	}
	s.status = model.Failed(message)
	s.cancel = nil
	return true
}
