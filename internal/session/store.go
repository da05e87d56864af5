// Package session keeps per-upload sessions in memory. Writers publish
// whole-session snapshots; readers get a consistent clone and never
// observe a torn write. Sessions idle past the TTL are swept
// periodically.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seb1936247/wine-value-finder/internal/model"
)

// DefaultTTL is how long an idle session survives before the sweeper
// removes it.
const DefaultTTL = time.Hour

// ErrNotFound is returned when no session exists for an ID.
var ErrNotFound = eris.New("session not found")

// Store is a keyed in-memory session store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a session store with the given idle TTL. A
// non-positive TTL falls back to DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*model.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (s *Store) WithNow(now func() time.Time) *Store {
	s.now = now
	return s
}

// Get returns a snapshot of the session, or ErrNotFound.
func (s *Store) Get(id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Put publishes a complete session snapshot, replacing any prior state
// atomically. The store takes its own copy; callers may keep mutating
// their instance.
func (s *Store) Put(sess *model.Session) {
	snap := sess.Clone()
	snap.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[snap.ID] = snap
}

// Update applies fn to a copy of the session under the store lock and
// publishes the result if fn succeeds. This is the compare-and-publish
// primitive handlers use for state transitions like the lookup-start
// conflict check.
func (s *Store) Update(id string, fn func(*model.Session) error) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := sess.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	s.sessions[id] = next
	return next.Clone(), nil
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep removes sessions idle longer than the TTL and reports how many
// were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		idle := sess.UpdatedAt
		if idle.IsZero() {
			idle = sess.CreatedAt
		}
		if idle.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					zap.L().Info("session sweep", zap.Int("removed", n))
				}
			}
		}
	}()
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
