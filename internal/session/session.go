// Package session holds the per-user timed simulation attempt: an ephemeral
// state machine from configuration through navigation to one persisted
// history row.
package session

import (
	"sync"
	"time"
)

// Session is one in-progress simulation attempt. It lives only in the
// session store; finalizing converts it into a quiz.History row and deletes
// it.
type Session struct {
	TestID string
	// Questions fixes the sampled question ids and their order for the
	// attempt's lifetime.
	Questions []string
	Current   int
	// Answers maps question id to the submitted payload (string, []string
	// or map[string]string depending on the question type).
	Answers   map[string]any
	StartTime time.Time
	// TimeLimit of zero means unlimited.
	TimeLimit time.Duration
}

// Expired reports whether the attempt ran out of time as of now.
func (s Session) Expired(now time.Time) bool {
	return s.TimeLimit > 0 && now.Sub(s.StartTime) > s.TimeLimit
}

// Remaining returns the time left, clamped at zero. The second result is
// false for unlimited sessions.
func (s Session) Remaining(now time.Time) (time.Duration, bool) {
	if s.TimeLimit <= 0 {
		return 0, false
	}
	left := s.TimeLimit - now.Sub(s.StartTime)
	if left < 0 {
		left = 0
	}
	return left, true
}

// Store keeps at most one Session per user. Implementations must make
// Get/Set/Clear individually atomic; last write wins under near-simultaneous
// requests for the same user.
type Store interface {
	Get(userID string) (Session, bool)
	Set(userID string, s Session)
	Clear(userID string)
}

type memStore struct {
	mu sync.RWMutex
	m  map[string]Session
}

// NewMemoryStore returns an in-process Store. Sessions are copied on the
// way in and out so callers never share the answers map with the store.
func NewMemoryStore() Store {
	return &memStore{m: map[string]Session{}}
}

func (s *memStore) Get(userID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.m[userID]
	if !ok {
		return Session{}, false
	}
	return clone(sess), true
}

func (s *memStore) Set(userID string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID] = clone(sess)
}

func (s *memStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}

func clone(sess Session) Session {
	out := sess
	out.Questions = append([]string(nil), sess.Questions...)
	out.Answers = make(map[string]any, len(sess.Answers))
	for k, v := range sess.Answers {
		out.Answers[k] = v
	}
	return out
}
