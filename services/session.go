package services

import (
	"sync"
	"time"

	"insightQuestAPI/internal/types/user"
)

// Session is the signed-in wallet. Every operation that reads or mutates the
// user takes it explicitly. The user copy it holds only changes after the
// store accepted the write.
type Session struct {
	ConnectedAt time.Time

	mu       sync.Mutex
	user     *user.User
	lastSeen time.Time
}

func newSession(u *user.User, now time.Time) *Session {
	return &Session{ConnectedAt: now, user: u.Clone(), lastSeen: now}
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.ID
}

// User returns a copy of the confirmed user record.
func (s *Session) User() *user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.Clone()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff)
}

type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*Session)}
}

func (r *sessionRegistry) get(userID string, now time.Time) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	if ok {
		s.touch(now)
	}
	return s, ok
}

// getOrAdd keeps the first session registered for a user.
func (r *sessionRegistry) getOrAdd(userID string, s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[userID]; ok {
		return existing
	}
	r.sessions[userID] = s
	return s
}

func (r *sessionRegistry) remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

func (r *sessionRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// evictIdle drops sessions not used since cutoff. They are resumed from the
// store on the next request.
func (r *sessionRegistry) evictIdle(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.sessions {
		if s.idleSince(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
