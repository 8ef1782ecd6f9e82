package memory

import (
	"sync"

	"exam-session-service/internal/session"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Controller
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Controller),
	}
}

func (s *SessionStore) Put(c *session.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[c.ID()] = c
}

func (s *SessionStore) Get(sessionID string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[sessionID]
	return c, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len reports how many sessions are live.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
