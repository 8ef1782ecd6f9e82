package redis

import (
	"context"
	"sync"
	"time"

	"exam-session-service/internal/session"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Controllers stay in process; Redis holds a liveness hash per session so
// other services can see which sessions are running and for which exam.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*session.Controller
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*session.Controller),
	}
}

func (s *SessionStore) Put(c *session.Controller) {
	s.mu.Lock()
	s.sessions[c.ID()] = c
	s.mu.Unlock()

	view := c.View()
	ctx := context.Background()
	key := sessionKey(c.ID())
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"exam_id":    c.ExamID(),
		"status":     string(view.Status),
		"started_at": time.Now().Unix(),
	})
	if ttl := s.keyTTL(view.RemainingSeconds); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	// best-effort liveness marker
	_, _ = pipe.Exec(ctx)
}

func (s *SessionStore) Get(sessionID string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[sessionID]
	return c, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), sessionKey(sessionID)).Err()
}

// keyTTL outlives the exam itself by the configured retention.
func (s *SessionStore) keyTTL(remainingSeconds int) time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	return time.Duration(remainingSeconds)*time.Second + s.ttl
}
