package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"theory-exam-service/internal/app"
)

// AttemptStore is a Redis-aware implementation of app.AttemptRepository.
// Sessions themselves stay in a local map: the state machine and its timer
// are live objects bound to one process, so an interrupted attempt restarts
// rather than resuming. Redis marks attempt liveness so operators can see
// open attempts across instances.
type AttemptStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	attempts map[string]*app.Session
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		attempts: make(map[string]*app.Session),
	}
}

func (s *AttemptStore) Put(attemptID string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attemptID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(attemptID), session.Exam().ID, s.ttl).Err()
}

func (s *AttemptStore) Get(attemptID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.attempts[attemptID]
	return session, ok
}

func (s *AttemptStore) Delete(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attemptID)
	_ = s.client.Del(context.Background(), s.key(attemptID)).Err()
}

func (s *AttemptStore) key(attemptID string) string {
	return "exam:attempt:" + attemptID
}
