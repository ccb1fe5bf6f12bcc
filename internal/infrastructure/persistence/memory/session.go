package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

type sessionEntry struct {
	data      map[string]string
	expiresAt time.Time
}

// SessionStore is the single-process stand-in for the Redis session store,
// used when redis.enabled is false. Expired entries are dropped on read.
type SessionStore struct {
	mu        sync.Mutex
	now       func() time.Time
	sessions  map[uint]sessionEntry
	blacklist map[string]time.Time
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		now:       time.Now,
		sessions:  make(map[uint]sessionEntry),
		blacklist: make(map[string]time.Time),
	}
}

func (s *SessionStore) SaveSession(_ context.Context, userID uint, data map[string]interface{}, ttl time.Duration) error {
	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = fmt.Sprint(v)
	}

	s.mu.Lock()
	s.sessions[userID] = sessionEntry{data: copied, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, userID uint) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[userID]
	if !ok || !s.now().Before(e.expiresAt) {
		delete(s.sessions, userID)
		return nil, apperrors.ErrUnauthorized
	}
	out := make(map[string]string, len(e.data))
	for k, v := range e.data {
		out[k] = v
	}
	return out, nil
}

func (s *SessionStore) DeleteSession(_ context.Context, userID uint) error {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) AddToBlacklist(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	s.blacklist[token] = s.now().Add(ttl)
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) IsInBlacklist(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.blacklist[token]
	if !ok {
		return false, nil
	}
	if !s.now().Before(exp) {
		delete(s.blacklist, token)
		return false, nil
	}
	return true, nil
}
