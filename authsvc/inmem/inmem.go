// Package inmem keeps sessions in process memory. Sessions are lost on
// restart; use consulkv to share them between gateway instances.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/ichigozero/gtdweb/authsvc"
)

type entry struct {
	session authsvc.Session
	flashes []authsvc.Flash
}

type store struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	lifetime time.Duration
	now      func() time.Time
}

func NewStore(lifetime time.Duration) authsvc.SessionStore {
	return &store{
		entries:  make(map[string]*entry),
		lifetime: lifetime,
		now:      time.Now,
	}
}

func (s *store) Create(_ context.Context, userID uint64, username string) (authsvc.Session, error) {
	if userID == 0 {
		return authsvc.Session{}, authsvc.ErrInvalidArgument
	}

	session := authsvc.Session{
		Token:     authsvc.NewToken(),
		UserID:    userID,
		Username:  username,
		ExpiresAt: s.now().Add(s.lifetime),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.entries[session.Token] = &entry{session: session}

	return session, nil
}

func (s *store) Get(_ context.Context, token string) (authsvc.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[token]
	if !ok || e.session.Expired(s.now()) {
		return authsvc.Session{}, authsvc.ErrSessionNotFound
	}

	return e.session, nil
}

func (s *store) Destroy(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)

	return nil
}

func (s *store) AddFlash(_ context.Context, token string, f authsvc.Flash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok || e.session.Expired(s.now()) {
		return authsvc.ErrSessionNotFound
	}
	e.flashes = append(e.flashes, f)

	return nil
}

func (s *store) PopFlashes(_ context.Context, token string) ([]authsvc.Flash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok || e.session.Expired(s.now()) {
		return nil, authsvc.ErrSessionNotFound
	}
	flashes := e.flashes
	e.flashes = nil

	return flashes, nil
}

// purgeLocked drops expired sessions. Callers hold s.mu.
func (s *store) purgeLocked() {
	now := s.now()
	for token, e := range s.entries {
		if e.session.Expired(now) {
			delete(s.entries, token)
		}
	}
}
