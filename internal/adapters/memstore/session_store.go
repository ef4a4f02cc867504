package memstore

// Package memstore provides in-memory implementations of the storage ports.
// They back dev mode when no Redis or Postgres is configured and the service
// layer unit tests. All stores are safe for concurrent use.

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
)

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domainauth.Session)}
}

func (s *SessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return apperrors.Validation("session ID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || sess.Expired(time.Now()) {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found")
	}
	return sess, nil
}

func (s *SessionStore) Touch(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(sess *domainauth.Session) {
		sess.LastActivityAt = at
	})
}

func (s *SessionStore) MarkRevalidated(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(sess *domainauth.Session) {
		sess.LastRevalidatedAt = at
	})
}

func (s *SessionStore) update(id string, fn func(*domainauth.Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Expired(time.Now()) {
		return apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found")
	}
	fn(&sess)
	s.sessions[id] = sess
	return nil
}

func (s *SessionStore) RevokeAllForEmail(_ context.Context, email, revokedBy, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	revoked := 0
	for id, sess := range s.sessions {
		if sess.User.Email != email || sess.Expired(now) {
			continue
		}
		sess.Status = domainauth.SessionRevoked
		sess.RevokedBy = revokedBy
		sess.RevokedReason = reason
		s.sessions[id] = sess
		revoked++
	}
	return revoked, nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) PatchRole(_ context.Context, email string, role domainauth.Role) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	patched := 0
	for id, sess := range s.sessions {
		if sess.User.Email != email || sess.Expired(now) {
			continue
		}
		sess.User.Role = role
		s.sessions[id] = sess
		patched++
	}
	return patched, nil
}

func (s *SessionStore) ListEmails(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	seen := make(map[string]bool)
	var emails []string
	for _, sess := range s.sessions {
		if sess.Expired(now) || seen[sess.User.Email] {
			continue
		}
		seen[sess.User.Email] = true
		emails = append(emails, sess.User.Email)
	}
	return emails, nil
}
