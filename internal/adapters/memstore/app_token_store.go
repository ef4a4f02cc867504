package memstore

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
)

// AppTokenStore is an in-memory app token store. Expired tokens are dropped
// lazily on read.
type AppTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]domainauth.AppToken
	used   map[string]time.Time
}

// NewAppTokenStore creates an empty in-memory app token store.
func NewAppTokenStore() *AppTokenStore {
	return &AppTokenStore{
		tokens: make(map[string]domainauth.AppToken),
		used:   make(map[string]time.Time),
	}
}

func (s *AppTokenStore) Save(_ context.Context, token domainauth.AppToken) error {
	if token.Token == "" {
		return apperrors.Validation("app token value cannot be empty")
	}
	if token.Expired(time.Now()) {
		return apperrors.Validation("app token is already expired")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Token] = token
	return nil
}

func (s *AppTokenStore) Get(_ context.Context, token string) (domainauth.AppToken, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[token]
	if !ok {
		return domainauth.AppToken{}, false, nil
	}
	if tok.Expired(time.Now()) {
		delete(s.tokens, token)
		delete(s.used, token)
		return domainauth.AppToken{}, false, nil
	}
	return tok, true, nil
}

func (s *AppTokenStore) MarkUsed(_ context.Context, token domainauth.AppToken, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used[token.Token] = at
	return nil
}

// Used reports whether a token has a consumption marker. Test helper.
func (s *AppTokenStore) Used(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.used[token]
	return ok
}
