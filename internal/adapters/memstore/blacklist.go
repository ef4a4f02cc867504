package memstore

import (
	"context"
	"strings"
	"sync"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
)

// BlacklistStore is an in-memory revoked-email set.
type BlacklistStore struct {
	mu      sync.RWMutex
	entries map[string]domainauth.BlacklistEntry
}

// NewBlacklistStore creates an empty in-memory blacklist store.
func NewBlacklistStore() *BlacklistStore {
	return &BlacklistStore{entries: make(map[string]domainauth.BlacklistEntry)}
}

func (s *BlacklistStore) Add(_ context.Context, entry domainauth.BlacklistEntry) error {
	if entry.Email == "" {
		return apperrors.Validation("blacklist email cannot be empty")
	}
	entry.Email = strings.ToLower(entry.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Email] = entry
	return nil
}

func (s *BlacklistStore) Get(_ context.Context, email string) (domainauth.BlacklistEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[strings.ToLower(email)]
	return entry, ok, nil
}

func (s *BlacklistStore) IsRevoked(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[strings.ToLower(email)]
	return ok, nil
}
