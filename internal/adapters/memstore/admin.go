package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
)

// RoleOverrideStore is an in-memory role override store.
type RoleOverrideStore struct {
	mu        sync.RWMutex
	overrides map[string]domainauth.Role
}

// NewRoleOverrideStore creates an empty in-memory role override store.
func NewRoleOverrideStore() *RoleOverrideStore {
	return &RoleOverrideStore{overrides: make(map[string]domainauth.Role)}
}

func (s *RoleOverrideStore) Set(_ context.Context, email string, role domainauth.Role, _ string) error {
	if !domainauth.ValidRole(role) {
		return apperrors.ValidationField("role", "unknown role")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[strings.ToLower(email)] = role
	return nil
}

func (s *RoleOverrideStore) Get(_ context.Context, email string) (domainauth.Role, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.overrides[strings.ToLower(email)]
	return role, ok, nil
}

func (s *RoleOverrideStore) List(_ context.Context) (map[string]domainauth.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domainauth.Role, len(s.overrides))
	for email, role := range s.overrides {
		out[email] = role
	}
	return out, nil
}

func (s *RoleOverrideStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, strings.ToLower(email))
	return nil
}

// DomainWhitelistStore is an in-memory runtime domain whitelist.
type DomainWhitelistStore struct {
	mu      sync.RWMutex
	entries map[string]ports.DomainWhitelistEntry
}

// NewDomainWhitelistStore creates an empty in-memory domain whitelist.
func NewDomainWhitelistStore() *DomainWhitelistStore {
	return &DomainWhitelistStore{entries: make(map[string]ports.DomainWhitelistEntry)}
}

func (s *DomainWhitelistStore) Add(_ context.Context, entry ports.DomainWhitelistEntry) error {
	domain := strings.ToLower(strings.TrimSpace(entry.Domain))
	if domain == "" || !strings.Contains(domain, ".") {
		return apperrors.ValidationField("domain", "a dotted domain name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[domain]; exists {
		return apperrors.New(apperrors.ErrCodeConflict, "domain already whitelisted")
	}
	entry.Domain = domain
	s.entries[domain] = entry
	return nil
}

func (s *DomainWhitelistStore) Remove(_ context.Context, domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[domain]; !exists {
		return apperrors.New(apperrors.ErrCodeNotFound, "domain not whitelisted")
	}
	delete(s.entries, domain)
	return nil
}

func (s *DomainWhitelistStore) Contains(_ context.Context, domain string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[strings.ToLower(strings.TrimSpace(domain))]
	return ok, nil
}

func (s *DomainWhitelistStore) List(_ context.Context) ([]ports.DomainWhitelistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ports.DomainWhitelistEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

// ActivityStore is an in-memory activity log, newest first.
type ActivityStore struct {
	mu      sync.RWMutex
	records []ports.ActivityRecord
}

// NewActivityStore creates an empty in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

func (s *ActivityStore) Add(_ context.Context, rec ports.ActivityRecord) error {
	if rec.ID == "" {
		return apperrors.Validation("activity record ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]ports.ActivityRecord{rec}, s.records...)
	return nil
}

func (s *ActivityStore) Recent(_ context.Context, email string, limit int) ([]ports.ActivityRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ports.ActivityRecord
	for _, rec := range s.records {
		if email != "" && !strings.EqualFold(rec.UserEmail, email) {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
