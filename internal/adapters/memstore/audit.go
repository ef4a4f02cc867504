package memstore

import (
	"context"
	"sync"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	"github.com/terralink-energy/portal-api/internal/ports"
)

const memAuditCap = 10000

// AuditLog is an in-memory capped audit trail, newest first.
type AuditLog struct {
	mu    sync.RWMutex
	lists map[ports.AuditCategory][]domainauth.AuditEntry
}

// NewAuditLog creates an empty in-memory audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{lists: make(map[ports.AuditCategory][]domainauth.AuditEntry)}
}

func (a *AuditLog) Append(_ context.Context, category ports.AuditCategory, entry domainauth.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	list := append([]domainauth.AuditEntry{entry}, a.lists[category]...)
	if len(list) > memAuditCap {
		list = list[:memAuditCap]
	}
	a.lists[category] = list
	return nil
}

func (a *AuditLog) Recent(_ context.Context, category ports.AuditCategory, limit int) ([]domainauth.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	list := a.lists[category]
	if limit > len(list) {
		limit = len(list)
	}
	out := make([]domainauth.AuditEntry, limit)
	copy(out, list[:limit])
	return out, nil
}
