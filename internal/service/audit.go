package service

import (
	"context"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	"github.com/terralink-energy/portal-api/internal/ports"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newEntryID returns a sortable unique identifier for audit and activity
// records.
func newEntryID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// auditor appends audit entries best-effort. An append failure is logged and
// never fails the calling operation.
type auditor struct {
	log    ports.AuditLog
	logger *slog.Logger
}

func newAuditor(log ports.AuditLog, logger *slog.Logger) *auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &auditor{log: log, logger: logger}
}

func (a *auditor) append(ctx context.Context, category ports.AuditCategory, entry domainauth.AuditEntry) {
	if a.log == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = newEntryID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := a.log.Append(ctx, category, entry); err != nil {
		a.logger.WarnContext(ctx, "audit append failed",
			"category", string(category), "action", entry.Action, "err", err)
	}
}
