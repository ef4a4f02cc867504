package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	"github.com/terralink-energy/portal-api/internal/ports"
)

const auditKeyPrefix = "audit:"

// auditCaps bounds each audit list. LPUSH keeps newest entries at the head;
// LTRIM drops the oldest past the cap.
var auditCaps = map[ports.AuditCategory]int64{
	ports.AuditLogins:      10000,
	ports.AuditValidations: 10000,
	ports.AuditRevocations: 1000,
}

const defaultAuditCap = 10000

// AuditLog is a Redis-backed capped audit trail, one list per category.
type AuditLog struct {
	client redis.UniversalClient
}

// NewAuditLog creates a Redis-backed audit log.
func NewAuditLog(client redis.UniversalClient) *AuditLog {
	return &AuditLog{client: client}
}

func (a *AuditLog) key(category ports.AuditCategory) string {
	return auditKeyPrefix + string(category)
}

func (a *AuditLog) Append(ctx context.Context, category ports.AuditCategory, entry domainauth.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	cap, ok := auditCaps[category]
	if !ok {
		cap = defaultAuditCap
	}

	pipe := a.client.TxPipeline()
	pipe.LPush(ctx, a.key(category), data)
	pipe.LTrim(ctx, a.key(category), 0, cap-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to limit entries, newest first.
func (a *AuditLog) Recent(ctx context.Context, category ports.AuditCategory, limit int) ([]domainauth.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	raw, err := a.client.LRange(ctx, a.key(category), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read audit list: %w", err)
	}

	entries := make([]domainauth.AuditEntry, 0, len(raw))
	for _, item := range raw {
		var entry domainauth.AuditEntry
		if unmarshalErr := json.Unmarshal([]byte(item), &entry); unmarshalErr != nil {
			// Skip corrupt entries rather than failing the whole read.
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
