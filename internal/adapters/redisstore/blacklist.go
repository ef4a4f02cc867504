package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
)

const blacklistKeyPrefix = "blacklist:"

// BlacklistStore is the durable revoked-email set. Entries never expire;
// removing one requires external intervention.
type BlacklistStore struct {
	client redis.UniversalClient
}

// NewBlacklistStore creates a Redis-backed blacklist store.
func NewBlacklistStore(client redis.UniversalClient) *BlacklistStore {
	return &BlacklistStore{client: client}
}

func (s *BlacklistStore) key(email string) string {
	return blacklistKeyPrefix + strings.ToLower(email)
}

func (s *BlacklistStore) Add(ctx context.Context, entry domainauth.BlacklistEntry) error {
	if entry.Email == "" {
		return errors.New("blacklist email cannot be empty")
	}
	entry.Email = strings.ToLower(entry.Email)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal blacklist entry: %w", err)
	}
	// No TTL: revocation is permanent.
	return s.client.Set(ctx, s.key(entry.Email), data, 0).Err()
}

func (s *BlacklistStore) Get(ctx context.Context, email string) (domainauth.BlacklistEntry, bool, error) {
	data, err := s.client.Get(ctx, s.key(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.BlacklistEntry{}, false, nil
		}
		return domainauth.BlacklistEntry{}, false, fmt.Errorf("redis get blacklist entry: %w", err)
	}

	var entry domainauth.BlacklistEntry
	if unmarshalErr := json.Unmarshal([]byte(data), &entry); unmarshalErr != nil {
		return domainauth.BlacklistEntry{}, false, fmt.Errorf("unmarshal blacklist entry: %w", unmarshalErr)
	}
	return entry, true, nil
}

func (s *BlacklistStore) IsRevoked(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(email)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check blacklist: %w", err)
	}
	return n > 0, nil
}
