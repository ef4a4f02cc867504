package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
)

const (
	appTokenKeyPrefix  = "app_token:"
	usedTokenKeyPrefix = "used_token:"
)

// AppTokenStore persists short-lived app tokens. The key TTL equals the
// token lifetime, so expired tokens vanish without explicit deletion.
type AppTokenStore struct {
	client redis.UniversalClient
}

// NewAppTokenStore creates a Redis-backed app token store.
func NewAppTokenStore(client redis.UniversalClient) *AppTokenStore {
	return &AppTokenStore{client: client}
}

func (s *AppTokenStore) Save(ctx context.Context, token domainauth.AppToken) error {
	if token.Token == "" {
		return errors.New("app token value cannot be empty")
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return errors.New("app token is already expired")
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal app token: %w", err)
	}
	return s.client.Set(ctx, appTokenKeyPrefix+token.Token, data, ttl).Err()
}

func (s *AppTokenStore) Get(ctx context.Context, token string) (domainauth.AppToken, bool, error) {
	if token == "" {
		return domainauth.AppToken{}, false, nil
	}

	data, err := s.client.Get(ctx, appTokenKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.AppToken{}, false, nil
		}
		return domainauth.AppToken{}, false, fmt.Errorf("redis get app token: %w", err)
	}

	var tok domainauth.AppToken
	if unmarshalErr := json.Unmarshal([]byte(data), &tok); unmarshalErr != nil {
		return domainauth.AppToken{}, false, fmt.Errorf("unmarshal app token: %w", unmarshalErr)
	}
	if tok.Expired(time.Now()) {
		return domainauth.AppToken{}, false, nil
	}
	return tok, true, nil
}

// MarkUsed records a consumption marker alongside the token. Tokens remain
// valid for their full lifetime; the marker feeds the audit trail only.
func (s *AppTokenStore) MarkUsed(ctx context.Context, token domainauth.AppToken, at time.Time) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	marker := map[string]any{
		"email":   token.User.Email,
		"app_id":  token.AppID,
		"used_at": at.UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("marshal used marker: %w", err)
	}
	return s.client.Set(ctx, usedTokenKeyPrefix+token.Token, data, ttl).Err()
}
