package redisstore

// Package redisstore provides Redis-backed adapters for sessions, app
// tokens, the revocation blacklist, audit trails, and rate limiting.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
)

const (
	sessionKeyPrefix = "session:"
	emailIndexPrefix = "user_sessions:"
)

// SessionStore is a Redis-backed session store. Session records carry a TTL
// matching ValidUntil so expired sessions are reclaimed without sweeping; an
// email-keyed index set supports revoke-by-email.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client, prefix: sessionKeyPrefix}
}

// NewSessionStoreWithPrefix creates a session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) key(id string) string    { return s.prefix + id }
func (s *SessionStore) index(email string) string { return emailIndexPrefix + email }

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	ttl := time.Until(sess.ValidUntil)
	if ttl <= 0 {
		return errors.New("session is already expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(sess.ID), data, ttl)
	pipe.SAdd(ctx, s.index(sess.User.Email), sess.ID)
	// Index outlives the longest session slightly; stale members are pruned
	// on read in RevokeAllForEmail and PatchRole.
	pipe.Expire(ctx, s.index(sess.User.Email), ttl+time.Hour)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found")
	}

	data, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found")
		}
		return domainauth.Session{}, fmt.Errorf("redis get session: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}

	// TTL should already have reclaimed expired records; double-check.
	if sess.Expired(time.Now()) {
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found")
	}

	return sess, nil
}

// Touch updates LastActivityAt in place. It preserves the remaining TTL and
// never extends ValidUntil.
func (s *SessionStore) Touch(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, func(sess *domainauth.Session) {
		sess.LastActivityAt = at
	})
}

// MarkRevalidated updates LastRevalidatedAt in place.
func (s *SessionStore) MarkRevalidated(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, func(sess *domainauth.Session) {
		sess.LastRevalidatedAt = at
	})
}

// updateRetries bounds optimistic-transaction retries under write contention.
const updateRetries = 8

// update applies fn to a stored session and writes it back with the
// remaining TTL unchanged. The read-modify-write runs inside a WATCH
// transaction so a concurrent writer aborts the SET instead of being
// overwritten; a Touch racing a revoke retries and re-reads the revoked
// record rather than resurrecting the active one.
func (s *SessionStore) update(ctx context.Context, id string, fn func(*domainauth.Session)) error {
	key := s.key(id)

	apply := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found")
			}
			return fmt.Errorf("redis get session: %w", err)
		}

		var sess domainauth.Session
		if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
			return fmt.Errorf("unmarshal session: %w", unmarshalErr)
		}
		fn(&sess)

		ttl := time.Until(sess.ValidUntil)
		if ttl <= 0 {
			return apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found")
		}

		updated, marshalErr := json.Marshal(sess)
		if marshalErr != nil {
			return fmt.Errorf("marshal session: %w", marshalErr)
		}

		_, execErr := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, ttl)
			return nil
		})
		return execErr
	}

	for attempt := 0; attempt < updateRetries; attempt++ {
		err := s.client.Watch(ctx, apply, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis update session %s: %w", id, redis.TxFailedErr)
}

// RevokeAllForEmail transitions every live session for the email to revoked.
// Revoked records keep their TTL so audit inspection remains possible until
// natural expiry.
func (s *SessionStore) RevokeAllForEmail(ctx context.Context, email, revokedBy, reason string) (int, error) {
	ids, err := s.client.SMembers(ctx, s.index(email)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis list sessions for email: %w", err)
	}

	revoked := 0
	for _, id := range ids {
		updateErr := s.update(ctx, id, func(sess *domainauth.Session) {
			sess.Status = domainauth.SessionRevoked
			sess.RevokedBy = revokedBy
			sess.RevokedReason = reason
		})
		if updateErr != nil {
			if apperrors.IsSessionNotFound(updateErr) {
				// Stale index member; prune it.
				s.client.SRem(ctx, s.index(email), id)
				continue
			}
			return revoked, updateErr
		}
		revoked++
	}
	return revoked, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	sess, err := s.Get(ctx, id)
	if err == nil {
		s.client.SRem(ctx, s.index(sess.User.Email), id)
	}
	return s.client.Del(ctx, s.key(id)).Err()
}

// PatchRole updates the role snapshot on every live session for the email.
func (s *SessionStore) PatchRole(ctx context.Context, email string, role domainauth.Role) (int, error) {
	ids, err := s.client.SMembers(ctx, s.index(email)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis list sessions for email: %w", err)
	}

	patched := 0
	for _, id := range ids {
		updateErr := s.update(ctx, id, func(sess *domainauth.Session) {
			sess.User.Role = role
		})
		if updateErr != nil {
			if apperrors.IsSessionNotFound(updateErr) {
				s.client.SRem(ctx, s.index(email), id)
				continue
			}
			return patched, updateErr
		}
		patched++
	}
	return patched, nil
}

// ListEmails returns the emails that currently have at least one session
// index. Used by the admin user listing.
func (s *SessionStore) ListEmails(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		emails []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, emailIndexPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan session index: %w", err)
		}
		for _, key := range keys {
			emails = append(emails, key[len(emailIndexPrefix):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return emails, nil
}
