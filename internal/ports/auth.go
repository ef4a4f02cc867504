package ports

// Package ports defines interfaces (hexagonal ports) for the token lifecycle.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
)

// Credential is an opaque identity-provider credential presented at login:
// either a raw ID token, or an authorization code plus the redirect target it
// was issued for.
type Credential struct {
	IDToken     string
	Code        string
	RedirectURI string
}

// CredentialVerifier validates an identity-provider credential and returns
// the verified identity. Verification failures are reported as
// invalid_assertion; an unverified email as email_not_verified.
type CredentialVerifier interface {
	Verify(ctx context.Context, cred Credential) (domainauth.Identity, error)
}

// RevalidationResult is the outcome of a periodic identity re-check.
type RevalidationResult struct {
	// Valid reports whether the provider still vouches for the identity.
	// Only meaningful when the check completed (err == nil).
	Valid  bool
	Reason string
}

// IdentityRevalidator re-checks a previously captured credential against the
// identity provider. A non-nil error means the check could not complete
// (transient) and the caller must fail open; Valid=false with nil error is a
// provider-confirmed invalidation and must revoke.
type IdentityRevalidator interface {
	Revalidate(ctx context.Context, rawCredential string) (RevalidationResult, error)
}

// SessionStore persists and retrieves user sessions. Implementations must
// return a session_not_found coded error (errors.IsSessionNotFound) for
// missing or expired sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	// Touch updates LastActivityAt only. It must never extend ValidUntil.
	Touch(ctx context.Context, id string, at time.Time) error
	// MarkRevalidated updates LastRevalidatedAt.
	MarkRevalidated(ctx context.Context, id string, at time.Time) error
	// RevokeAllForEmail transitions every session for the email to revoked
	// and returns the count affected.
	RevokeAllForEmail(ctx context.Context, email, revokedBy, reason string) (int, error)
	Delete(ctx context.Context, id string) error
	// PatchRole updates the role snapshot on every live session for the email.
	PatchRole(ctx context.Context, email string, role domainauth.Role) (int, error)
	// ListEmails returns the emails with at least one live session.
	ListEmails(ctx context.Context) ([]string, error)
}

// AppTokenStore persists short-lived app tokens with storage-level TTL so
// they are reclaimed at expiry without explicit deletion.
type AppTokenStore interface {
	Save(ctx context.Context, token domainauth.AppToken) error
	Get(ctx context.Context, token string) (domainauth.AppToken, bool, error)
	// MarkUsed records a best-effort consumption marker. Tokens are
	// time-boxed, not single-use; the marker exists for audit parity.
	MarkUsed(ctx context.Context, token domainauth.AppToken, at time.Time) error
}

// BlacklistStore is the durable set of revoked emails.
type BlacklistStore interface {
	Add(ctx context.Context, entry domainauth.BlacklistEntry) error
	Get(ctx context.Context, email string) (domainauth.BlacklistEntry, bool, error)
	IsRevoked(ctx context.Context, email string) (bool, error)
}

// AuditCategory selects which capped audit list an entry belongs to.
type AuditCategory string

const (
	AuditLogins      AuditCategory = "logins"
	AuditValidations AuditCategory = "validations"
	AuditRevocations AuditCategory = "revocations"
)

// AuditLog is an append-only, capped-length event log. Append failures must
// never fail the calling operation.
type AuditLog interface {
	Append(ctx context.Context, category AuditCategory, entry domainauth.AuditEntry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, category AuditCategory, limit int) ([]domainauth.AuditEntry, error)
}

// RateLimiter applies a per-client fixed-window ceiling. Allow returns false
// once the client has exceeded the configured ceiling within the window.
type RateLimiter interface {
	Allow(ctx context.Context, clientKey string) (bool, error)
}

// RoleOverrideStore layers admin-set role assignments on top of the static
// policy. Overrides take precedence until explicitly changed.
type RoleOverrideStore interface {
	Set(ctx context.Context, email string, role domainauth.Role, updatedBy string) error
	Get(ctx context.Context, email string) (domainauth.Role, bool, error)
	List(ctx context.Context) (map[string]domainauth.Role, error)
	Delete(ctx context.Context, email string) error
}

// DomainWhitelistEntry is one runtime-added allowed domain.
type DomainWhitelistEntry struct {
	Domain  string    `json:"domain"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// DomainWhitelistStore holds runtime domain whitelist additions, layered on
// top of the statically configured allow-list.
type DomainWhitelistStore interface {
	Add(ctx context.Context, entry DomainWhitelistEntry) error
	Remove(ctx context.Context, domain string) error
	Contains(ctx context.Context, domain string) (bool, error)
	List(ctx context.Context) ([]DomainWhitelistEntry, error)
}

// ActivityRecord is one tracked sub-application usage event.
type ActivityRecord struct {
	ID        string         `json:"id"`
	UserEmail string         `json:"user_email"`
	UserRole  domainauth.Role `json:"user_role"`
	AppID     string         `json:"app_id"`
	AppName   string         `json:"app_name"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ActivityStore persists tracked application usage for the admin console.
type ActivityStore interface {
	Add(ctx context.Context, rec ActivityRecord) error
	// Recent returns up to limit records, newest first, optionally scoped to
	// one user email.
	Recent(ctx context.Context, email string, limit int) ([]ActivityRecord, error)
}
