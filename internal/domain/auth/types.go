package auth

// Package auth contains domain-level types for authentication, sessions, and
// app tokens. It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and token claims.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleOperations Role = "operations"
	RoleSales      Role = "sales"
	// RoleStandard is the lowest-privilege role, assigned by default to any
	// user from an allowed domain without an explicit mapping.
	RoleStandard Role = "standard-user"
)

// ValidRole reports whether r belongs to the closed role set.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleOperations, RoleSales, RoleStandard:
		return true
	}
	return false
}

// Identity represents the verified principal returned by the identity
// provider. Adapters map provider-specific claims into this shape. Never
// persisted as-is; only derived fields reach the session record.
type Identity struct {
	SubjectID     string // stable provider user identifier (sub claim)
	Email         string
	Name          string
	PictureURL    string
	EmailVerified bool
	// RawCredential is the credential as presented, retained for periodic
	// revalidation against the provider.
	RawCredential string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// User is the snapshot of a principal embedded in sessions and app tokens.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	Role    Role   `json:"role"`
}

// SessionStatus is the stored lifecycle state of a session. Expiry is a
// derived condition (now > ValidUntil), never a stored status.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionRevoked SessionStatus = "revoked"
)

// Session is the server-side record persisted for an authenticated user.
// ID is an opaque random identifier; the signed session token embeds it.
type Session struct {
	ID     string        `json:"id"`
	User   User          `json:"user"`
	Status SessionStatus `json:"status"`
	// GoogleToken is the provider credential captured at login, used for
	// periodic revalidation. Never returned to clients.
	GoogleToken       string    `json:"google_token,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
	LastRevalidatedAt time.Time `json:"last_revalidated_at"`
	ValidUntil        time.Time `json:"valid_until"`
	RevokedBy         string    `json:"revoked_by,omitempty"`
	RevokedReason     string    `json:"revoked_reason,omitempty"`
}

// Expired reports whether the session is past its fixed lifetime.
func (s Session) Expired(now time.Time) bool { return now.After(s.ValidUntil) }

// Active reports whether the session is usable at the given instant.
func (s Session) Active(now time.Time) bool {
	return s.Status == SessionActive && !s.Expired(now)
}

// AppToken is a short-lived opaque token scoped to one application and one
// user. TTL-reclaimed by the backing store; never explicitly deleted.
// Time-boxed, not single-use: replays within the TTL are accepted.
type AppToken struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	AppID     string    `json:"app_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the app token is past its expiry.
func (t AppToken) Expired(now time.Time) bool { return now.After(t.ExpiresAt) }

// BlacklistEntry records a revoked email with actor metadata. Entries are
// permanent until externally purged; there is no un-revoke operation.
type BlacklistEntry struct {
	Email     string    `json:"email"`
	Reason    string    `json:"reason"`
	RevokedBy string    `json:"revoked_by"`
	RevokedAt time.Time `json:"revoked_at"`
}

// AuditEntry is one append-only record of a login/logout/validation/revocation
// event. Newest-first ordering everywhere.
type AuditEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Email     string    `json:"email"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}
