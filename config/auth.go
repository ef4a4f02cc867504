package config

import (
	"strings"

	apperrors "github.com/terralink-energy/portal-api/internal/errors"
)

// minSigningSecretLength is the minimum byte length accepted for the session
// signing secret.
const minSigningSecretLength = 32

// placeholderSecrets are known sample values that must never be accepted,
// in any environment.
var placeholderSecrets = map[string]bool{
	"dev-secret-change-in-production":         true,
	"your-jwt-secret-key-change-in-production": true,
	"changeme": true,
	"secret":   true,
}

// GoogleConfig contains Google OAuth client configuration.
type GoogleConfig struct {
	ClientID string `env:"CLIENT_ID"`
	// ClientSecret is used for the server-side authorization-code exchange.
	// It must never reach any client.
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
}

// DevAuthConfig controls the dev-mode identity used when DEV=true and no
// Google client is configured.
type DevAuthConfig struct {
	SubjectID string `env:"SUBJECT_ID" envDefault:"dev-user"`
	Email     string `env:"EMAIL"      envDefault:"dev@example.com"`
	Name      string `env:"NAME"       envDefault:"Development User"`
}

// AuthConfig groups authentication and access policy configuration.
type AuthConfig struct {
	// SigningSecret signs session bearer tokens (HS256). Required; minimum
	// 32 bytes; known placeholder values are rejected in every environment.
	SigningSecret string `env:"JWT_SECRET"`

	// AllowedDomains is the comma-separated list of email domains permitted
	// to sign in.
	AllowedDomains []string `env:"ALLOWED_DOMAINS" envSeparator:","`

	// AdminEmails lists emails assigned the admin role.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	// RoleMap is an explicit per-email role mapping, e.g.
	// "ops@example.com:operations,sales@example.com:sales".
	RoleMap map[string]string `env:"ROLE_MAP" envSeparator:"," envKeyValSeparator:":"`

	// Google OAuth client configuration.
	Google GoogleConfig `envPrefix:"GOOGLE_"`

	// DevAuth configuration (used when DEV=true).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// AutoVivifySessions recreates a session record from verified token
	// claims when the store has no record. Weakens the no-store-bypass
	// invariant; dev-mode resilience only.
	AutoVivifySessions bool `env:"AUTH_AUTO_VIVIFY_SESSIONS" envDefault:"false"`
}

// Sanitize lower-cases and trims the policy lists.
func (a *AuthConfig) Sanitize() {
	a.AllowedDomains = normalizeList(a.AllowedDomains)
	a.AdminEmails = normalizeList(a.AdminEmails)

	if len(a.RoleMap) > 0 {
		normalized := make(map[string]string, len(a.RoleMap))
		for email, role := range a.RoleMap {
			normalized[strings.ToLower(strings.TrimSpace(email))] = strings.ToLower(strings.TrimSpace(role))
		}
		a.RoleMap = normalized
	}
}

// Validate enforces secret and policy requirements. isDev relaxes the Google
// client requirement (dev auth substitutes) but never the secret checks.
func (a *AuthConfig) Validate(isDev bool) error {
	secret := strings.TrimSpace(a.SigningSecret)
	if secret == "" {
		return apperrors.Configuration("JWT_SECRET is required")
	}
	if len(secret) < minSigningSecretLength {
		return apperrors.Newf(apperrors.ErrCodeConfiguration,
			"JWT_SECRET must be at least %d bytes", minSigningSecretLength)
	}
	if placeholderSecrets[strings.ToLower(secret)] {
		return apperrors.Configuration("JWT_SECRET matches a known placeholder value")
	}

	if len(a.AllowedDomains) == 0 {
		return apperrors.Configuration("ALLOWED_DOMAINS is required")
	}

	if !isDev && (a.Google.ClientID == "" || a.Google.ClientSecret == "") {
		return apperrors.Configuration("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required outside dev mode")
	}

	return nil
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
