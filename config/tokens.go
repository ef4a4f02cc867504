package config

import "time"

// TokenConfig contains token lifetime, revalidation, and rate limit settings.
type TokenConfig struct {
	// SessionDuration is the fixed session lifetime, computed once at login
	// and never silently renewed.
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"720h"` // 30 days

	// AppTokenDuration is the lifetime of per-application launch tokens.
	AppTokenDuration time.Duration `env:"APP_TOKEN_DURATION" envDefault:"5m"`

	// RevalidationInterval is how often a session's identity is re-checked
	// against the provider during validation.
	RevalidationInterval time.Duration `env:"REVALIDATION_INTERVAL" envDefault:"1h"`

	// RateLimitCeiling is the maximum validation requests per client per window.
	RateLimitCeiling int `env:"RATE_LIMIT_CEILING" envDefault:"30"`

	// RateLimitWindow is the fixed reset window for the per-client counter.
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Sanitize clamps token settings to sane minimums.
func (t *TokenConfig) Sanitize() {
	if t.SessionDuration <= 0 {
		t.SessionDuration = 720 * time.Hour
	}
	if t.AppTokenDuration <= 0 {
		t.AppTokenDuration = 5 * time.Minute
	}
	if t.RevalidationInterval <= 0 {
		t.RevalidationInterval = time.Hour
	}
	if t.RateLimitCeiling <= 0 {
		t.RateLimitCeiling = 30
	}
	if t.RateLimitWindow <= 0 {
		t.RateLimitWindow = time.Minute
	}
}
