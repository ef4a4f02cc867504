package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: authentication and access policy configuration
//   - tokens.go: session/app-token lifetimes and rate limiting
//   - database.go: Redis and Postgres configuration
//   - http.go: HTTP server configuration
type AppConfig struct {
	// IsDev controls development mode behavior (in-memory stores, dev auth).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Auth holds authentication and access policy configuration.
	Auth AuthConfig

	// Tokens holds token lifetime and rate limit configuration.
	Tokens TokenConfig

	// Database configuration
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Postgres DBConfig    `envPrefix:"DB_"`

	// HTTP server configuration
	HTTP HTTPConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment
// variables and before Validate.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Tokens.Sanitize()
	c.detectDevMode()
}

// Validate enforces hard configuration requirements. A returned error is a
// configuration_error and must be fatal at startup; requests are never served
// with a known-weak secret.
func (c *AppConfig) Validate() error {
	return c.Auth.Validate(c.IsDev)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
