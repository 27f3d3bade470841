// Package auth provides configuration for the session manager's credentials
// and cookie persistence.
package auth

import (
	"errors"
)

// DefaultMaxAttempts is the bound on login attempts before the session is
// treated as challenged.
const DefaultMaxAttempts = 2

// Config holds authentication configuration. Credentials are supplied
// externally; there is no safe default.
type Config struct {
	// Username is the forum account id.
	Username string `env:"AUTH_USERNAME" yaml:"username"`
	// Password is the forum account password.
	Password string `env:"AUTH_PASSWORD" yaml:"password"`
	// CookieFile optionally persists session cookies across runs. Empty
	// disables cookie replay.
	CookieFile string `env:"AUTH_COOKIE_FILE" yaml:"cookie_file"`
	// MaxAttempts bounds login attempts before declaring a bot challenge.
	MaxAttempts int `env:"AUTH_MAX_ATTEMPTS" yaml:"max_attempts"`
}

// New creates an auth configuration with defaults applied.
func New() *Config {
	return &Config{MaxAttempts: DefaultMaxAttempts}
}

// Validate validates the auth configuration. It fails fast before any
// browser resource is acquired.
func (c *Config) Validate() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	if c.MaxAttempts < 1 {
		return errors.New("max_attempts must be positive")
	}
	return nil
}
