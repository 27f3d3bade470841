// Package browser provides configuration for the browser automation driver.
package browser

import (
	"errors"
	"time"
)

// Default configuration values
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultUserAgent         = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config represents the browser driver configuration. The evasion flags are
// an opaque capability of the driver; nothing above it depends on them.
type Config struct {
	// Headless toggles headless mode. Visible mode exists for manual
	// verification flows, never for production pacing.
	Headless bool `env:"BROWSER_HEADLESS" yaml:"headless"`
	// UserAgent overrides the browser user agent string.
	UserAgent string `env:"BROWSER_USER_AGENT" yaml:"user_agent"`
	// NavigationTimeout bounds every navigation and selector wait.
	NavigationTimeout time.Duration `env:"BROWSER_NAVIGATION_TIMEOUT" yaml:"navigation_timeout"`
	// ExecPath optionally points at a specific browser binary.
	ExecPath string `env:"BROWSER_EXEC_PATH" yaml:"exec_path"`
	// NoSandbox disables the browser sandbox (required in some containers).
	NoSandbox bool `env:"BROWSER_NO_SANDBOX" yaml:"no_sandbox"`
}

// New creates a browser configuration with defaults applied.
func New() *Config {
	return &Config{
		Headless:          true,
		UserAgent:         DefaultUserAgent,
		NavigationTimeout: DefaultNavigationTimeout,
	}
}

// Validate validates the browser configuration.
func (c *Config) Validate() error {
	if c.NavigationTimeout <= 0 {
		return errors.New("navigation_timeout must be positive")
	}
	return nil
}
