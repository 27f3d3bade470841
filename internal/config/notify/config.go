// Package notify provides configuration for the webhook notification sink.
package notify

import (
	"errors"
	"time"
)

// DefaultTimeout bounds one webhook delivery attempt.
const DefaultTimeout = 10 * time.Second

// Config holds notification sink configuration.
type Config struct {
	// WebhookURL receives a POST after each successful batch insert.
	// Empty disables notification.
	WebhookURL string `env:"NOTIFY_WEBHOOK_URL" yaml:"webhook_url"`
	// Timeout bounds one delivery attempt.
	Timeout time.Duration `env:"NOTIFY_TIMEOUT" yaml:"timeout"`
}

// New creates a notify configuration with defaults applied.
func New() *Config {
	return &Config{Timeout: DefaultTimeout}
}

// Validate validates the notify configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}
