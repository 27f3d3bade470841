// Package server provides configuration for the read-only HTTP API.
package server

import (
	"errors"
	"time"
)

// Default configuration values
const (
	DefaultAddress      = ":8080"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
)

// Config holds HTTP server configuration.
type Config struct {
	Address      string        `env:"SERVER_ADDRESS" yaml:"address"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" yaml:"read_timeout"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" yaml:"write_timeout"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" yaml:"idle_timeout"`
}

// New creates a server configuration with defaults applied.
func New() *Config {
	return &Config{
		Address:      DefaultAddress,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}
}

// Validate validates the server configuration.
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("address is required")
	}
	return nil
}
