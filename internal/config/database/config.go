// Package database provides configuration for the Postgres store.
package database

import (
	"errors"
	"fmt"
)

// Default configuration values
const (
	DefaultHost    = "localhost"
	DefaultPort    = "5432"
	DefaultSSLMode = "disable"
)

// Config holds database configuration.
type Config struct {
	Host     string `env:"DATABASE_HOST" yaml:"host"`
	Port     string `env:"DATABASE_PORT" yaml:"port"`
	User     string `env:"DATABASE_USER" yaml:"user"`
	Password string `env:"DATABASE_PASSWORD" yaml:"password"`
	DBName   string `env:"DATABASE_NAME" yaml:"dbname"`
	SSLMode  string `env:"DATABASE_SSLMODE" yaml:"sslmode"`
}

// New creates a database configuration with defaults applied.
func New() *Config {
	return &Config{
		Host:    DefaultHost,
		Port:    DefaultPort,
		SSLMode: DefaultSSLMode,
	}
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Validate validates the database configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.User == "" {
		return errors.New("user is required")
	}
	if c.DBName == "" {
		return errors.New("dbname is required")
	}
	return nil
}
