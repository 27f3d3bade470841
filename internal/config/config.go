// Package config provides configuration management for the application.
// It handles loading, validation, and access to configuration values from
// YAML files and environment variables via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jonesrussell/cafecrawl/internal/config/auth"
	"github.com/jonesrussell/cafecrawl/internal/config/browser"
	dbconfig "github.com/jonesrussell/cafecrawl/internal/config/database"
	"github.com/jonesrussell/cafecrawl/internal/config/harvest"
	"github.com/jonesrussell/cafecrawl/internal/config/notify"
	"github.com/jonesrussell/cafecrawl/internal/config/server"
	"github.com/jonesrussell/cafecrawl/internal/logger"
)

// Interface defines the interface for configuration management.
type Interface interface {
	// GetHarvestConfig returns the harvest scheduler configuration.
	GetHarvestConfig() *harvest.Config
	// GetBrowserConfig returns the browser driver configuration.
	GetBrowserConfig() *browser.Config
	// GetDatabaseConfig returns the database configuration.
	GetDatabaseConfig() *dbconfig.Config
	// GetAuthConfig returns the authentication configuration.
	GetAuthConfig() *auth.Config
	// GetNotifyConfig returns the notification sink configuration.
	GetNotifyConfig() *notify.Config
	// GetServerConfig returns the HTTP server configuration.
	GetServerConfig() *server.Config
	// GetLoggerConfig returns the logger configuration.
	GetLoggerConfig() *logger.Config
	// Validate validates the configuration.
	Validate() error
}

// Ensure Config implements Interface
var _ Interface = (*Config)(nil)

// Config represents the application configuration.
type Config struct {
	// Harvest holds crawl scheduler configuration
	Harvest *harvest.Config `yaml:"harvest"`
	// Browser holds browser driver configuration
	Browser *browser.Config `yaml:"browser"`
	// Database holds Postgres configuration
	Database *dbconfig.Config `yaml:"database"`
	// Auth holds credentials and cookie persistence configuration
	Auth *auth.Config `yaml:"auth"`
	// Notify holds webhook sink configuration
	Notify *notify.Config `yaml:"notify"`
	// Server holds HTTP API configuration
	Server *server.Config `yaml:"server"`
	// Logger holds logging configuration
	Logger *logger.Config `yaml:"logger"`
}

// GetHarvestConfig returns the harvest scheduler configuration.
func (c *Config) GetHarvestConfig() *harvest.Config { return c.Harvest }

// GetBrowserConfig returns the browser driver configuration.
func (c *Config) GetBrowserConfig() *browser.Config { return c.Browser }

// GetDatabaseConfig returns the database configuration.
func (c *Config) GetDatabaseConfig() *dbconfig.Config { return c.Database }

// GetAuthConfig returns the authentication configuration.
func (c *Config) GetAuthConfig() *auth.Config { return c.Auth }

// GetNotifyConfig returns the notification sink configuration.
func (c *Config) GetNotifyConfig() *notify.Config { return c.Notify }

// GetServerConfig returns the HTTP server configuration.
func (c *Config) GetServerConfig() *server.Config { return c.Server }

// GetLoggerConfig returns the logger configuration.
func (c *Config) GetLoggerConfig() *logger.Config { return c.Logger }

// Validate validates the configuration. Credentials and sources are checked
// before any browser resource is acquired.
func (c *Config) Validate() error {
	if err := c.Harvest.Validate(); err != nil {
		return fmt.Errorf("harvest: %w", err)
	}
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Notify.Validate(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Load loads configuration from viper's current state (config file plus
// environment overrides). Call after viper has read the config file.
func Load() (*Config, error) {
	cfg := &Config{
		Harvest:  harvest.New(),
		Browser:  browser.New(),
		Database: dbconfig.New(),
		Auth:     auth.New(),
		Notify:   notify.New(),
		Server:   server.New(),
		Logger:   &logger.Config{},
	}

	if err := viper.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// SetDefaults registers every configuration key with viper so that
// AutomaticEnv can resolve the matching environment variables
// (e.g. database.host -> DATABASE_HOST).
func SetDefaults() {
	h := harvest.New()
	viper.SetDefault("harvest.sources_file", h.SourcesFile)
	viper.SetDefault("harvest.item_limit", h.ItemLimit)
	viper.SetDefault("harvest.lookback_days", h.LookbackDays)
	viper.SetDefault("harvest.pacing_min", h.PacingMin)
	viper.SetDefault("harvest.pacing_max", h.PacingMax)
	viper.SetDefault("harvest.max_retries", h.MaxRetries)
	viper.SetDefault("harvest.retry_base_delay", h.RetryBaseDelay)
	viper.SetDefault("harvest.retry_max_delay", h.RetryMaxDelay)
	viper.SetDefault("harvest.insert_chunk_size", h.InsertChunkSize)

	b := browser.New()
	viper.SetDefault("browser.headless", b.Headless)
	viper.SetDefault("browser.user_agent", b.UserAgent)
	viper.SetDefault("browser.navigation_timeout", b.NavigationTimeout)
	viper.SetDefault("browser.exec_path", b.ExecPath)
	viper.SetDefault("browser.no_sandbox", b.NoSandbox)

	d := dbconfig.New()
	viper.SetDefault("database.host", d.Host)
	viper.SetDefault("database.port", d.Port)
	viper.SetDefault("database.user", "")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "")
	viper.SetDefault("database.sslmode", d.SSLMode)

	viper.SetDefault("auth.username", "")
	viper.SetDefault("auth.password", "")
	viper.SetDefault("auth.cookie_file", "")
	viper.SetDefault("auth.max_attempts", auth.DefaultMaxAttempts)

	viper.SetDefault("notify.webhook_url", "")
	viper.SetDefault("notify.timeout", notify.DefaultTimeout)

	s := server.New()
	viper.SetDefault("server.address", s.Address)
	viper.SetDefault("server.read_timeout", s.ReadTimeout)
	viper.SetDefault("server.write_timeout", s.WriteTimeout)
	viper.SetDefault("server.idle_timeout", s.IdleTimeout)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.development", false)
	viper.SetDefault("logger.encoding", "console")
}

// EnvPrefixReplacer wires viper's AutomaticEnv key translation.
func EnvPrefixReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}
