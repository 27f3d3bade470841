// Package harvest provides configuration for the crawl scheduler: pacing,
// lookback, retry, and per-source item limits.
package harvest

import (
	"errors"
	"time"
)

// Default configuration values
const (
	DefaultItemLimit      = 5
	DefaultLookbackDays   = 7
	DefaultPacingMin      = 1 * time.Second
	DefaultPacingMax      = 3 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 1 * time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
	DefaultSourcesFile    = "sources.yml"
	// DefaultInsertChunkSize bounds the batch size handed to the store in one
	// insert statement.
	DefaultInsertChunkSize = 50
)

// Config represents the harvest scheduler configuration.
type Config struct {
	// SourcesFile is the path of the YAML file declaring sources to crawl.
	SourcesFile string `env:"HARVEST_SOURCES_FILE" yaml:"sources_file"`
	// ItemLimit is the default per-source cap on listing rows collected per run.
	ItemLimit int `env:"HARVEST_ITEM_LIMIT" yaml:"item_limit"`
	// LookbackDays is the default date window; posts older than this are skipped.
	LookbackDays int `env:"HARVEST_LOOKBACK_DAYS" yaml:"lookback_days"`
	// PacingMin is the lower bound of the randomized delay between
	// network-facing operations.
	PacingMin time.Duration `env:"HARVEST_PACING_MIN" yaml:"pacing_min"`
	// PacingMax is the upper bound of the randomized pacing delay.
	PacingMax time.Duration `env:"HARVEST_PACING_MAX" yaml:"pacing_max"`
	// MaxRetries caps retry attempts for transient failures.
	MaxRetries int `env:"HARVEST_MAX_RETRIES" yaml:"max_retries"`
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `env:"HARVEST_RETRY_BASE_DELAY" yaml:"retry_base_delay"`
	// RetryMaxDelay caps the exponential backoff delay.
	RetryMaxDelay time.Duration `env:"HARVEST_RETRY_MAX_DELAY" yaml:"retry_max_delay"`
	// InsertChunkSize bounds how many posts go to the store per insert.
	InsertChunkSize int `env:"HARVEST_INSERT_CHUNK_SIZE" yaml:"insert_chunk_size"`
}

// New creates a harvest configuration with defaults applied.
func New() *Config {
	return &Config{
		SourcesFile:     DefaultSourcesFile,
		ItemLimit:       DefaultItemLimit,
		LookbackDays:    DefaultLookbackDays,
		PacingMin:       DefaultPacingMin,
		PacingMax:       DefaultPacingMax,
		MaxRetries:      DefaultMaxRetries,
		RetryBaseDelay:  DefaultRetryBaseDelay,
		RetryMaxDelay:   DefaultRetryMaxDelay,
		InsertChunkSize: DefaultInsertChunkSize,
	}
}

// Validate validates the harvest configuration.
func (c *Config) Validate() error {
	if c.SourcesFile == "" {
		return errors.New("sources_file is required")
	}
	if c.ItemLimit < 1 {
		return errors.New("item_limit must be positive")
	}
	if c.LookbackDays < 1 {
		return errors.New("lookback_days must be positive")
	}
	if c.PacingMin < 0 {
		return errors.New("pacing_min must be non-negative")
	}
	if c.PacingMax < c.PacingMin {
		return errors.New("pacing_max must be >= pacing_min")
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries must be non-negative")
	}
	if c.InsertChunkSize < 1 {
		return errors.New("insert_chunk_size must be positive")
	}
	return nil
}
