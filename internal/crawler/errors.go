// Package crawler orchestrates the harvest pipeline: session management,
// listing extraction, the date-window filter, detail extraction, and
// persistence, across a configured list of sources.
package crawler

import (
	"errors"
)

// Error types for the crawler package.
var (
	// ErrSourceNotFound is returned when the requested source is not found.
	ErrSourceNotFound = errors.New("source not found")

	// ErrInvalidConfig is returned when the crawler configuration is invalid.
	ErrInvalidConfig = errors.New("invalid crawler configuration")

	// ErrAlreadyRunning is returned when a run is requested while one is in
	// flight.
	ErrAlreadyRunning = errors.New("harvest already running")
)
