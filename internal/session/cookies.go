package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonesrussell/cafecrawl/internal/domain"
)

// ErrNoStoredSession is returned when the token store has nothing to replay.
var ErrNoStoredSession = errors.New("no stored session")

// TokenStore persists a session's cookie set across runs.
type TokenStore interface {
	// Save persists the cookie set.
	Save(cookies []domain.Cookie) error
	// Load returns the persisted cookie set, or ErrNoStoredSession.
	Load() ([]domain.Cookie, error)
	// Clear discards the persisted cookie set.
	Clear() error
}

// FileTokenStore persists cookies as JSON on disk.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a file-backed token store at the given path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Save writes the cookie set. The parent directory is created if missing.
func (s *FileTokenStore) Save(cookies []domain.Cookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cookie directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	return nil
}

// Load reads the persisted cookie set.
func (s *FileTokenStore) Load() ([]domain.Cookie, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoStoredSession
		}
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}
	var cookies []domain.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to decode cookie file: %w", err)
	}
	if len(cookies) == 0 {
		return nil, ErrNoStoredSession
	}
	return cookies, nil
}

// Clear removes the cookie file. A missing file is not an error.
func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cookie file: %w", err)
	}
	return nil
}

// nopTokenStore is used when cookie persistence is disabled.
type nopTokenStore struct{}

func (nopTokenStore) Save([]domain.Cookie) error     { return nil }
func (nopTokenStore) Load() ([]domain.Cookie, error) { return nil, ErrNoStoredSession }
func (nopTokenStore) Clear() error                   { return nil }
