package sources

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that a source descriptor is complete enough to crawl.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("base_url is invalid: %w", err)
	}
	if len(c.Boards) == 0 {
		return errors.New("at least one board is required")
	}
	for i := range c.Boards {
		if c.Boards[i].ID == "" {
			return fmt.Errorf("board %d: id is required", i)
		}
		if c.Boards[i].Path == "" {
			return fmt.Errorf("board %q: path is required", c.Boards[i].ID)
		}
	}
	if c.ItemLimit < 0 {
		return errors.New("item_limit must be non-negative")
	}
	if c.LookbackDays < 0 {
		return errors.New("lookback_days must be non-negative")
	}
	if err := c.Login.validate(); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := c.Selectors.validate(); err != nil {
		return fmt.Errorf("selectors: %w", err)
	}
	return nil
}

func (l *LoginConfig) validate() error {
	if l.URL == "" {
		return errors.New("url is required")
	}
	if l.UsernameField == "" || l.PasswordField == "" {
		return errors.New("username_field and password_field are required")
	}
	if l.Submit == "" {
		return errors.New("submit is required")
	}
	if len(l.AuthenticatedMarkers) == 0 {
		return errors.New("at least one authenticated marker is required")
	}
	return nil
}

func (s *SelectorConfig) validate() error {
	if len(s.List.Row) == 0 {
		return errors.New("list.row chain is required")
	}
	if len(s.List.Title) == 0 {
		return errors.New("list.title chain is required")
	}
	if len(s.List.Date) == 0 {
		return errors.New("list.date chain is required")
	}
	if len(s.Detail.Content) == 0 {
		return errors.New("detail.content chain is required")
	}
	return nil
}
