// Package sources manages the configuration of forum sources for the
// harvester. A source descriptor is the site adapter: it carries everything
// site-specific (base URL, board identifiers, selector chains, login form
// identities) so the core never depends on one site's concrete selectors.
package sources

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jonesrussell/cafecrawl/internal/selector"
)

// Config represents one source: a forum to crawl. Immutable after load.
type Config struct {
	// Name is the symbolic source name used in logs and persisted posts.
	Name string `yaml:"name"`
	// BaseURL is the forum's entry URL (also the origin for media rewriting).
	BaseURL string `yaml:"base_url"`
	// ClubID is the site's internal forum identifier.
	ClubID string `yaml:"club_id"`
	// Boards lists the discussion boards to harvest.
	Boards []Board `yaml:"boards"`
	// ItemLimit caps listing rows collected per board per run.
	// Zero falls back to the harvest config default.
	ItemLimit int `yaml:"item_limit"`
	// LookbackDays is the date window for this source.
	// Zero falls back to the harvest config default.
	LookbackDays int `yaml:"lookback_days"`
	// FeedURL optionally names a public RSS feed used as a listing fallback
	// when structural extraction misses entirely.
	FeedURL string `yaml:"feed_url"`
	// Frame identifies the nested browsing context hosting board content.
	Frame FrameIdentity `yaml:"frame"`
	// Login describes the login form and post-login markers.
	Login LoginConfig `yaml:"login"`
	// Selectors holds the per-field selector chains.
	Selectors SelectorConfig `yaml:"selectors"`
}

// Board identifies one discussion board within a source.
type Board struct {
	// ID is the site's board (menu) identifier.
	ID string `yaml:"id"`
	// Name is the human-readable board name persisted with posts.
	Name string `yaml:"name"`
	// Path is the board's listing path relative to the source base URL.
	Path string `yaml:"path"`
}

// FrameIdentity describes how to find the content frame. Tried in order:
// exact name match, URL-substring patterns, then positional fallback when a
// single iframe exists.
type FrameIdentity struct {
	// Name is the iframe's name or id attribute.
	Name string `yaml:"name"`
	// URLPatterns are substrings matched against candidate frame URLs.
	URLPatterns []string `yaml:"url_patterns"`
}

// LoginConfig describes the login form field identities and the markers that
// distinguish an authenticated page.
type LoginConfig struct {
	// URL is the login form page.
	URL string `yaml:"url"`
	// UsernameField selects the account id input.
	UsernameField string `yaml:"username_field"`
	// PasswordField selects the password input.
	PasswordField string `yaml:"password_field"`
	// Submit selects the login button.
	Submit string `yaml:"submit"`
	// FailureURLPattern is a substring present in the URL when login did not
	// navigate away (an unreliable signal on its own; always combined with a
	// marker probe).
	FailureURLPattern string `yaml:"failure_url_pattern"`
	// ProbeURL is a known authenticated page reloaded during liveness probes.
	ProbeURL string `yaml:"probe_url"`
	// AuthenticatedMarkers match logged-in-only DOM elements.
	AuthenticatedMarkers selector.Chain `yaml:"authenticated_markers"`
	// Dismiss selects optional interstitial close buttons (device
	// verification, save-credentials prompts). Absence is not an error.
	Dismiss []string `yaml:"dismiss"`
}

// SelectorConfig holds the selector chains for listing and detail extraction.
type SelectorConfig struct {
	List   ListSelectors   `yaml:"list"`
	Detail DetailSelectors `yaml:"detail"`
}

// ListSelectors defines the chains for board listing pages.
type ListSelectors struct {
	// Row locates listing rows.
	Row selector.Chain `yaml:"row"`
	// Title locates the post title link within a row.
	Title selector.Chain `yaml:"title"`
	// Author locates the author name within a row.
	Author selector.Chain `yaml:"author"`
	// Date locates the relative date text within a row.
	Date selector.Chain `yaml:"date"`
	// Notice marks pinned/announcement rows, always excluded.
	Notice selector.Chain `yaml:"notice"`
}

// DetailSelectors defines the chains for post detail pages.
type DetailSelectors struct {
	// Content locates the article body.
	Content selector.Chain `yaml:"content"`
}

// ListingURL resolves a board's listing path against the source base URL.
func (c *Config) ListingURL(b Board) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL for source %s: %w", c.Name, err)
	}
	ref, err := url.Parse(b.Path)
	if err != nil {
		return "", fmt.Errorf("invalid board path %q: %w", b.Path, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// FindByName returns the source with the given name, case-insensitively.
func FindByName(configs []Config, name string) (*Config, error) {
	var available []string
	for i := range configs {
		available = append(available, configs[i].Name)
		if configs[i].Name == name {
			return &configs[i], nil
		}
	}
	for i := range configs {
		if strings.EqualFold(configs[i].Name, name) {
			return &configs[i], nil
		}
	}
	return nil, fmt.Errorf("source not found: %s. Available sources: %v", name, available)
}
