// Package feed provides the RSS/Atom fallback listing path. When structural
// extraction of a board page misses entirely but the source exposes a public
// feed, the scheduler lists recent posts from the feed instead.
package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/logger"
)

// httpPrefix is the scheme prefix used to decide if a GUID is a usable URL.
const httpPrefix = "http"

// listingDateLayout renders feed timestamps in the same dotted form the
// board uses, so the scheduler's date filter handles both paths uniformly.
const listingDateLayout = "2006.01.02"

// Lister provides listing summaries from a public feed.
type Lister interface {
	// List fetches and parses the feed, returning summaries in feed order.
	List(ctx context.Context, feedURL, boardID string) ([]domain.PostSummary, error)
}

// Client fetches and parses RSS/Atom feeds.
type Client struct {
	http   *resty.Client
	parser *gofeed.Parser
	logger logger.Interface
}

// Ensure interface compliance
var _ Lister = (*Client)(nil)

// NewClient creates a feed client.
func NewClient(http *resty.Client, log logger.Interface) *Client {
	return &Client{
		http:   http,
		parser: gofeed.NewParser(),
		logger: log.WithComponent("feed"),
	}
}

// List fetches the feed and maps its entries onto listing summaries. Items
// without a usable link are silently skipped. An empty feed returns a
// non-nil empty slice.
func (c *Client) List(ctx context.Context, feedURL, boardID string) ([]domain.PostSummary, error) {
	resp, err := c.http.R().SetContext(ctx).Get(feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode())
	}

	parsed, err := c.parser.ParseString(string(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	summaries := make([]domain.PostSummary, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		link := extractLink(entry)
		if link == "" {
			continue
		}

		summary := domain.PostSummary{
			Title:       entry.Title,
			Author:      extractAuthor(entry),
			DetailURL:   link,
			BoardID:     boardID,
			ContentHTML: extractContent(entry),
		}
		if entry.PublishedParsed != nil {
			summary.DateText = entry.PublishedParsed.Format(listingDateLayout)
		}
		summaries = append(summaries, summary)
	}

	c.logger.Debug("Feed listed",
		"url", feedURL,
		"count", len(summaries))

	return summaries, nil
}

// extractLink returns the best available URL from a feed entry, preferring
// the explicit link over a URL-shaped GUID.
func extractLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	if strings.HasPrefix(entry.GUID, httpPrefix) {
		return entry.GUID
	}
	return ""
}

// extractContent returns the entry's body markup. Feeds vary in where they
// put it; the full content element is preferred over the summary.
func extractContent(entry *gofeed.Item) string {
	if entry.Content != "" {
		return entry.Content
	}
	return entry.Description
}

// extractAuthor returns the entry's author name, if any.
func extractAuthor(entry *gofeed.Item) string {
	for _, a := range entry.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return domain.UnknownAuthor
}
