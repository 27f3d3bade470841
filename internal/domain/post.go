// Package domain provides domain models used across the application.
package domain

import (
	"time"

	"github.com/lib/pq"
)

// UnknownAuthor is the placeholder stored when a listing row carries no
// readable author. Author absence never blocks persistence.
const UnknownAuthor = "unknown"

// PostStatus represents the processing status of a harvested post.
type PostStatus string

const (
	// PostStatusPending marks a post awaiting downstream processing.
	PostStatusPending PostStatus = "pending"
	// PostStatusProcessing marks a post currently being processed downstream.
	PostStatusProcessing PostStatus = "processing"
	// PostStatusDone marks a fully processed post.
	PostStatusDone PostStatus = "done"
	// PostStatusFailed marks a post whose downstream processing failed.
	PostStatusFailed PostStatus = "failed"
)

// PostSummary is one row of a board listing page. Summaries are ephemeral:
// they flow from the listing extractor through the date filter into detail
// extraction and are never persisted directly.
type PostSummary struct {
	// Title of the post as shown in the listing.
	Title string `json:"title"`
	// Author nickname, possibly empty when the listing row carries none.
	Author string `json:"author"`
	// DateText is the raw relative or partial date string from the listing
	// (e.g. "14:02", "03.21", "24.03.21").
	DateText string `json:"date_text"`
	// DetailURL is the href of the post's detail page, possibly relative.
	DetailURL string `json:"detail_url"`
	// BoardID identifies the board the summary was listed on.
	BoardID string `json:"board_id"`
	// ContentHTML carries the body markup when the summary came from the
	// feed fallback, which supplies content up front. Listing summaries
	// leave it empty and get their body from the detail page.
	ContentHTML string `json:"content_html,omitempty"`
}

// HarvestedPost is the persisted unit of the pipeline. SourceURL is the
// canonical dedup key: a post is inserted at most once no matter how many
// runs re-observe it.
type HarvestedPost struct {
	ID          string         `db:"id" json:"id"`
	SourceName  string         `db:"source_name" json:"source_name"`
	BoardName   string         `db:"board_name" json:"board_name"`
	Title       string         `db:"title" json:"title"`
	Author      string         `db:"author" json:"author"`
	PublishedAt time.Time      `db:"published_at" json:"published_at"`
	ContentHTML string         `db:"content_html" json:"content_html"`
	MediaURLs   pq.StringArray `db:"media_urls" json:"media_urls"`
	SourceURL   string         `db:"source_url" json:"source_url"`
	Status      PostStatus     `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
