package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaDDL creates the harvested_posts table. The unique constraint on
// source_url is what makes insert-if-absent safe across concurrent runs.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS harvested_posts (
	id           UUID PRIMARY KEY,
	source_name  TEXT NOT NULL,
	board_name   TEXT NOT NULL,
	title        TEXT NOT NULL,
	author       TEXT NOT NULL DEFAULT 'unknown',
	published_at TIMESTAMPTZ NOT NULL,
	content_html TEXT NOT NULL DEFAULT '',
	media_urls   TEXT[] NOT NULL DEFAULT '{}',
	source_url   TEXT NOT NULL UNIQUE,
	status       TEXT NOT NULL DEFAULT 'pending',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_harvested_posts_created_at
	ON harvested_posts (created_at DESC);

CREATE INDEX IF NOT EXISTS idx_harvested_posts_status
	ON harvested_posts (status);
`

// EnsureSchema creates the harvested posts table and indexes if missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
