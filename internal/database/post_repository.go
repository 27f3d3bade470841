package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/logger"
)

// DefaultInsertChunkSize bounds INSERT batch sizes when the caller does not
// configure one.
const DefaultInsertChunkSize = 50

// ErrPostNotFound is returned when a post lookup matches no row.
var ErrPostNotFound = errors.New("post not found")

// postSelectColumns lists columns for SELECT queries on harvested_posts.
const postSelectColumns = `id, source_name, board_name, title, author, published_at,
	content_html, media_urls, source_url, status, created_at, updated_at`

// InsertResult reports the outcome of a batched insert. A chunk failure
// does not abort the batch; the caller sees exactly what landed and how
// many chunks did not.
type InsertResult struct {
	// Inserted holds the rows actually written, excluding duplicates.
	Inserted []domain.HarvestedPost
	// FailedChunks counts chunks whose insert failed outright.
	FailedChunks int
}

// PostStore is the persistence contract the scheduler depends on.
type PostStore interface {
	// InsertNew writes the subset of posts whose source URL is not yet
	// known and returns exactly that subset.
	InsertNew(ctx context.Context, posts []domain.HarvestedPost) (InsertResult, error)
	// ListRecent returns the most recently created posts, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.HarvestedPost, error)
	// UpdateStatus transitions a post's processing status.
	UpdateStatus(ctx context.Context, id string, status domain.PostStatus) error
}

// PostRepository handles database operations for harvested posts.
type PostRepository struct {
	db        *sqlx.DB
	chunkSize int
	logger    logger.Interface
}

// Ensure interface compliance
var _ PostStore = (*PostRepository)(nil)

// NewPostRepository creates a new post repository. A chunkSize of zero
// falls back to DefaultInsertChunkSize.
func NewPostRepository(db *sqlx.DB, chunkSize int, log logger.Interface) *PostRepository {
	if chunkSize <= 0 {
		chunkSize = DefaultInsertChunkSize
	}
	return &PostRepository{
		db:        db,
		chunkSize: chunkSize,
		logger:    log.WithComponent("store"),
	}
}

// InsertNew inserts the posts not yet present, chunked to bound statement
// size. Duplicate source URLs are dropped by the database's unique
// constraint, so concurrent runs cannot double-insert. Chunk failures are
// aggregated into the result rather than aborting the remaining chunks.
func (r *PostRepository) InsertNew(ctx context.Context, posts []domain.HarvestedPost) (InsertResult, error) {
	var result InsertResult
	if len(posts) == 0 {
		return result, nil
	}

	for start := 0; start < len(posts); start += r.chunkSize {
		end := min(start+r.chunkSize, len(posts))

		inserted, err := r.insertChunk(ctx, posts[start:end])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.FailedChunks++
			r.logger.WithError(err).Error("Insert chunk failed",
				"chunk_start", start,
				"chunk_size", end-start)
			continue
		}
		result.Inserted = append(result.Inserted, inserted...)
	}

	return result, nil
}

// insertChunk writes one chunk inside a transaction: look up which source
// URLs already exist, insert the rest, return the inserted rows. The
// transaction keeps the caller's view atomic per chunk.
func (r *PostRepository) insertChunk(ctx context.Context, posts []domain.HarvestedPost) ([]domain.HarvestedPost, error) {
	urls := make([]string, 0, len(posts))
	for _, p := range posts {
		urls = append(urls, p.SourceURL)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var existing []string
	selectQuery := `SELECT source_url FROM harvested_posts WHERE source_url = ANY($1)`
	if err := tx.SelectContext(ctx, &existing, selectQuery, pq.Array(urls)); err != nil {
		return nil, fmt.Errorf("failed to query existing posts: %w", err)
	}

	known := make(map[string]struct{}, len(existing))
	for _, u := range existing {
		known[u] = struct{}{}
	}

	insertQuery := `
		INSERT INTO harvested_posts (
			id, source_name, board_name, title, author, published_at,
			content_html, media_urls, source_url, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (source_url) DO NOTHING
	`

	now := time.Now().UTC()
	var inserted []domain.HarvestedPost
	for _, post := range posts {
		if _, dup := known[post.SourceURL]; dup {
			continue
		}
		if post.ID == "" {
			post.ID = uuid.NewString()
		}
		if post.Status == "" {
			post.Status = domain.PostStatusPending
		}
		post.CreatedAt = now
		post.UpdatedAt = now

		execResult, execErr := tx.ExecContext(ctx, insertQuery,
			post.ID, post.SourceName, post.BoardName, post.Title, post.Author,
			post.PublishedAt, post.ContentHTML, post.MediaURLs, post.SourceURL,
			post.Status, post.CreatedAt, post.UpdatedAt,
		)
		if execErr != nil {
			return nil, fmt.Errorf("failed to insert post %s: %w", post.SourceURL, execErr)
		}
		// A conflicting row slipped in between the lookup and the insert;
		// the constraint dropped it, so it is not part of the result.
		n, affectedErr := execResult.RowsAffected()
		if affectedErr != nil {
			return nil, fmt.Errorf("failed to read rows affected: %w", affectedErr)
		}
		if n == 0 {
			continue
		}
		inserted = append(inserted, post)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, nil
}

// ListRecent returns the most recently created posts, newest first.
func (r *PostRepository) ListRecent(ctx context.Context, limit int) ([]domain.HarvestedPost, error) {
	query := `
		SELECT ` + postSelectColumns + `
		FROM harvested_posts
		ORDER BY created_at DESC
		LIMIT $1
	`

	var posts []domain.HarvestedPost
	if err := r.db.SelectContext(ctx, &posts, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if posts == nil {
		posts = []domain.HarvestedPost{}
	}
	return posts, nil
}

// UpdateStatus transitions a post's processing status.
func (r *PostRepository) UpdateStatus(ctx context.Context, id string, status domain.PostStatus) error {
	query := `UPDATE harvested_posts SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	return execRequireRows(result, err, fmt.Errorf("%w: %s", ErrPostNotFound, id))
}
