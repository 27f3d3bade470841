package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/cafecrawl/internal/browser"
	harvestconfig "github.com/jonesrussell/cafecrawl/internal/config/harvest"
	"github.com/jonesrussell/cafecrawl/internal/database"
	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/extract"
	"github.com/jonesrussell/cafecrawl/internal/feed"
	"github.com/jonesrussell/cafecrawl/internal/logger"
	"github.com/jonesrussell/cafecrawl/internal/notify"
	"github.com/jonesrussell/cafecrawl/internal/session"
	"github.com/jonesrussell/cafecrawl/internal/sources"
)

// Sessioner is the slice of the session manager the scheduler drives.
type Sessioner interface {
	// EnsureAuthenticated returns once the session is usable.
	EnsureAuthenticated(ctx context.Context) error
	// Session exposes the current session state.
	Session() *domain.Session
}

// SessionFactory builds a session manager for one page and source.
type SessionFactory func(page browser.Page, source *sources.Config) Sessioner

// Scheduler drives the harvest pipeline across the configured sources.
// Sources run sequentially; pacing constraints make parallel page loads
// against the same site counterproductive.
type Scheduler struct {
	driver     browser.Driver
	newSession SessionFactory
	listing    *extract.ListingExtractor
	detail     *extract.DetailExtractor
	store      database.PostStore
	notifier   notify.Notifier
	feeds      feed.Lister
	sources    []sources.Config
	cfg        *harvestconfig.Config
	pacer      *Pacer
	backoff    *Backoff
	state      *State
	logger     logger.Interface
	now        func() time.Time
}

// Params bundles the scheduler's dependencies.
type Params struct {
	Driver         browser.Driver
	SessionFactory SessionFactory
	Store          database.PostStore
	Notifier       notify.Notifier
	Feeds          feed.Lister
	Sources        []sources.Config
	Config         *harvestconfig.Config
	Logger         logger.Interface
}

// NewScheduler creates a harvest scheduler.
func NewScheduler(p Params) (*Scheduler, error) {
	if p.Driver == nil || p.Store == nil || p.Config == nil {
		return nil, ErrInvalidConfig
	}
	if p.SessionFactory == nil {
		return nil, ErrInvalidConfig
	}
	if p.Notifier == nil {
		p.Notifier = notify.NoOpNotifier{}
	}
	log := p.Logger
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Scheduler{
		driver:     p.Driver,
		newSession: p.SessionFactory,
		listing:    extract.NewListingExtractor(log),
		detail:     extract.NewDetailExtractor(log),
		store:      p.Store,
		notifier:   p.Notifier,
		feeds:      p.Feeds,
		sources:    p.Sources,
		cfg:        p.Config,
		pacer:      NewPacer(p.Config.PacingMin, p.Config.PacingMax),
		backoff:    NewBackoff(p.Config.RetryBaseDelay, p.Config.RetryMaxDelay),
		state:      NewState(),
		logger:     log.WithComponent("crawler"),
		now:        time.Now,
	}, nil
}

// State exposes run progress for the status endpoint.
func (s *Scheduler) State() *State {
	return s.state
}

// Run harvests every configured source. An ordinary failing source never
// aborts the run; its failures are tallied and the next source proceeds.
// Two things stop the run early: context cancellation, and a bot challenge.
// A challenge is never retried against the next source, since every source
// shares one credential set and repeated logins after a challenge risk
// account lockout.
func (s *Scheduler) Run(ctx context.Context) (domain.RunSummary, error) {
	var summary domain.RunSummary
	if !s.state.start() {
		return summary, ErrAlreadyRunning
	}
	defer s.state.stop()
	started := s.now()

	for i := range s.sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		src := &s.sources[i]
		s.state.setCurrentSource(src.Name)

		if err := s.harvestSource(ctx, src, &summary); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return summary, err
			}
			if errors.Is(err, session.ErrChallengeRequired) {
				s.logger.WithError(err).Error("Bot challenge detected, aborting run",
					"source", src.Name)
				return summary, err
			}
			s.logger.WithError(err).Error("Source failed",
				"source", src.Name)
		}
		summary.SourcesProcessed++
	}

	s.logger.WithDuration(s.now().Sub(started)).Info("Harvest run complete",
		"sources", summary.SourcesProcessed,
		"harvested", summary.ItemsHarvested,
		"failed", summary.ItemsFailed)

	return summary, nil
}

// RunSource harvests a single source by name.
func (s *Scheduler) RunSource(ctx context.Context, name string) (domain.RunSummary, error) {
	var summary domain.RunSummary
	src, err := sources.FindByName(s.sources, name)
	if err != nil {
		return summary, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}

	if !s.state.start() {
		return summary, ErrAlreadyRunning
	}
	defer s.state.stop()

	s.state.setCurrentSource(src.Name)
	if err := s.harvestSource(ctx, src, &summary); err != nil {
		return summary, err
	}
	summary.SourcesProcessed = 1
	return summary, nil
}

// harvestSource runs the full pipeline for one source: authenticate, walk
// its boards, persist what survived the filters, and announce the new rows.
func (s *Scheduler) harvestSource(ctx context.Context, src *sources.Config, summary *domain.RunSummary) error {
	log := s.logger.WithSource(src.Name)

	page, err := s.driver.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close page")
		}
	}()

	sess := s.newSession(page, src)
	if err := sess.EnsureAuthenticated(ctx); err != nil {
		summary.AuthFailures++
		if errors.Is(err, session.ErrChallengeRequired) {
			summary.ChallengeRequired = true
		}
		return fmt.Errorf("authentication failed: %w", err)
	}

	var harvested []domain.HarvestedPost
	for _, board := range src.Boards {
		if err := ctx.Err(); err != nil {
			return err
		}

		posts, boardErr := s.harvestBoard(ctx, page, sess, src, board, summary)
		if boardErr != nil {
			if errors.Is(boardErr, context.Canceled) || errors.Is(boardErr, context.DeadlineExceeded) {
				return boardErr
			}
			log.WithError(boardErr).Error("Board failed",
				"board", board.Name)
			continue
		}
		harvested = append(harvested, posts...)
	}

	if len(harvested) == 0 {
		return nil
	}

	result, err := s.store.InsertNew(ctx, harvested)
	if err != nil {
		return fmt.Errorf("failed to persist posts: %w", err)
	}
	if result.FailedChunks > 0 {
		log.Warn("Some insert chunks failed", "failed_chunks", result.FailedChunks)
	}

	s.state.addHarvested(int64(len(result.Inserted)))
	summary.ItemsHarvested += len(result.Inserted)

	log.Info("Source harvested",
		"collected", len(harvested),
		"inserted", len(result.Inserted))

	if len(result.Inserted) > 0 {
		if notifyErr := s.notifier.NotifyNewPosts(ctx, result.Inserted); notifyErr != nil {
			// Delivery is best effort; the posts are already durable.
			log.WithError(notifyErr).Warn("Notification failed")
		}
	}

	return nil
}

// harvestBoard lists one board, filters by date window, and extracts details
// for the admitted summaries. Item failures are tallied, never fatal.
func (s *Scheduler) harvestBoard(
	ctx context.Context,
	page browser.Page,
	sess Sessioner,
	src *sources.Config,
	board sources.Board,
	summary *domain.RunSummary,
) ([]domain.HarvestedPost, error) {
	log := s.logger.WithSource(src.Name)

	summaries, err := s.listBoard(ctx, page, src, board)
	if err != nil {
		return nil, err
	}

	admitted := s.filterByWindow(summaries, src, summary, log)

	var posts []domain.HarvestedPost
	for _, item := range admitted {
		if err := ctx.Err(); err != nil {
			return posts, err
		}

		// Feed-sourced summaries already carry their content, so there is
		// no detail page to load and nothing to pace.
		if item.summary.ContentHTML != "" {
			posts = append(posts, s.buildFeedPost(src, board, item))
			continue
		}

		if !sess.Session().IsActive() {
			if authErr := sess.EnsureAuthenticated(ctx); authErr != nil {
				return posts, fmt.Errorf("session lost: %w", authErr)
			}
		}

		if pacerErr := s.pacer.Wait(ctx); pacerErr != nil {
			return posts, pacerErr
		}

		post, itemErr := s.harvestItem(ctx, page, src, board, item)
		if itemErr != nil {
			s.state.addError()
			summary.ItemsFailed++
			log.WithError(itemErr).Warn("Item failed",
				"title", item.summary.Title,
				"url", item.summary.DetailURL)
			continue
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// admittedItem pairs a summary with its normalized timestamp.
type admittedItem struct {
	summary     domain.PostSummary
	publishedAt time.Time
}

// filterByWindow applies the date-window filter in listing order. Boards
// list newest first, so the first out-of-window item ends the board; the
// rest can only be older.
func (s *Scheduler) filterByWindow(
	summaries []domain.PostSummary,
	src *sources.Config,
	runSummary *domain.RunSummary,
	log logger.Interface,
) []admittedItem {
	now := s.now()
	lookback := src.LookbackDays
	if lookback <= 0 {
		lookback = s.cfg.LookbackDays
	}

	var admitted []admittedItem
	for _, summary := range summaries {
		publishedAt, err := extract.NormalizeDate(summary.DateText, now)
		if err != nil {
			s.state.addError()
			runSummary.ItemsFailed++
			log.Warn("Unparsable listing date, skipping item",
				"date_text", summary.DateText,
				"title", summary.Title)
			continue
		}
		if !extract.WithinWindow(publishedAt, now, lookback) {
			break
		}
		admitted = append(admitted, admittedItem{summary: summary, publishedAt: publishedAt})
	}
	return admitted
}

// listBoard loads a board's listing page and extracts its summaries. When
// structural extraction misses and the source exposes a feed, the feed
// provides the listing instead.
func (s *Scheduler) listBoard(
	ctx context.Context,
	page browser.Page,
	src *sources.Config,
	board sources.Board,
) ([]domain.PostSummary, error) {
	listingURL, err := src.ListingURL(board)
	if err != nil {
		return nil, err
	}

	limit := src.ItemLimit
	if limit <= 0 {
		limit = s.cfg.ItemLimit
	}

	if pacerErr := s.pacer.Wait(ctx); pacerErr != nil {
		return nil, pacerErr
	}

	var summaries []domain.PostSummary
	err = s.retryTransient(ctx, func() error {
		if navErr := page.Navigate(ctx, listingURL); navErr != nil {
			return navErr
		}
		html, capErr := s.capturePage(ctx, page, src)
		if capErr != nil {
			return capErr
		}
		var listErr error
		summaries, listErr = s.listing.Extract(html, board, src.Selectors.List, src.BaseURL, limit)
		return listErr
	})
	if err == nil {
		return summaries, nil
	}

	if errors.Is(err, extract.ErrExtractionMiss) && src.FeedURL != "" && s.feeds != nil {
		s.logger.Warn("Listing extraction missed, falling back to feed",
			"source", src.Name,
			"board", board.Name)
		items, feedErr := s.feeds.List(ctx, src.FeedURL, board.ID)
		if feedErr != nil {
			return nil, fmt.Errorf("feed fallback failed: %w", feedErr)
		}
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		return items, nil
	}

	return nil, err
}

// harvestItem navigates to one post and builds its persisted form.
func (s *Scheduler) harvestItem(
	ctx context.Context,
	page browser.Page,
	src *sources.Config,
	board sources.Board,
	item admittedItem,
) (domain.HarvestedPost, error) {
	var detail extract.Detail
	err := s.retryTransient(ctx, func() error {
		if navErr := page.Navigate(ctx, item.summary.DetailURL); navErr != nil {
			return navErr
		}
		var exErr error
		detail, exErr = s.detail.Extract(ctx, page, frameID(src), src.Selectors.Detail, item.summary.DetailURL)
		return exErr
	})
	if err != nil {
		return domain.HarvestedPost{}, err
	}

	author := item.summary.Author
	if author == "" {
		author = domain.UnknownAuthor
	}

	return domain.HarvestedPost{
		SourceName:  src.Name,
		BoardName:   board.Name,
		Title:       item.summary.Title,
		Author:      author,
		PublishedAt: item.publishedAt,
		ContentHTML: detail.ContentHTML,
		MediaURLs:   detail.MediaURLs,
		SourceURL:   item.summary.DetailURL,
		Status:      domain.PostStatusPending,
	}, nil
}

// buildFeedPost persists a feed-sourced summary as it stands. The feed
// already supplied the body, so the detail pipeline is skipped entirely.
func (s *Scheduler) buildFeedPost(src *sources.Config, board sources.Board, item admittedItem) domain.HarvestedPost {
	author := item.summary.Author
	if author == "" {
		author = domain.UnknownAuthor
	}

	return domain.HarvestedPost{
		SourceName:  src.Name,
		BoardName:   board.Name,
		Title:       item.summary.Title,
		Author:      author,
		PublishedAt: item.publishedAt,
		ContentHTML: item.summary.ContentHTML,
		MediaURLs:   extract.MediaURLs(item.summary.ContentHTML, src.BaseURL),
		SourceURL:   item.summary.DetailURL,
		Status:      domain.PostStatusPending,
	}
}

// capturePage captures the source's content frame, or the top-level
// document when no frame matches.
func (s *Scheduler) capturePage(ctx context.Context, page browser.Page, src *sources.Config) (string, error) {
	html, err := browser.CaptureFrameHTML(ctx, page, frameID(src))
	if errors.Is(err, browser.ErrFrameNotFound) {
		return page.OuterHTML(ctx)
	}
	return html, err
}

// retryTransient runs op, retrying transient failures with capped
// exponential backoff. Non-transient errors return immediately; retrying a
// structural miss or an auth failure only burns the request budget.
func (s *Scheduler) retryTransient(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if waitErr := s.backoff.Wait(ctx, attempt-1); waitErr != nil {
				return waitErr
			}
			s.logger.Debug("Retrying after transient failure", "attempt", attempt)
		}
		err = op()
		if err == nil || !IsTransient(err) {
			return err
		}
	}
	return err
}

// frameID maps a source's frame identity onto the driver's form.
func frameID(src *sources.Config) browser.FrameID {
	return browser.FrameID{
		Name:        src.Frame.Name,
		URLPatterns: src.Frame.URLPatterns,
	}
}
