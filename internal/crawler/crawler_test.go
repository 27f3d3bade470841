package crawler_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/cafecrawl/internal/browser"
	harvestconfig "github.com/jonesrussell/cafecrawl/internal/config/harvest"
	"github.com/jonesrussell/cafecrawl/internal/crawler"
	"github.com/jonesrussell/cafecrawl/internal/database"
	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/selector"
	"github.com/jonesrussell/cafecrawl/internal/session"
	"github.com/jonesrussell/cafecrawl/internal/sources"
)

// fakePage serves canned HTML keyed by URL. Frames are absent, so capture
// always falls back to the top-level document.
type fakePage struct {
	pages     map[string]string
	url       string
	navigated []string
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.url = url
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePage) CurrentURL(context.Context) (string, error)   { return p.url, nil }
func (p *fakePage) WaitVisible(context.Context, string) error    { return nil }
func (p *fakePage) Click(context.Context, string) error          { return nil }
func (p *fakePage) DismissOptional(context.Context, string) bool { return false }
func (p *fakePage) Close() error                                 { return nil }

func (p *fakePage) TypeSlow(_ context.Context, _, _ string, _, _ time.Duration) error {
	return nil
}

func (p *fakePage) OuterHTML(context.Context) (string, error) {
	html, ok := p.pages[p.url]
	if !ok {
		return "<html><body></body></html>", nil
	}
	return html, nil
}

func (p *fakePage) Frames(context.Context) ([]browser.FrameInfo, error) { return nil, nil }

func (p *fakePage) FrameHTML(context.Context, int) (string, error) {
	return "", browser.ErrFrameNotFound
}

func (p *fakePage) Cookies(context.Context) ([]domain.Cookie, error)  { return nil, nil }
func (p *fakePage) SetCookies(context.Context, []domain.Cookie) error { return nil }

// fakeDriver hands out pages over a shared URL-to-HTML map and keeps the
// pages it created so tests can inspect their navigation history.
type fakeDriver struct {
	pages   map[string]string
	created []*fakePage
}

func (d *fakeDriver) NewPage(context.Context) (browser.Page, error) {
	p := &fakePage{pages: d.pages}
	d.created = append(d.created, p)
	return p, nil
}

func (d *fakeDriver) Close() error { return nil }

// fakeSessioner counts login attempts and is authenticated unless primed
// with an error.
type fakeSessioner struct {
	sess   *domain.Session
	err    error
	logins int
}

func (s *fakeSessioner) EnsureAuthenticated(context.Context) error {
	s.logins++
	if s.err != nil {
		return s.err
	}
	s.sess.State = domain.SessionActive
	return nil
}

func (s *fakeSessioner) Session() *domain.Session { return s.sess }

func activeSessionFactory(browser.Page, *sources.Config) crawler.Sessioner {
	return &fakeSessioner{sess: domain.NewSession()}
}

// memStore records inserts and reports everything as new.
type memStore struct {
	mu       sync.Mutex
	inserted []domain.HarvestedPost
}

func (s *memStore) InsertNew(_ context.Context, posts []domain.HarvestedPost) (database.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, posts...)
	return database.InsertResult{Inserted: posts}, nil
}

func (s *memStore) ListRecent(context.Context, int) ([]domain.HarvestedPost, error) {
	return nil, nil
}

func (s *memStore) UpdateStatus(context.Context, string, domain.PostStatus) error {
	return nil
}

// fakeLister serves canned feed summaries.
type fakeLister struct {
	items []domain.PostSummary
	calls int
}

func (l *fakeLister) List(context.Context, string, string) ([]domain.PostSummary, error) {
	l.calls++
	return l.items, nil
}

// fakeNotifier records delivered batches.
type fakeNotifier struct {
	batches [][]domain.HarvestedPost
}

func (n *fakeNotifier) NotifyNewPosts(_ context.Context, posts []domain.HarvestedPost) error {
	n.batches = append(n.batches, posts)
	return nil
}

const listingRow = `<tr>
  <td class="td_article">%s<a class="article" href="/post/%d">%s</a></td>
  <td class="td_name"><a class="m-tcol-c">alice</a></td>
  <td class="td_date">%s</td>
</tr>`

// fixtureListing builds a five-row board page: row 3 is a notice and row 5
// is older than any reasonable lookback window.
func fixtureListing(now time.Time) string {
	rows := fmt.Sprintf(listingRow, "", 101, "first", "14:02") +
		fmt.Sprintf(listingRow, "", 102, "second", now.AddDate(0, 0, -2).Format("2006.01.02")) +
		fmt.Sprintf(listingRow, `<span class="ico-list-notice"></span>`, 103, "pinned", "01.01") +
		fmt.Sprintf(listingRow, "", 104, "third", now.AddDate(0, 0, -3).Format("2006.01.02")) +
		fmt.Sprintf(listingRow, "", 105, "ancient", now.AddDate(0, 0, -30).Format("2006.01.02"))

	return `<html><body><table class="article-board"><tbody>` + rows + `</tbody></table></body></html>`
}

const detailPage = `<html><body><div id="postViewArea"><p>%s body</p><img src="/img/%s.jpg"></div></body></html>`

func fixtureSource(name string) sources.Config {
	return sources.Config{
		Name:    name,
		BaseURL: "https://cafe.example.com",
		Boards:  []sources.Board{{ID: "12", Name: "general", Path: "/board"}},
		Selectors: sources.SelectorConfig{
			List: sources.ListSelectors{
				Row:    selector.Chain{".article-board tbody tr"},
				Title:  selector.Chain{".td_article .article"},
				Author: selector.Chain{".td_name .m-tcol-c"},
				Date:   selector.Chain{".td_date"},
				Notice: selector.Chain{".ico-list-notice"},
			},
			Detail: sources.DetailSelectors{
				Content: selector.Chain{"#postViewArea"},
			},
		},
	}
}

func fixturePages(now time.Time) map[string]string {
	return map[string]string{
		"https://cafe.example.com/board":    fixtureListing(now),
		"https://cafe.example.com/post/101": fmt.Sprintf(detailPage, "first", "a"),
		"https://cafe.example.com/post/102": fmt.Sprintf(detailPage, "second", "b"),
		"https://cafe.example.com/post/104": fmt.Sprintf(detailPage, "third", "c"),
	}
}

func testHarvestConfig() *harvestconfig.Config {
	return &harvestconfig.Config{
		ItemLimit:      10,
		LookbackDays:   7,
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  time.Millisecond,
	}
}

func newScheduler(t *testing.T, pages map[string]string, srcs []sources.Config, store *memStore, n *fakeNotifier) *crawler.Scheduler {
	t.Helper()
	s, err := crawler.NewScheduler(crawler.Params{
		Driver:         &fakeDriver{pages: pages},
		SessionFactory: activeSessionFactory,
		Store:          store,
		Notifier:       n,
		Sources:        srcs,
		Config:         testHarvestConfig(),
	})
	require.NoError(t, err)
	return s
}

func TestRunEndToEnd(t *testing.T) {
	now := time.Now()
	store := &memStore{}
	notifier := &fakeNotifier{}
	s := newScheduler(t, fixturePages(now), []sources.Config{fixtureSource("test-cafe")}, store, notifier)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	// Five rows: the notice is excluded, the ancient row falls outside the
	// window, and the three survivors are persisted.
	assert.Equal(t, 1, summary.SourcesProcessed)
	assert.Equal(t, 3, summary.ItemsHarvested)
	assert.Zero(t, summary.ItemsFailed)
	require.Len(t, store.inserted, 3)

	assert.Equal(t, "first", store.inserted[0].Title)
	assert.Equal(t, "second", store.inserted[1].Title)
	assert.Equal(t, "third", store.inserted[2].Title)

	for _, p := range store.inserted {
		assert.Equal(t, "test-cafe", p.SourceName)
		assert.Equal(t, "general", p.BoardName)
		assert.Equal(t, domain.PostStatusPending, p.Status)
		assert.Contains(t, p.ContentHTML, "body")
		assert.NotEmpty(t, p.MediaURLs)
		assert.False(t, p.PublishedAt.IsZero())
	}

	// One notification batch for the inserted set.
	require.Len(t, notifier.batches, 1)
	assert.Len(t, notifier.batches[0], 3)
}

func TestRunSickSourceDoesNotAbortHealthyOne(t *testing.T) {
	now := time.Now()
	pages := fixturePages(now)
	// The sick source's board page exists but matches none of its selectors.
	pages["https://cafe.example.com/broken"] = "<html><body><p>redesigned</p></body></html>"

	sick := fixtureSource("sick-cafe")
	sick.Boards = []sources.Board{{ID: "99", Name: "broken", Path: "/broken"}}

	store := &memStore{}
	s := newScheduler(t, pages, []sources.Config{sick, fixtureSource("test-cafe")}, store, &fakeNotifier{})

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	// The sick source contributes nothing and aborts nothing.
	assert.Equal(t, 2, summary.SourcesProcessed)
	assert.Equal(t, 3, summary.ItemsHarvested)
	assert.Len(t, store.inserted, 3)
}

func TestRunChallengeAbortsRun(t *testing.T) {
	now := time.Now()
	// Every source shares one credential set, so a challenge on the first
	// source must stop the run before the second source ever logs in.
	sessioners := map[string]*fakeSessioner{
		"challenged-cafe": {sess: domain.NewSession(), err: session.ErrChallengeRequired},
		"second-cafe":     {sess: domain.NewSession()},
	}
	factory := func(_ browser.Page, src *sources.Config) crawler.Sessioner {
		return sessioners[src.Name]
	}

	store := &memStore{}
	s, err := crawler.NewScheduler(crawler.Params{
		Driver:         &fakeDriver{pages: fixturePages(now)},
		SessionFactory: factory,
		Store:          store,
		Sources:        []sources.Config{fixtureSource("challenged-cafe"), fixtureSource("second-cafe")},
		Config:         testHarvestConfig(),
	})
	require.NoError(t, err)

	summary, runErr := s.Run(context.Background())
	require.ErrorIs(t, runErr, session.ErrChallengeRequired)

	assert.True(t, summary.ChallengeRequired)
	assert.Equal(t, 1, summary.AuthFailures)
	assert.Equal(t, 1, sessioners["challenged-cafe"].logins)
	assert.Zero(t, sessioners["second-cafe"].logins)
	assert.Empty(t, store.inserted)
}

func TestRunCountsUnparsableDates(t *testing.T) {
	now := time.Now()
	rows := fmt.Sprintf(listingRow, "", 101, "first", "14:02") +
		fmt.Sprintf(listingRow, "", 106, "mangled", "soon(tm)") +
		fmt.Sprintf(listingRow, "", 102, "second", now.AddDate(0, 0, -2).Format("2006.01.02"))
	pages := fixturePages(now)
	pages["https://cafe.example.com/board"] = `<html><body><table class="article-board"><tbody>` +
		rows + `</tbody></table></body></html>`

	store := &memStore{}
	s := newScheduler(t, pages, []sources.Config{fixtureSource("test-cafe")}, store, &fakeNotifier{})

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	// The mangled row is skipped as a failure without ending the board scan.
	assert.Equal(t, 1, summary.ItemsFailed)
	assert.Equal(t, 2, summary.ItemsHarvested)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, "first", store.inserted[0].Title)
	assert.Equal(t, "second", store.inserted[1].Title)
}

func TestRunFeedFallbackSkipsDetailPages(t *testing.T) {
	now := time.Now()
	src := fixtureSource("feed-cafe")
	src.FeedURL = "https://cafe.example.com/feed"

	// The board page exists but matches none of the listing selectors, so
	// the feed supplies the listing, content included.
	pages := map[string]string{
		"https://cafe.example.com/board": "<html><body><p>redesigned</p></body></html>",
	}

	feeds := &fakeLister{items: []domain.PostSummary{
		{
			Title:       "from feed",
			Author:      "bob",
			DateText:    now.AddDate(0, 0, -1).Format("2006.01.02"),
			DetailURL:   "https://cafe.example.com/post/201",
			BoardID:     "12",
			ContentHTML: `<div><p>feed body</p><img src="/img/f.jpg"></div>`,
		},
	}}

	driver := &fakeDriver{pages: pages}
	store := &memStore{}
	s, err := crawler.NewScheduler(crawler.Params{
		Driver:         driver,
		SessionFactory: activeSessionFactory,
		Store:          store,
		Feeds:          feeds,
		Sources:        []sources.Config{src},
		Config:         testHarvestConfig(),
	})
	require.NoError(t, err)

	summary, runErr := s.Run(context.Background())
	require.NoError(t, runErr)

	assert.Equal(t, 1, feeds.calls)
	assert.Equal(t, 1, summary.ItemsHarvested)
	require.Len(t, store.inserted, 1)

	post := store.inserted[0]
	assert.Equal(t, "from feed", post.Title)
	assert.Equal(t, "bob", post.Author)
	assert.Contains(t, post.ContentHTML, "feed body")
	assert.Equal(t, []string{"https://cafe.example.com/img/f.jpg"}, []string(post.MediaURLs))

	// The feed supplied the body, so no detail page was ever loaded.
	require.Len(t, driver.created, 1)
	assert.Equal(t, []string{"https://cafe.example.com/board"}, driver.created[0].navigated)
}

func TestRunPacesListingNavigation(t *testing.T) {
	now := time.Now()
	cfg := testHarvestConfig()
	cfg.PacingMin = time.Hour
	cfg.PacingMax = time.Hour

	driver := &fakeDriver{pages: fixturePages(now)}
	s, err := crawler.NewScheduler(crawler.Params{
		Driver:         driver,
		SessionFactory: activeSessionFactory,
		Store:          &memStore{},
		Sources:        []sources.Config{fixtureSource("test-cafe")},
		Config:         cfg,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, runErr := s.Run(ctx)
	assert.ErrorIs(t, runErr, context.DeadlineExceeded)

	// The pacing delay sits in front of the listing load, so cancellation
	// during the delay means the board page was never requested.
	require.Len(t, driver.created, 1)
	assert.Empty(t, driver.created[0].navigated)
}

func TestRunSourceByName(t *testing.T) {
	now := time.Now()
	store := &memStore{}
	s := newScheduler(t, fixturePages(now), []sources.Config{fixtureSource("test-cafe")}, store, &fakeNotifier{})

	_, err := s.RunSource(context.Background(), "missing")
	assert.ErrorIs(t, err, crawler.ErrSourceNotFound)

	summary, err := s.RunSource(context.Background(), "test-cafe")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.ItemsHarvested)
}

func TestRunHonorsCancellation(t *testing.T) {
	now := time.Now()
	store := &memStore{}
	s := newScheduler(t, fixturePages(now), []sources.Config{fixtureSource("test-cafe")}, store, &fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.inserted)
}
