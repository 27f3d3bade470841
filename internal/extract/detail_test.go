package extract_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/cafecrawl/internal/browser"
	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/extract"
	"github.com/jonesrussell/cafecrawl/internal/logger"
	"github.com/jonesrussell/cafecrawl/internal/selector"
	"github.com/jonesrussell/cafecrawl/internal/sources"
)

const detailFixture = `<html><body>
<div id="postViewArea">
  <p>Hello world</p>
  <img src="/img/photo1.jpg">
  <img src="https://cdn.example.com/photo2.jpg">
  <img src="data:image/png;base64,xyz">
  <img src="/img/photo1.jpg">
  <video src="/video/clip.mp4"></video>
</div>
</body></html>`

func detailSelectors() sources.DetailSelectors {
	return sources.DetailSelectors{
		Content: selector.Chain{
			".se-main-container",
			".ContentRenderer",
			"#postViewArea",
		},
	}
}

func TestDetailParse(t *testing.T) {
	e := extract.NewDetailExtractor(logger.NewNoOp())

	got, err := e.Parse(detailFixture, detailSelectors(),
		"https://cafe.example.com/ArticleRead.nhn?articleid=101")
	require.NoError(t, err)

	assert.Contains(t, got.ContentHTML, "Hello world")
	assert.Contains(t, got.ContentHTML, `id="postViewArea"`)
	// Relative references resolved, data URIs and duplicates dropped.
	assert.Equal(t, []string{
		"https://cafe.example.com/img/photo1.jpg",
		"https://cdn.example.com/photo2.jpg",
		"https://cafe.example.com/video/clip.mp4",
	}, got.MediaURLs)
}

func TestDetailParseChainOrder(t *testing.T) {
	e := extract.NewDetailExtractor(logger.NewNoOp())
	html := `<html><body>
<div class="se-main-container"><p>editor body</p></div>
<div id="postViewArea"><p>legacy body</p></div>
</body></html>`

	got, err := e.Parse(html, detailSelectors(), "https://cafe.example.com/post")
	require.NoError(t, err)

	// The first matching query wins; later ones are never consulted.
	assert.Contains(t, got.ContentHTML, "editor body")
	assert.NotContains(t, got.ContentHTML, "legacy body")
}

func TestDetailParseMiss(t *testing.T) {
	e := extract.NewDetailExtractor(logger.NewNoOp())

	_, err := e.Parse("<html><body><p>bare</p></body></html>", detailSelectors(),
		"https://cafe.example.com/post")
	assert.ErrorIs(t, err, extract.ErrExtractionMiss)
}

// framePage serves frame markup and records whether the top-level document
// was consulted.
type framePage struct {
	frames      []browser.FrameInfo
	frameHTML   map[int]string
	topHTML     string
	topConsults int
}

func (p *framePage) Navigate(context.Context, string) error       { return nil }
func (p *framePage) CurrentURL(context.Context) (string, error)   { return "", nil }
func (p *framePage) WaitVisible(context.Context, string) error    { return nil }
func (p *framePage) Click(context.Context, string) error          { return nil }
func (p *framePage) DismissOptional(context.Context, string) bool { return false }
func (p *framePage) Close() error                                 { return nil }

func (p *framePage) TypeSlow(_ context.Context, _, _ string, _, _ time.Duration) error {
	return nil
}

func (p *framePage) Cookies(context.Context) ([]domain.Cookie, error) {
	return nil, nil
}

func (p *framePage) SetCookies(context.Context, []domain.Cookie) error {
	return nil
}

func (p *framePage) OuterHTML(context.Context) (string, error) {
	p.topConsults++
	return p.topHTML, nil
}

func (p *framePage) Frames(context.Context) ([]browser.FrameInfo, error) {
	return p.frames, nil
}

func (p *framePage) FrameHTML(_ context.Context, index int) (string, error) {
	html, ok := p.frameHTML[index]
	if !ok {
		return "", browser.ErrFrameNotFound
	}
	return html, nil
}

func TestDetailExtractReadsContentFrame(t *testing.T) {
	e := extract.NewDetailExtractor(logger.NewNoOp())
	page := &framePage{
		frames: []browser.FrameInfo{
			{Index: 0, Name: "banner", URL: "https://ads.example.com"},
			{Index: 1, Name: "cafe_main", URL: "https://cafe.example.com/ArticleRead.nhn"},
		},
		frameHTML: map[int]string{1: detailFixture},
		topHTML:   "<html><body></body></html>",
	}

	got, err := e.Extract(context.Background(), page,
		browser.FrameID{Name: "cafe_main"}, detailSelectors(),
		"https://cafe.example.com/ArticleRead.nhn?articleid=101")
	require.NoError(t, err)

	assert.Contains(t, got.ContentHTML, "Hello world")
	assert.Zero(t, page.topConsults)
}

func TestDetailExtractFallsBackToTopLevel(t *testing.T) {
	e := extract.NewDetailExtractor(logger.NewNoOp())
	page := &framePage{topHTML: detailFixture}

	got, err := e.Extract(context.Background(), page,
		browser.FrameID{Name: "cafe_main"}, detailSelectors(),
		"https://cafe.example.com/post")
	require.NoError(t, err)

	assert.Contains(t, got.ContentHTML, "Hello world")
	assert.Equal(t, 1, page.topConsults)
}

func TestMediaURLsFromFragment(t *testing.T) {
	html := `<div><p>body</p><img src="/img/a.jpg"><img src="data:image/png;base64,xx"><img src="/img/a.jpg"></div>`

	got := extract.MediaURLs(html, "https://cafe.example.com/board")
	assert.Equal(t, []string{"https://cafe.example.com/img/a.jpg"}, got)
}

func TestMediaURLsBadBase(t *testing.T) {
	assert.Nil(t, extract.MediaURLs(`<img src="/a.jpg">`, "://bad"))
}
