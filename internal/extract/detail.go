package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/cafecrawl/internal/browser"
	"github.com/jonesrussell/cafecrawl/internal/logger"
	"github.com/jonesrussell/cafecrawl/internal/sources"
)

// Detail is the result of extracting one post's page.
type Detail struct {
	// ContentHTML is the article body markup from the first matching
	// content selector.
	ContentHTML string
	// MediaURLs are the absolutized image and video references found
	// inside the article body, in document order without duplicates.
	MediaURLs []string
}

// DetailExtractor pulls full article content out of a post page. The page
// must already be navigated to the post; this type only captures and parses.
type DetailExtractor struct {
	logger logger.Interface
}

// NewDetailExtractor creates a detail extractor.
func NewDetailExtractor(log logger.Interface) *DetailExtractor {
	return &DetailExtractor{logger: log.WithComponent("detail")}
}

// Extract captures the content frame of the current page and extracts the
// article body and media. When no frame matches the identity the top-level
// document is used instead; some post layouts host content directly.
func (e *DetailExtractor) Extract(
	ctx context.Context,
	page browser.Page,
	frame browser.FrameID,
	sel sources.DetailSelectors,
	pageURL string,
) (Detail, error) {
	html, err := browser.CaptureFrameHTML(ctx, page, frame)
	if errors.Is(err, browser.ErrFrameNotFound) {
		e.logger.Debug("Content frame absent, using top-level document",
			"url", pageURL)
		html, err = page.OuterHTML(ctx)
	}
	if err != nil {
		return Detail{}, err
	}

	return e.Parse(html, sel, pageURL)
}

// Parse extracts the article body and media references from captured markup.
func (e *DetailExtractor) Parse(html string, sel sources.DetailSelectors, pageURL string) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Detail{}, fmt.Errorf("failed to parse post page: %w", err)
	}

	body, ok := sel.Content.First(doc.Selection)
	if !ok {
		return Detail{}, fmt.Errorf("%w: no content body", ErrExtractionMiss)
	}

	content, err := goquery.OuterHtml(body)
	if err != nil {
		return Detail{}, fmt.Errorf("failed to render content: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return Detail{}, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	return Detail{
		ContentHTML: content,
		MediaURLs:   collectMedia(body, base),
	}, nil
}

// MediaURLs gathers the media references out of a standalone HTML fragment,
// resolved against baseURL. Used for bodies that arrive already extracted,
// such as feed-supplied content. Unparsable input yields no media.
func MediaURLs(html, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	return collectMedia(doc.Selection, base)
}

// collectMedia gathers image and video sources inside the article body,
// resolved to absolute URLs. Inline data URIs are skipped.
func collectMedia(body *goquery.Selection, base *url.URL) []string {
	var media []string
	seen := make(map[string]struct{})

	add := func(ref string) {
		if ref == "" || strings.HasPrefix(ref, "data:") {
			return
		}
		abs := Absolutize(base, ref)
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		media = append(media, abs)
	}

	body.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		add(src)
	})
	body.Find("video").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		add(src)
	})
	body.Find("video source").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		add(src)
	})

	return media
}
