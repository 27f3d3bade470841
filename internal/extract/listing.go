// Package extract turns captured page markup into domain values. Every
// extractor works on a parsed document, never a live browser handle, so the
// whole package is testable against fixture HTML.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/logger"
	"github.com/jonesrussell/cafecrawl/internal/selector"
	"github.com/jonesrussell/cafecrawl/internal/sources"
)

// ErrExtractionMiss is returned when a required selector chain matches
// nothing at all. The page is up but its structure is unrecognized; the
// caller decides whether a fallback listing path exists.
var ErrExtractionMiss = errors.New("extraction miss")

// ListingExtractor pulls post summaries out of a board listing page.
type ListingExtractor struct {
	logger logger.Interface
}

// NewListingExtractor creates a listing extractor.
func NewListingExtractor(log logger.Interface) *ListingExtractor {
	return &ListingExtractor{logger: log.WithComponent("listing")}
}

// Extract parses one listing page and returns its post summaries in page
// order. Notice rows are always excluded, whatever selector matched them.
// A limit of zero means no cap.
func (e *ListingExtractor) Extract(
	html string,
	board sources.Board,
	sel sources.ListSelectors,
	baseURL string,
	limit int,
) ([]domain.PostSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	rows, ok := sel.Row.All(doc.Selection)
	if !ok {
		return nil, fmt.Errorf("%w: no listing rows", ErrExtractionMiss)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	var summaries []domain.PostSummary
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if limit > 0 && len(summaries) >= limit {
			return false
		}
		if sel.Notice.Matches(row) {
			return true
		}

		summary, rowOK := e.extractRow(row, board, sel, base)
		if !rowOK {
			return true
		}
		summaries = append(summaries, summary)
		return true
	})

	e.logger.Debug("Listing extracted",
		"board", board.Name,
		"count", len(summaries))

	return summaries, nil
}

// extractRow pulls one summary from a listing row. Rows without a title or
// a detail link are separators and padding; they are skipped, not errors.
func (e *ListingExtractor) extractRow(
	row *goquery.Selection,
	board sources.Board,
	sel sources.ListSelectors,
	base *url.URL,
) (domain.PostSummary, bool) {
	title, ok := sel.Title.Text(row)
	if !ok {
		return domain.PostSummary{}, false
	}

	href := extractHref(row, sel.Title)
	if href == "" {
		return domain.PostSummary{}, false
	}

	author, ok := sel.Author.Text(row)
	if !ok {
		author = domain.UnknownAuthor
	}

	dateText, _ := sel.Date.Text(row)

	return domain.PostSummary{
		Title:     title,
		Author:    author,
		DateText:  dateText,
		DetailURL: Absolutize(base, href),
		BoardID:   board.ID,
	}, true
}

// extractHref finds the detail link for a row: the title element itself when
// it is an anchor, otherwise the first anchor inside or around it.
func extractHref(row *goquery.Selection, title selector.Chain) string {
	node, ok := title.First(row)
	if !ok {
		return ""
	}
	if href, exists := node.Attr("href"); exists && href != "" {
		return href
	}
	if href, exists := node.Find("a").First().Attr("href"); exists && href != "" {
		return href
	}
	if href, exists := node.Closest("a").Attr("href"); exists && href != "" {
		return href
	}
	return ""
}

// Absolutize resolves a possibly-relative URL reference against a base.
// Unparsable references come back unchanged; a broken media link is not
// worth dropping the post over.
func Absolutize(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}
