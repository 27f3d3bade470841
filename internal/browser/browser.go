// Package browser abstracts the automation driver behind a small interface.
// The rest of the pipeline depends only on this package's shape, never on the
// concrete backend, and frame access is resolution-then-read by identity so a
// stale frame handle is unrepresentable above the driver.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonesrussell/cafecrawl/internal/domain"
)

// Error types for the browser package.
var (
	// ErrFrameNotFound is returned when no frame matches an identity after
	// exhausting name, URL patterns, and the positional fallback. Callers
	// decide whether that is fatal; during detail extraction it usually means
	// the content lives on the top-level document.
	ErrFrameNotFound = errors.New("frame not found")

	// ErrNavigationTimeout is returned when a navigation or wait exceeds the
	// configured timeout. Classified transient: eligible for retry.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrNavigation is returned for other navigation-level failures
	// (network errors, aborted loads). Classified transient.
	ErrNavigation = errors.New("navigation failed")
)

// FrameID identifies a nested browsing context. Matching order: exact
// name/id, then URL-substring patterns, then positional fallback when
// exactly one frame exists.
type FrameID struct {
	Name        string
	URLPatterns []string
}

// FrameInfo describes one candidate frame of the current page. The index is
// positional within the page's frame list at resolution time and is only
// valid until the next navigation.
type FrameInfo struct {
	Index int
	Name  string
	URL   string
}

// Page is one top-level browsing context. Every method crosses into the
// browser and honors the context.
type Page interface {
	// Navigate loads a URL in the top-level context.
	Navigate(ctx context.Context, url string) error
	// CurrentURL returns the top-level document URL.
	CurrentURL(ctx context.Context) (string, error)
	// WaitVisible blocks until the selector is visible.
	WaitVisible(ctx context.Context, sel string) error
	// Click clicks the first element matching the selector.
	Click(ctx context.Context, sel string) error
	// TypeSlow focuses the selector and types text one rune at a time with a
	// randomized delay per keystroke. Human-paced input is a domain
	// requirement, not a nicety.
	TypeSlow(ctx context.Context, sel, text string, minDelay, maxDelay time.Duration) error
	// DismissOptional clicks the selector if it appears within a short
	// window. Absence is not an error; the return reports whether anything
	// was dismissed.
	DismissOptional(ctx context.Context, sel string) bool
	// OuterHTML captures the top-level document markup.
	OuterHTML(ctx context.Context) (string, error)
	// Frames lists the frames of the current page. Must be re-invoked after
	// every navigation.
	Frames(ctx context.Context) ([]FrameInfo, error)
	// FrameHTML captures the document markup of the frame at the given
	// positional index, as returned by the immediately preceding Frames call.
	FrameHTML(ctx context.Context, index int) (string, error)
	// Cookies exports the current cookie set.
	Cookies(ctx context.Context) ([]domain.Cookie, error)
	// SetCookies replays a previously exported cookie set.
	SetCookies(ctx context.Context, cookies []domain.Cookie) error
	// Close releases the page.
	Close() error
}

// Driver owns the browser process for the run's duration.
type Driver interface {
	// NewPage opens a top-level browsing context.
	NewPage(ctx context.Context) (Page, error)
	// Close terminates the browser.
	Close() error
}

// Locate resolves a frame identity against a freshly listed frame set.
// Identity is tried in order: exact name match, URL-substring match, then
// positional fallback only when a single frame exists.
func Locate(frames []FrameInfo, id FrameID) (FrameInfo, bool) {
	if id.Name != "" {
		for _, f := range frames {
			if f.Name == id.Name {
				return f, true
			}
		}
	}
	for _, pattern := range id.URLPatterns {
		if pattern == "" {
			continue
		}
		for _, f := range frames {
			if strings.Contains(f.URL, pattern) {
				return f, true
			}
		}
	}
	if len(frames) == 1 {
		return frames[0], true
	}
	return FrameInfo{}, false
}

// CaptureFrameHTML captures the markup of the frame identified by id,
// re-resolving the frame set first. Resolution and read happen together, so
// no frame reference survives a navigation.
func CaptureFrameHTML(ctx context.Context, p Page, id FrameID) (string, error) {
	frames, err := p.Frames(ctx)
	if err != nil {
		return "", err
	}
	frame, ok := Locate(frames, id)
	if !ok {
		return "", ErrFrameNotFound
	}
	return p.FrameHTML(ctx, frame.Index)
}
