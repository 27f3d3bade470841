package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	browserconfig "github.com/jonesrussell/cafecrawl/internal/config/browser"
	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/logger"
)

// dismissWindow bounds how long DismissOptional waits for an interstitial.
const dismissWindow = 2 * time.Second

// frameListJS enumerates candidate frames of the current document. Cross-
// origin frames refuse location access; those fall back to the src attribute.
const frameListJS = `Array.from(document.querySelectorAll('iframe')).map((f, i) => {
	let url = '';
	try { url = f.contentWindow.location.href; } catch (e) { url = f.src || ''; }
	return { index: i, name: f.name || f.id || '', url: url };
})`

// ChromeDriver implements Driver on chromedp.
type ChromeDriver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	cfg         *browserconfig.Config
	logger      logger.Interface
}

// Ensure interface compliance
var (
	_ Driver = (*ChromeDriver)(nil)
	_ Page   = (*chromePage)(nil)
)

// NewChromeDriver builds the exec allocator with the configured launch flags.
// The evasion flags live here and nowhere else; callers only see Driver.
func NewChromeDriver(cfg *browserconfig.Config, log logger.Interface) *ChromeDriver {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeDriver{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		cfg:         cfg,
		logger:      log,
	}
}

// NewPage opens a top-level browsing context and starts the browser if it is
// not yet running.
func (d *ChromeDriver) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageCtx, cancel := chromedp.NewContext(d.allocCtx)
	if err := chromedp.Run(pageCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	d.logger.Debug("Browser page opened",
		"headless", d.cfg.Headless)

	return &chromePage{
		ctx:     pageCtx,
		cancel:  cancel,
		timeout: d.cfg.NavigationTimeout,
	}, nil
}

// Close terminates the browser process.
func (d *ChromeDriver) Close() error {
	d.allocCancel()
	return nil
}

// chromePage implements Page on one chromedp tab context.
type chromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// run executes actions against the tab with the navigation timeout applied.
// The caller context is only consulted for cancellation: chromedp actions
// must run on the tab's own context chain.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

// classify maps driver errors onto the navigation error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNavigation, err)
}

// Navigate loads a URL in the top-level context.
func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return classify(p.run(ctx, chromedp.Navigate(url)))
}

// CurrentURL returns the top-level document URL.
func (p *chromePage) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", classify(err)
	}
	return url, nil
}

// WaitVisible blocks until the selector is visible.
func (p *chromePage) WaitVisible(ctx context.Context, sel string) error {
	return classify(p.run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery)))
}

// Click clicks the first element matching the selector.
func (p *chromePage) Click(ctx context.Context, sel string) error {
	return classify(p.run(ctx, chromedp.Click(sel, chromedp.ByQuery)))
}

// TypeSlow focuses the selector and types one rune at a time with a
// randomized inter-keystroke delay.
func (p *chromePage) TypeSlow(
	ctx context.Context,
	sel, text string,
	minDelay, maxDelay time.Duration,
) error {
	if err := p.run(ctx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return classify(err)
	}
	for _, r := range text {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.run(ctx, chromedp.SendKeys(sel, string(r), chromedp.ByQuery)); err != nil {
			return classify(err)
		}
		time.Sleep(randBetween(minDelay, maxDelay))
	}
	return nil
}

// DismissOptional clicks the selector if it shows up within a short window.
func (p *chromePage) DismissOptional(ctx context.Context, sel string) bool {
	if ctx.Err() != nil {
		return false
	}
	tctx, cancel := context.WithTimeout(p.ctx, dismissWindow)
	defer cancel()
	err := chromedp.Run(tctx,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	)
	return err == nil
}

// OuterHTML captures the top-level document markup.
func (p *chromePage) OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", classify(err)
	}
	return html, nil
}

// Frames lists candidate frames of the current document.
func (p *chromePage) Frames(ctx context.Context) ([]FrameInfo, error) {
	var frames []FrameInfo
	if err := p.run(ctx, chromedp.Evaluate(frameListJS, &frames)); err != nil {
		return nil, classify(err)
	}
	return frames, nil
}

// FrameHTML captures the document markup of the frame at the given index.
// Same-origin frames expose contentDocument; anything else is NotFound.
func (p *chromePage) FrameHTML(ctx context.Context, index int) (string, error) {
	expr := fmt.Sprintf(`(() => {
	const f = document.querySelectorAll('iframe')[%d];
	try {
		return f && f.contentDocument ? f.contentDocument.documentElement.outerHTML : null;
	} catch (e) { return null; }
})()`, index)

	var html *string
	if err := p.run(ctx, chromedp.Evaluate(expr, &html)); err != nil {
		return "", classify(err)
	}
	if html == nil || *html == "" {
		return "", ErrFrameNotFound
	}
	return *html, nil
}

// Cookies exports the current cookie set.
func (p *chromePage) Cookies(ctx context.Context) ([]domain.Cookie, error) {
	var cookies []domain.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(actionCtx context.Context) error {
		raw, cookieErr := network.GetCookies().Do(actionCtx)
		if cookieErr != nil {
			return cookieErr
		}
		cookies = make([]domain.Cookie, 0, len(raw))
		for _, c := range raw {
			cookie := domain.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			}
			if c.Expires > 0 {
				cookie.Expires = time.Unix(int64(c.Expires), 0)
			}
			cookies = append(cookies, cookie)
		}
		return nil
	}))
	if err != nil {
		return nil, classify(err)
	}
	return cookies, nil
}

// SetCookies replays a previously exported cookie set.
func (p *chromePage) SetCookies(ctx context.Context, cookies []domain.Cookie) error {
	err := p.run(ctx, chromedp.ActionFunc(func(actionCtx context.Context) error {
		for _, c := range cookies {
			param := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if !c.Expires.IsZero() {
				expires := cdp.TimeSinceEpoch(c.Expires)
				param = param.WithExpires(&expires)
			}
			if setErr := param.Do(actionCtx); setErr != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, setErr)
			}
		}
		return nil
	}))
	return classify(err)
}

// Close releases the tab.
func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

// randBetween returns a random duration in [minDelay, maxDelay].
func randBetween(minDelay, maxDelay time.Duration) time.Duration {
	if maxDelay <= minDelay {
		return minDelay
	}
	return minDelay + time.Duration(rand.Int63n(int64(maxDelay-minDelay)))
}
