// Package session owns the authenticated browsing identity: login,
// cookie replay, liveness probing, and re-authentication. The manager is the
// only writer of session state; crawling code asks it for a usable session
// and never mutates one.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/cafecrawl/internal/browser"
	authconfig "github.com/jonesrussell/cafecrawl/internal/config/auth"
	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/logger"
	"github.com/jonesrussell/cafecrawl/internal/sources"
)

// Typing delay bounds for credential entry. Matches human pacing closely
// enough that the login form's bot heuristics stay quiet.
const (
	typeDelayMin = 50 * time.Millisecond
	typeDelayMax = 150 * time.Millisecond
)

// Error types for the session package.
var (
	// ErrAuthFailed is returned when a login attempt completes but the
	// authenticated markers are absent. Retried up to the configured bound.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrChallengeRequired is returned when login attempts are exhausted.
	// The session is locked out for the rest of the run; no further attempts
	// are made against the account.
	ErrChallengeRequired = errors.New("challenge required")
)

// Manager drives the login flow and tracks session state for one run.
type Manager struct {
	page    browser.Page
	source  *sources.Config
	config  *authconfig.Config
	store   TokenStore
	logger  logger.Interface
	session *domain.Session
}

// NewManager creates a session manager bound to one page and one source.
// A nil store disables cookie persistence.
func NewManager(
	page browser.Page,
	source *sources.Config,
	cfg *authconfig.Config,
	store TokenStore,
	log logger.Interface,
) *Manager {
	if store == nil {
		store = nopTokenStore{}
	}
	return &Manager{
		page:    page,
		source:  source,
		config:  cfg,
		store:   store,
		logger:  log.WithComponent("session"),
		session: domain.NewSession(),
	}
}

// Session returns the current session. Read-only for callers.
func (m *Manager) Session() *domain.Session {
	return m.session
}

// EnsureAuthenticated returns once the session is active. It tries cookie
// replay first, falls back to a form login, and on an expired session during
// a run re-authenticates once before giving up.
func (m *Manager) EnsureAuthenticated(ctx context.Context) error {
	if m.session.IsLockedOut() {
		return ErrChallengeRequired
	}
	if m.session.IsActive() {
		return nil
	}

	if m.session.State == domain.SessionUnauthenticated {
		if err := m.tryReplay(ctx); err == nil {
			return nil
		}
	}

	return m.Authenticate(ctx)
}

// Authenticate performs a fresh form login, bounded by the configured
// attempt count. Exhausting attempts locks the session out: repeated
// automated logins are what turn a soft failure into a hard challenge.
func (m *Manager) Authenticate(ctx context.Context) error {
	if m.session.IsLockedOut() {
		return ErrChallengeRequired
	}

	var lastErr error
	for attempt := 1; attempt <= m.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.logger.Info("Attempting login",
			"source", m.source.Name,
			"attempt", attempt,
			"max_attempts", m.config.MaxAttempts)

		err := m.loginOnce(ctx)
		if err == nil {
			m.session.State = domain.SessionActive
			m.session.AuthenticatedAt = time.Now()
			m.saveCookies(ctx)
			m.logger.Info("Login succeeded", "source", m.source.Name)
			return nil
		}
		if !errors.Is(err, ErrAuthFailed) {
			// Navigation errors bubble up unchanged; they are not a
			// credential problem and do not count against the account.
			return err
		}

		lastErr = err
		m.logger.WithError(err).Warn("Login attempt failed",
			"source", m.source.Name,
			"attempt", attempt)
	}

	m.session.State = domain.SessionLockedOut
	return fmt.Errorf("%w after %d attempts: %w",
		ErrChallengeRequired, m.config.MaxAttempts, lastErr)
}

// ProbeLiveness reloads a known authenticated page and checks the
// authenticated markers. A failed probe marks the session expired but does
// not itself re-authenticate.
func (m *Manager) ProbeLiveness(ctx context.Context) (bool, error) {
	probeURL := m.source.Login.ProbeURL
	if probeURL == "" {
		probeURL = m.source.BaseURL
	}
	if err := m.page.Navigate(ctx, probeURL); err != nil {
		return false, err
	}

	ok, err := m.markersPresent(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		m.logger.Warn("Session expired", "source", m.source.Name)
		m.session.State = domain.SessionExpired
	}
	return ok, nil
}

// tryReplay restores persisted cookies and verifies them with a liveness
// probe. Stale cookies are cleared so the next run starts clean.
func (m *Manager) tryReplay(ctx context.Context) error {
	cookies, err := m.store.Load()
	if err != nil {
		if !errors.Is(err, ErrNoStoredSession) {
			m.logger.WithError(err).Warn("Failed to load stored cookies")
		}
		return fmt.Errorf("cookie replay unavailable: %w", err)
	}

	if err := m.page.SetCookies(ctx, cookies); err != nil {
		return fmt.Errorf("failed to replay cookies: %w", err)
	}

	ok, err := m.ProbeLiveness(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.WithError(clearErr).Warn("Failed to clear stale cookies")
		}
		return fmt.Errorf("%w: stored cookies rejected", ErrAuthFailed)
	}

	m.session.Cookies = cookies
	m.session.State = domain.SessionActive
	m.session.AuthenticatedAt = time.Now()
	m.logger.Info("Session restored from stored cookies", "source", m.source.Name)
	return nil
}

// loginOnce runs a single pass through the login form. Success requires the
// authenticated markers on the landing page; the post-submit URL alone is
// not trusted.
func (m *Manager) loginOnce(ctx context.Context) error {
	m.session.State = domain.SessionAuthenticating
	login := m.source.Login

	if err := m.page.Navigate(ctx, login.URL); err != nil {
		return err
	}
	if err := m.page.WaitVisible(ctx, login.UsernameField); err != nil {
		return err
	}

	if err := m.page.TypeSlow(ctx, login.UsernameField, m.config.Username,
		typeDelayMin, typeDelayMax); err != nil {
		return err
	}
	if err := m.page.TypeSlow(ctx, login.PasswordField, m.config.Password,
		typeDelayMin, typeDelayMax); err != nil {
		return err
	}
	if err := m.page.Click(ctx, login.Submit); err != nil {
		return err
	}

	// Device-verification and save-credentials interstitials show up
	// inconsistently. Absence is normal.
	for _, sel := range login.Dismiss {
		if m.page.DismissOptional(ctx, sel) {
			m.logger.Debug("Dismissed interstitial", "selector", sel)
		}
	}

	if login.FailureURLPattern != "" {
		current, err := m.page.CurrentURL(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(current, login.FailureURLPattern) {
			return fmt.Errorf("%w: still on login page", ErrAuthFailed)
		}
	}

	landing := login.ProbeURL
	if landing == "" {
		landing = m.source.BaseURL
	}
	if err := m.page.Navigate(ctx, landing); err != nil {
		return err
	}
	ok, err := m.markersPresent(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: authenticated markers absent", ErrAuthFailed)
	}
	return nil
}

// markersPresent parses the current page and checks the authenticated
// marker chain. No configured markers means URL checks are all we have, so
// the page is taken at its word.
func (m *Manager) markersPresent(ctx context.Context) (bool, error) {
	markers := m.source.Login.AuthenticatedMarkers
	if len(markers) == 0 {
		return true, nil
	}

	html, err := m.page.OuterHTML(ctx)
	if err != nil {
		return false, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("failed to parse page: %w", err)
	}
	return markers.Matches(doc.Selection), nil
}

// saveCookies exports and persists the session's cookie set. Persistence
// failures are logged, not fatal; the in-memory session is already usable.
func (m *Manager) saveCookies(ctx context.Context) {
	cookies, err := m.page.Cookies(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to export cookies")
		return
	}
	m.session.Cookies = cookies
	if err := m.store.Save(cookies); err != nil {
		m.logger.WithError(err).Warn("Failed to persist cookies")
	}
}
