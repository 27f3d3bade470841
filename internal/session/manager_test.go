package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/cafecrawl/internal/browser"
	authconfig "github.com/jonesrussell/cafecrawl/internal/config/auth"
	"github.com/jonesrussell/cafecrawl/internal/domain"
	"github.com/jonesrussell/cafecrawl/internal/logger"
	"github.com/jonesrussell/cafecrawl/internal/selector"
	"github.com/jonesrussell/cafecrawl/internal/session"
	"github.com/jonesrussell/cafecrawl/internal/sources"
)

const (
	loggedInHTML  = `<html><body><div class="gnb_my">me</div></body></html>`
	loggedOutHTML = `<html><body><div class="login_form">login</div></body></html>`
)

// fakePage simulates a browser page with scriptable click behavior.
type fakePage struct {
	url       string
	html      string
	typed     map[string]string
	cookies   []domain.Cookie
	dismissed []string
	navErr    error
	onClick   func(sel string)
}

func newFakePage() *fakePage {
	return &fakePage{typed: make(map[string]string)}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	if p.navErr != nil {
		return p.navErr
	}
	p.url = url
	return nil
}

func (p *fakePage) CurrentURL(_ context.Context) (string, error) { return p.url, nil }
func (p *fakePage) WaitVisible(_ context.Context, _ string) error {
	return nil
}

func (p *fakePage) Click(_ context.Context, sel string) error {
	if p.onClick != nil {
		p.onClick(sel)
	}
	return nil
}

func (p *fakePage) TypeSlow(_ context.Context, sel, text string, _, _ time.Duration) error {
	p.typed[sel] += text
	return nil
}

func (p *fakePage) DismissOptional(_ context.Context, sel string) bool {
	p.dismissed = append(p.dismissed, sel)
	return false
}

func (p *fakePage) OuterHTML(_ context.Context) (string, error) { return p.html, nil }

func (p *fakePage) Frames(_ context.Context) ([]browser.FrameInfo, error) {
	return nil, nil
}

func (p *fakePage) FrameHTML(_ context.Context, _ int) (string, error) {
	return "", browser.ErrFrameNotFound
}

func (p *fakePage) Cookies(_ context.Context) ([]domain.Cookie, error) {
	return p.cookies, nil
}

func (p *fakePage) SetCookies(_ context.Context, cookies []domain.Cookie) error {
	p.cookies = cookies
	return nil
}

func (p *fakePage) Close() error { return nil }

// memoryStore is an in-memory token store for tests.
type memoryStore struct {
	cookies []domain.Cookie
	cleared bool
}

func (s *memoryStore) Save(cookies []domain.Cookie) error {
	s.cookies = cookies
	return nil
}

func (s *memoryStore) Load() ([]domain.Cookie, error) {
	if len(s.cookies) == 0 {
		return nil, session.ErrNoStoredSession
	}
	return s.cookies, nil
}

func (s *memoryStore) Clear() error {
	s.cookies = nil
	s.cleared = true
	return nil
}

func testSource() *sources.Config {
	return &sources.Config{
		Name:    "test-cafe",
		BaseURL: "https://cafe.example.com/club",
		Login: sources.LoginConfig{
			URL:                  "https://example.com/login",
			UsernameField:        "#id",
			PasswordField:        "#pw",
			Submit:               ".btn_login",
			FailureURLPattern:    "/login",
			ProbeURL:             "https://cafe.example.com/club",
			AuthenticatedMarkers: selector.Chain{".gnb_my"},
			Dismiss:              []string{".btn_cancel"},
		},
	}
}

func testAuthConfig() *authconfig.Config {
	return &authconfig.Config{
		Username:    "user",
		Password:    "secret",
		MaxAttempts: 2,
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	page := newFakePage()
	page.html = loggedInHTML
	page.cookies = []domain.Cookie{{Name: "NID_AUT", Value: "tok"}}
	page.onClick = func(sel string) {
		if sel == ".btn_login" {
			page.url = "https://example.com/home"
		}
	}
	store := &memoryStore{}
	mgr := session.NewManager(page, testSource(), testAuthConfig(), store, logger.NewNoOp())

	err := mgr.Authenticate(context.Background())
	require.NoError(t, err)

	assert.True(t, mgr.Session().IsActive())
	assert.Equal(t, "user", page.typed["#id"])
	assert.Equal(t, "secret", page.typed["#pw"])
	assert.Contains(t, page.dismissed, ".btn_cancel")
	assert.Len(t, store.cookies, 1)
}

func TestAuthenticateLocksOutAfterMaxAttempts(t *testing.T) {
	page := newFakePage()
	page.html = loggedOutHTML
	// Submit never navigates away, so the failure URL pattern keeps matching.
	store := &memoryStore{}
	mgr := session.NewManager(page, testSource(), testAuthConfig(), store, logger.NewNoOp())

	err := mgr.Authenticate(context.Background())
	require.ErrorIs(t, err, session.ErrChallengeRequired)
	assert.True(t, mgr.Session().IsLockedOut())

	// A locked-out session refuses further attempts.
	typedBefore := page.typed["#pw"]
	err = mgr.Authenticate(context.Background())
	require.ErrorIs(t, err, session.ErrChallengeRequired)
	assert.Equal(t, typedBefore, page.typed["#pw"])
}

func TestAuthenticateMarkersAbsentCountsAsFailure(t *testing.T) {
	page := newFakePage()
	page.html = loggedOutHTML
	page.onClick = func(sel string) {
		if sel == ".btn_login" {
			page.url = "https://example.com/home"
		}
	}
	mgr := session.NewManager(page, testSource(), testAuthConfig(), nil, logger.NewNoOp())

	err := mgr.Authenticate(context.Background())
	require.ErrorIs(t, err, session.ErrChallengeRequired)
	assert.ErrorIs(t, err, session.ErrAuthFailed)
}

func TestAuthenticateNavigationErrorDoesNotLockOut(t *testing.T) {
	page := newFakePage()
	page.navErr = browser.ErrNavigationTimeout
	mgr := session.NewManager(page, testSource(), testAuthConfig(), nil, logger.NewNoOp())

	err := mgr.Authenticate(context.Background())
	require.ErrorIs(t, err, browser.ErrNavigationTimeout)
	assert.False(t, mgr.Session().IsLockedOut())
}

func TestEnsureAuthenticatedReplaysStoredCookies(t *testing.T) {
	page := newFakePage()
	page.html = loggedInHTML
	store := &memoryStore{cookies: []domain.Cookie{{Name: "NID_AUT", Value: "tok"}}}
	mgr := session.NewManager(page, testSource(), testAuthConfig(), store, logger.NewNoOp())

	err := mgr.EnsureAuthenticated(context.Background())
	require.NoError(t, err)

	assert.True(t, mgr.Session().IsActive())
	// Replay succeeded, so the login form was never touched.
	assert.Empty(t, page.typed)
	assert.Len(t, page.cookies, 1)
}

func TestEnsureAuthenticatedFallsBackWhenCookiesStale(t *testing.T) {
	page := newFakePage()
	page.html = loggedOutHTML
	page.onClick = func(sel string) {
		if sel == ".btn_login" {
			page.url = "https://example.com/home"
			page.html = loggedInHTML
		}
	}
	store := &memoryStore{cookies: []domain.Cookie{{Name: "NID_AUT", Value: "stale"}}}
	mgr := session.NewManager(page, testSource(), testAuthConfig(), store, logger.NewNoOp())

	err := mgr.EnsureAuthenticated(context.Background())
	require.NoError(t, err)

	assert.True(t, mgr.Session().IsActive())
	assert.True(t, store.cleared)
	assert.Equal(t, "secret", page.typed["#pw"])
}

func TestProbeLivenessMarksExpired(t *testing.T) {
	page := newFakePage()
	page.html = loggedInHTML
	page.cookies = []domain.Cookie{{Name: "NID_AUT", Value: "tok"}}
	page.onClick = func(sel string) {
		if sel == ".btn_login" {
			page.url = "https://example.com/home"
		}
	}
	mgr := session.NewManager(page, testSource(), testAuthConfig(), nil, logger.NewNoOp())
	require.NoError(t, mgr.Authenticate(context.Background()))

	page.html = loggedOutHTML
	ok, err := mgr.ProbeLiveness(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.SessionExpired, mgr.Session().State)
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/cookies.json"
	store := session.NewFileTokenStore(path)

	_, err := store.Load()
	require.ErrorIs(t, err, session.ErrNoStoredSession)

	want := []domain.Cookie{
		{Name: "NID_AUT", Value: "tok", Domain: ".example.com", Path: "/", Secure: true},
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	require.ErrorIs(t, err, session.ErrNoStoredSession)
}
