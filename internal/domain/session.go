package domain

import (
	"time"
)

// SessionState represents the lifecycle state of an authenticated browsing
// identity.
type SessionState string

const (
	// SessionUnauthenticated is the initial state before any login attempt.
	SessionUnauthenticated SessionState = "UNAUTHENTICATED"
	// SessionAuthenticating is the state while a login attempt is in flight.
	SessionAuthenticating SessionState = "AUTHENTICATING"
	// SessionActive is the state after a verified login.
	SessionActive SessionState = "ACTIVE"
	// SessionExpired is the state after a failed liveness probe.
	SessionExpired SessionState = "EXPIRED"
	// SessionLockedOut is the terminal state after a suspected bot challenge.
	// A locked-out session is never retried within the run.
	SessionLockedOut SessionState = "LOCKED_OUT"
)

// Cookie is one browser cookie of a session's token set. The shape matches
// what the browser driver exports and accepts back for replay.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"http_only"`
}

// Session holds one authenticated browsing identity. It is exclusively owned
// by the session manager for the run's lifetime.
type Session struct {
	Cookies         []Cookie     `json:"cookies"`
	AuthenticatedAt time.Time    `json:"authenticated_at"`
	State           SessionState `json:"state"`
}

// NewSession creates a session in the unauthenticated state.
func NewSession() *Session {
	return &Session{State: SessionUnauthenticated}
}

// IsActive reports whether the session is usable for crawling.
func (s *Session) IsActive() bool {
	return s != nil && s.State == SessionActive
}

// IsLockedOut reports whether the session hit a terminal bot challenge.
func (s *Session) IsLockedOut() bool {
	return s != nil && s.State == SessionLockedOut
}
