// Package identity defines the contract consumed from the identity provider:
// session lookup, session-change notification, and sign-out. The gateway never
// creates accounts; it only observes sessions the provider issued.
package identity

import (
	"context"
	"errors"
	"time"
)

// ErrSignedOut is returned by SignOut when there is no session to revoke.
var ErrSignedOut = errors.New("identity: no active session")

// Session is an issued session: an opaque token bound to a user, valid until ExpiresAt.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !s.ExpiresAt.After(now)
}

// Provider is the identity provider contract for one client's session.
// GetSession returns the current session or nil when anonymous; it must not
// return an error for "no session". OnSessionChange registers a listener that
// fires with the new session (nil on sign-out/expiry) and returns an
// unsubscribe func. Implementations without a push channel return a no-op
// unsubscribe and never fire.
type Provider interface {
	GetSession(ctx context.Context) (*Session, error)
	OnSessionChange(fn func(*Session)) (unsubscribe func())
	SignOut(ctx context.Context) error
}
