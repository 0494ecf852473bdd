// Package session holds the authenticated identity for one client: the current
// session token and the profile fetched for it. It is the single source of
// truth for identity; every other component reads it and never writes it.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/singleflight"

	"rank-lens/gateway/internal/identity"
	profiledomain "rank-lens/gateway/internal/profile/domain"
)

// State is the store's lifecycle state.
type State string

const (
	// StateLoading covers both the initial session lookup and the window
	// right after sign-up where a session exists but its profile row has
	// not been provisioned yet. No routing decision may be made in it.
	StateLoading State = "loading"

	// StateAuthenticated means a session and its profile are both present.
	StateAuthenticated State = "authenticated"

	// StateAnonymous means there is no usable session.
	StateAnonymous State = "anonymous"
)

// Snapshot is a consistent view of (state, session, profile) taken at one
// moment. Consumers decide off a Snapshot, never off individual getters, so a
// profile change can not be observed without its matching state.
type Snapshot struct {
	State   State
	Session *identity.Session
	Profile *profiledomain.Profile
}

// ProfileGetter is the read port into the profile store. A missing profile is
// (nil, nil), not an error.
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (*profiledomain.Profile, error)
}

// Store tracks one client's session and profile and notifies subscribers on
// every state change.
type Store struct {
	provider identity.Provider
	profiles ProfileGetter
	group    singleflight.Group

	mu           sync.Mutex
	state        State
	session      *identity.Session
	profile      *profiledomain.Profile
	listeners    map[int]func(Snapshot)
	nextListener int
	unsubscribe  func()
	closed       bool
}

// New returns a Store in StateLoading. Call Start to perform the initial
// session lookup and attach the provider listener.
func New(provider identity.Provider, profiles ProfileGetter) *Store {
	return &Store{
		provider:  provider,
		profiles:  profiles,
		state:     StateLoading,
		listeners: make(map[int]func(Snapshot)),
	}
}

// Start resolves the current session and subscribes to provider session
// changes. A session lookup failure is logged and treated as anonymous.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.unsubscribe == nil && !s.closed {
		s.unsubscribe = s.provider.OnSessionChange(func(sess *identity.Session) {
			s.applySession(context.Background(), sess)
		})
	}
	s.mu.Unlock()

	sess, err := s.provider.GetSession(ctx)
	if err != nil {
		log.Printf("session: initial session lookup failed, treating as anonymous: %v", err)
		s.applySession(ctx, nil)
		return
	}
	s.applySession(ctx, sess)
}

// applySession installs a new session (nil means anonymous) and fetches its
// profile. No-op once the store is closed.
func (s *Store) applySession(ctx context.Context, sess *identity.Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if sess == nil {
		s.session = nil
		s.profile = nil
		s.state = StateAnonymous
		notify := s.pendingNotifyLocked()
		s.mu.Unlock()
		notify()
		return
	}
	s.session = sess
	s.profile = nil
	s.state = StateLoading
	notify := s.pendingNotifyLocked()
	s.mu.Unlock()
	notify()

	s.loadProfile(ctx, sess)
}

// loadProfile fetches the profile for sess, single-flight per session token.
// A missing profile keeps the store in StateLoading (the row may still be
// provisioning); any other failure is logged and fails closed to anonymous.
func (s *Store) loadProfile(ctx context.Context, sess *identity.Session) {
	v, err, _ := s.group.Do(sess.Token, func() (any, error) {
		return s.profiles.GetByID(ctx, sess.UserID)
	})

	s.mu.Lock()
	if s.closed || s.session == nil || s.session.Token != sess.Token {
		s.mu.Unlock()
		return
	}
	if err != nil {
		log.Printf("session: profile fetch failed for user %s, treating as anonymous: %v", sess.UserID, err)
		s.session = nil
		s.profile = nil
		s.state = StateAnonymous
		notify := s.pendingNotifyLocked()
		s.mu.Unlock()
		notify()
		return
	}
	p, _ := v.(*profiledomain.Profile)
	if p == nil {
		// Session without a profile row yet: stay loading until the
		// next EnsureProfile retries the fetch.
		s.mu.Unlock()
		return
	}
	s.profile = p
	s.state = StateAuthenticated
	notify := s.pendingNotifyLocked()
	s.mu.Unlock()
	notify()
}

// EnsureProfile retries the profile fetch when the store is loading with a
// live session, then returns the current snapshot. Callers that need a settled
// identity (the gatekeeper) use this instead of Snapshot.
func (s *Store) EnsureProfile(ctx context.Context) Snapshot {
	s.mu.Lock()
	sess := s.session
	pending := s.state == StateLoading && sess != nil
	s.mu.Unlock()

	if pending {
		s.loadProfile(ctx, sess)
	}
	return s.Snapshot()
}

// Snapshot returns the current (state, session, profile) view.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, Session: s.session, Profile: s.profile}
}

// OnChange registers a listener invoked with a snapshot on every state change.
// Returns an unsubscribe func.
func (s *Store) OnChange(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// SignOut revokes the session at the provider and drops local identity state.
// The local drop does not depend on a provider push channel.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	s.applySession(ctx, nil)
	return nil
}

// Close detaches the provider listener and freezes the store. Late profile
// fetch results and provider callbacks are discarded after Close.
func (s *Store) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.closed = true
	s.listeners = make(map[int]func(Snapshot))
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// pendingNotifyLocked captures the current snapshot and listener set while mu
// is held and returns a func delivering the notifications. Callers invoke the
// returned func after releasing mu so listeners may call back into the store.
func (s *Store) pendingNotifyLocked() func() {
	snap := Snapshot{State: s.state, Session: s.session, Profile: s.profile}
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}
