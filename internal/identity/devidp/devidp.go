// Package devidp is an in-process identity provider for development and tests:
// bcrypt-hashed users, JWT session tokens, and session-change fan-out. Not used
// in production deployments (IDENTITY_PROVIDER_URL selects the remote provider).
package devidp

import (
	"context"
	"errors"
	"sync"
	"time"

	"rank-lens/gateway/internal/identity"
	"rank-lens/gateway/internal/security"
)

// ErrInvalidCredentials is returned by SignIn for unknown email or wrong password.
var ErrInvalidCredentials = errors.New("devidp: invalid credentials")

type user struct {
	id           string
	passwordHash string
}

type session struct {
	userID    string
	expiresAt time.Time
}

// Directory holds dev users and their live sessions.
type Directory struct {
	mu        sync.Mutex
	users     map[string]user // by email
	sessions  map[string]session
	listeners map[string]map[int]func(*identity.Session) // token -> listeners
	nextID    int
	hasher    *security.Hasher
	tokens    *security.TokenProvider
	nowF      func() time.Time
}

// NewDirectory returns an empty Directory using the given hasher and token provider.
func NewDirectory(hasher *security.Hasher, tokens *security.TokenProvider) *Directory {
	return &Directory{
		users:     make(map[string]user),
		sessions:  make(map[string]session),
		listeners: make(map[string]map[int]func(*identity.Session)),
		hasher:    hasher,
		tokens:    tokens,
		nowF:      func() time.Time { return time.Now().UTC() },
	}
}

// Register adds a user with the given id, email, and password. Overwrites an
// existing entry for the same email.
func (d *Directory) Register(id, email, password string) error {
	hash, err := d.hasher.Hash([]byte(password))
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[email] = user{id: id, passwordHash: hash}
	return nil
}

// SignIn verifies credentials and issues a session token.
// Returns ErrInvalidCredentials for unknown email or wrong password.
func (d *Directory) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	d.mu.Lock()
	u, ok := d.users[email]
	d.mu.Unlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := d.hasher.Compare(u.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, _, expiresAt, err := d.tokens.IssueSession(u.id)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.sessions[token] = session{userID: u.id, expiresAt: expiresAt}
	d.mu.Unlock()
	return &identity.Session{Token: token, UserID: u.id, ExpiresAt: expiresAt}, nil
}

// Revoke removes the session for token and notifies its listeners with nil.
func (d *Directory) Revoke(token string) {
	d.mu.Lock()
	_, existed := d.sessions[token]
	delete(d.sessions, token)
	var fns []func(*identity.Session)
	for _, fn := range d.listeners[token] {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	if !existed {
		return
	}
	for _, fn := range fns {
		fn(nil)
	}
}

// ProviderFor returns an identity.Provider view bound to the given session token.
func (d *Directory) ProviderFor(token string) identity.Provider {
	return &boundProvider{dir: d, token: token}
}

type boundProvider struct {
	dir   *Directory
	token string
}

// GetSession returns the session for the bound token, or nil if revoked or expired.
func (p *boundProvider) GetSession(ctx context.Context) (*identity.Session, error) {
	d := p.dir
	d.mu.Lock()
	s, ok := d.sessions[p.token]
	d.mu.Unlock()
	if !ok {
		return nil, nil
	}
	sess := &identity.Session{Token: p.token, UserID: s.userID, ExpiresAt: s.expiresAt}
	if sess.Expired(d.nowF()) {
		d.Revoke(p.token)
		return nil, nil
	}
	return sess, nil
}

// OnSessionChange registers a listener for revocation of the bound token.
func (p *boundProvider) OnSessionChange(fn func(*identity.Session)) func() {
	d := p.dir
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listeners[p.token] == nil {
		d.listeners[p.token] = make(map[int]func(*identity.Session))
	}
	id := d.nextID
	d.nextID++
	d.listeners[p.token][id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners[p.token], id)
	}
}

// SignOut revokes the bound session. Returns ErrSignedOut if already revoked.
func (p *boundProvider) SignOut(ctx context.Context) error {
	d := p.dir
	d.mu.Lock()
	_, ok := d.sessions[p.token]
	d.mu.Unlock()
	if !ok {
		return identity.ErrSignedOut
	}
	d.Revoke(p.token)
	return nil
}
