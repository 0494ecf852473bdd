// Package runtime holds one stateful service bundle per authenticated client:
// its session store, analysis polling client, and gatekeeper. Bundles are
// built lazily per session token and evicted after idleness.
package runtime

import (
	"context"
	"sync"
	"time"

	"rank-lens/gateway/internal/analysis"
	"rank-lens/gateway/internal/gatekeeper"
	"rank-lens/gateway/internal/organization/resolver"
	"rank-lens/gateway/internal/session"
)

// Runtime is the per-client bundle. Close tears down timers and listeners;
// nothing in the bundle updates state after Close.
type Runtime struct {
	Sessions   *session.Store
	Resolver   *resolver.Resolver
	Analysis   *analysis.Client
	Gatekeeper *gatekeeper.Gatekeeper
}

// Domain returns the client's resolved organization domain, "" when absent.
func (r *Runtime) Domain(ctx context.Context) string {
	snap := r.Sessions.EnsureProfile(ctx)
	if snap.Profile == nil {
		return ""
	}
	res, err := r.Resolver.Resolve(ctx, snap.Profile)
	if err != nil {
		return ""
	}
	return res.Domain
}

// Close releases the bundle's resources. Safe to call more than once.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.Analysis != nil {
		r.Analysis.Close()
	}
	if r.Sessions != nil {
		r.Sessions.Close()
	}
}

// Builder constructs and starts a Runtime for a session token.
type Builder func(ctx context.Context, token string) (*Runtime, error)

type entry struct {
	runtime  *Runtime
	lastSeen time.Time
}

// Manager caches Runtimes by session token and evicts idle ones.
type Manager struct {
	build Builder
	ttl   time.Duration
	nowF  func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	stop    chan struct{}
	stopped bool
}

// NewManager returns a Manager evicting runtimes idle longer than ttl. The
// sweeper starts on first use and stops on Close.
func NewManager(build Builder, ttl time.Duration) *Manager {
	m := &Manager{
		build:   build,
		ttl:     ttl,
		nowF:    time.Now,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Get returns the Runtime for token, building one when absent. Every Get
// refreshes the idle clock.
func (m *Manager) Get(ctx context.Context, token string) (*Runtime, error) {
	m.mu.Lock()
	if e, ok := m.entries[token]; ok {
		e.lastSeen = m.nowF()
		rt := e.runtime
		m.mu.Unlock()
		return rt, nil
	}
	m.mu.Unlock()

	// Built outside the lock: construction does I/O (initial session and
	// profile fetch). A concurrent double build resolves in favor of the
	// first one stored.
	rt, err := m.build(ctx, token)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		rt.Close()
		return nil, context.Canceled
	}
	if e, ok := m.entries[token]; ok {
		rt.Close()
		e.lastSeen = m.nowF()
		return e.runtime, nil
	}
	m.entries[token] = &entry{runtime: rt, lastSeen: m.nowF()}
	return rt, nil
}

// Evict closes and removes the runtime for token, if present. Used on
// sign-out so a revoked token cannot reuse warm state.
func (m *Manager) Evict(token string) {
	m.mu.Lock()
	e, ok := m.entries[token]
	if ok {
		delete(m.entries, token)
	}
	m.mu.Unlock()
	if ok {
		e.runtime.Close()
	}
}

// Len reports the number of live runtimes.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the sweeper and closes every runtime.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.stop)
	entries := m.entries
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range entries {
		e.runtime.Close()
	}
}

func (m *Manager) sweep() {
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := m.nowF().Add(-m.ttl)
	var expired []*entry
	m.mu.Lock()
	for token, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e)
			delete(m.entries, token)
		}
	}
	m.mu.Unlock()
	for _, e := range expired {
		e.runtime.Close()
	}
}
