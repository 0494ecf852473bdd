// Package analysis tracks the latest analysis record for one client's domain.
// The Client polls the job engine boundary with debounced triggering,
// single-flight de-duplication, a hard fetch timeout, and a bounded
// auto-refresh while no record has ever loaded.
package analysis

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"rank-lens/gateway/internal/analysis/domain"
	"rank-lens/gateway/internal/analysis/engine"
)

// Status is the client's fetch lifecycle state for the requested domain.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusFetching Status = "fetching"
	StatusLoaded   Status = "loaded"
	StatusFailed   Status = "failed"
)

// Reason classifies a failed fetch. The classification drives the caller's
// remediation; the client only guarantees the taxonomy.
type Reason string

const (
	ReasonNoDomain Reason = "no_domain"
	ReasonNetwork  Reason = "network"
	ReasonNotFound Reason = "not_found"
	ReasonTimeout  Reason = "slow_analysis"
	ReasonUnknown  Reason = "unknown"
)

// State is a consistent snapshot of the client. Record stays populated across
// a failed refresh so callers never blank already-displayed data.
type State struct {
	Domain       string
	Status       Status
	Record       *domain.Record
	Reason       Reason
	IsRefreshing bool
}

// Options tunes the client's timing. Zero values take the defaults below.
type Options struct {
	Debounce        time.Duration
	FetchTimeout    time.Duration
	RefreshInterval time.Duration
}

const (
	defaultDebounce        = 300 * time.Millisecond
	defaultFetchTimeout    = 30 * time.Second
	defaultRefreshInterval = 15 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = defaultDebounce
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = defaultFetchTimeout
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = defaultRefreshInterval
	}
	return o
}

// Client is the polling state machine for one client's requested domain.
// All timers are owned by the Client and cancelled on domain change or Close.
type Client struct {
	fetcher engine.Fetcher
	opts    Options

	mu           sync.Mutex
	domain       string
	status       Status
	record       *domain.Record
	reason       Reason
	isRefreshing bool
	everLoaded   bool
	inflight     bool
	generation   uint64
	debounce     *time.Timer
	refresh      *time.Timer
	closed       bool
}

// NewClient returns an idle Client reading records through fetcher.
func NewClient(fetcher engine.Fetcher, opts Options) *Client {
	return &Client{
		fetcher: fetcher,
		opts:    opts.withDefaults(),
		status:  StatusIdle,
	}
}

// Request asks the client to track domainName. An empty or whitespace domain
// fails immediately with ReasonNoDomain and no engine call. A changed domain
// cancels work for the previous one and issues a fetch after the debounce
// window; repeated requests for the tracked domain are absorbed.
func (c *Client) Request(domainName string) {
	d := strings.TrimSpace(domainName)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if d == "" {
		c.generation++
		c.stopTimersLocked()
		c.domain = ""
		c.status = StatusFailed
		c.record = nil
		c.reason = ReasonNoDomain
		c.isRefreshing = false
		c.everLoaded = false
		c.mu.Unlock()
		return
	}
	if d == c.domain {
		// Same domain: absorbed unless nothing has been scheduled yet.
		// Retrying a settled failure is the auto-refresh timer's job,
		// or an explicit Refetch.
		if c.inflight || c.debounce != nil || c.status != StatusIdle {
			c.mu.Unlock()
			return
		}
	} else {
		c.generation++
		c.stopTimersLocked()
		c.domain = d
		c.status = StatusIdle
		c.record = nil
		c.reason = ""
		c.isRefreshing = false
		c.everLoaded = false
	}
	gen := c.generation
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.opts.Debounce, func() {
		c.debounceFired(gen, d)
	})
	c.mu.Unlock()
}

// Refetch issues a fresh fetch for domainName immediately, bypassing the
// debounce window. IsRefreshing stays set for the duration so callers can
// show a spinner without discarding displayed data.
func (c *Client) Refetch(domainName string) {
	d := strings.TrimSpace(domainName)
	if d == "" {
		c.Request("")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if d != c.domain {
		c.generation++
		c.stopTimersLocked()
		c.domain = d
		c.status = StatusIdle
		c.record = nil
		c.reason = ""
		c.everLoaded = false
	} else {
		// The immediate fetch replaces anything scheduled for this domain;
		// settle re-arms auto-refresh if still needed.
		if c.debounce != nil {
			c.debounce.Stop()
			c.debounce = nil
		}
		if c.refresh != nil {
			c.refresh.Stop()
			c.refresh = nil
		}
	}
	if c.inflight {
		c.isRefreshing = true
		c.mu.Unlock()
		return
	}
	gen := c.generation
	c.mu.Unlock()

	c.startFetch(gen, d, true)
}

// State returns the current snapshot.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Domain:       c.domain,
		Status:       c.status,
		Record:       c.record,
		Reason:       c.reason,
		IsRefreshing: c.isRefreshing,
	}
}

// Close cancels all timers and discards any in-flight fetch result. The
// client makes no state updates after Close.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.generation++
	c.stopTimersLocked()
}

func (c *Client) debounceFired(gen uint64, d string) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.debounce = nil
	c.mu.Unlock()

	c.startFetch(gen, d, false)
}

// startFetch runs one fetch for d, single-flight per domain. The generation
// guard discards results that land after a domain change or Close.
func (c *Client) startFetch(gen uint64, d string, refreshing bool) {
	c.mu.Lock()
	if c.closed || gen != c.generation || c.inflight {
		c.mu.Unlock()
		return
	}
	c.inflight = true
	c.status = StatusFetching
	if refreshing {
		c.isRefreshing = true
	}
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.FetchTimeout)
		defer cancel()
		rec, err := c.fetcher.GetLatestByDomain(ctx, d)
		c.settle(gen, rec, err)
	}()
}

// settle applies a fetch outcome, then arms the auto-refresh timer when no
// record has ever loaded for the tracked domain.
func (c *Client) settle(gen uint64, rec *domain.Record, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		return
	}
	c.inflight = false
	c.isRefreshing = false

	switch {
	case err != nil:
		c.status = StatusFailed
		c.reason = classify(err)
	case rec == nil:
		c.status = StatusFailed
		c.reason = ReasonNotFound
	default:
		c.status = StatusLoaded
		c.record = rec
		c.reason = ""
		c.everLoaded = true
	}

	if !c.everLoaded && c.domain != "" {
		// At most one live refresh timer per client.
		if c.refresh != nil {
			c.refresh.Stop()
		}
		refreshGen := c.generation
		d := c.domain
		c.refresh = time.AfterFunc(c.opts.RefreshInterval, func() {
			c.refreshFired(refreshGen, d)
		})
	}
}

func (c *Client) refreshFired(gen uint64, d string) {
	c.mu.Lock()
	if c.closed || gen != c.generation || c.inflight {
		c.mu.Unlock()
		return
	}
	c.refresh = nil
	c.mu.Unlock()

	c.startFetch(gen, d, false)
}

// stopTimersLocked stops and clears both timers. Callers hold mu.
func (c *Client) stopTimersLocked() {
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
	}
}

// classify maps a fetch error to the failure taxonomy. The 30s deadline maps
// to ReasonTimeout so callers can show "slow analysis" instead of a generic
// connectivity message.
func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ReasonNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ReasonNetwork
	}
	return ReasonUnknown
}
