package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rank-lens/gateway/internal/analysis/domain"
)

type fakeFetcher struct {
	mu      sync.Mutex
	records map[string]*domain.Record
	err     error
	delay   time.Duration
	calls   []string
}

func (f *fakeFetcher) GetLatestByDomain(ctx context.Context, domainName string) (*domain.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, domainName)
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.records[domainName], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeFetcher) setRecord(rec *domain.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records == nil {
		f.records = make(map[string]*domain.Record)
	}
	f.records[rec.Domain] = rec
}

func completedRecord(domainName string) *domain.Record {
	return &domain.Record{
		ID:        "rec-" + domainName,
		Domain:    domainName,
		Status:    domain.StatusCompleted,
		UpdatedAt: time.Now(),
	}
}

func testOptions() Options {
	return Options{
		Debounce:        20 * time.Millisecond,
		FetchTimeout:    60 * time.Millisecond,
		RefreshInterval: 80 * time.Millisecond,
	}
}

func waitFor(t *testing.T, within time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEmptyDomainFailsWithoutFetch(t *testing.T) {
	f := &fakeFetcher{}
	c := NewClient(f, testOptions())
	defer c.Close()

	c.Request("   ")

	st := c.State()
	if st.Status != StatusFailed || st.Reason != ReasonNoDomain {
		t.Fatalf("expected immediate no-domain failure, got %+v", st)
	}
	if f.callCount() != 0 {
		t.Fatalf("expected zero fetches for empty domain, got %d", f.callCount())
	}
}

func TestDebounceCoalescesRapidRequests(t *testing.T) {
	f := &fakeFetcher{}
	f.setRecord(completedRecord("c.example.com"))
	c := NewClient(f, testOptions())
	defer c.Close()

	c.Request("a.example.com")
	c.Request("b.example.com")
	c.Request("c.example.com")

	waitFor(t, time.Second, "loaded state", func() bool {
		return c.State().Status == StatusLoaded
	})
	if n := f.callCount(); n != 1 {
		t.Fatalf("expected exactly one fetch after debounce, got %d", n)
	}
	if d := f.lastCall(); d != "c.example.com" {
		t.Fatalf("expected fetch for last requested domain, got %q", d)
	}
}

func TestSingleFlightPerDomain(t *testing.T) {
	f := &fakeFetcher{delay: 30 * time.Millisecond}
	f.setRecord(completedRecord("example.com"))
	c := NewClient(f, testOptions())
	defer c.Close()

	c.Request("example.com")
	waitFor(t, time.Second, "fetch in flight", func() bool {
		return c.State().Status == StatusFetching
	})
	c.Request("example.com")
	c.Request("example.com")

	waitFor(t, time.Second, "loaded state", func() bool {
		return c.State().Status == StatusLoaded
	})
	if n := f.callCount(); n != 1 {
		t.Fatalf("expected a single in-flight fetch, got %d", n)
	}
}

func TestNotFoundThenAutoRefreshRecovers(t *testing.T) {
	f := &fakeFetcher{}
	c := NewClient(f, testOptions())
	defer c.Close()

	c.Request("example.com")
	waitFor(t, time.Second, "not-found failure", func() bool {
		st := c.State()
		return st.Status == StatusFailed && st.Reason == ReasonNotFound
	})

	// The job engine produces the record before the next refresh tick.
	f.setRecord(completedRecord("example.com"))
	waitFor(t, time.Second, "auto-refresh to load the record", func() bool {
		return c.State().Status == StatusLoaded
	})

	// Once loaded the refresh loop must stop.
	settled := f.callCount()
	time.Sleep(3 * testOptions().RefreshInterval)
	if n := f.callCount(); n != settled {
		t.Fatalf("expected no fetches after load, got %d extra", n-settled)
	}
}

func TestTimeoutClassification(t *testing.T) {
	opts := testOptions()
	f := &fakeFetcher{delay: 10 * opts.FetchTimeout}
	c := NewClient(f, opts)
	defer c.Close()

	c.Request("example.com")
	waitFor(t, time.Second, "timeout failure", func() bool {
		st := c.State()
		return st.Status == StatusFailed && st.Reason == ReasonTimeout
	})
	if n := f.callCount(); n != 1 {
		t.Fatalf("expected exactly one call before the refresh tick, got %d", n)
	}
}

func TestRefetchBypassesDebounce(t *testing.T) {
	f := &fakeFetcher{delay: 30 * time.Millisecond}
	f.setRecord(completedRecord("example.com"))
	c := NewClient(f, testOptions())
	defer c.Close()

	c.Refetch("example.com")

	waitFor(t, 15*time.Millisecond, "immediate fetch", func() bool {
		return f.callCount() == 1
	})
	if st := c.State(); !st.IsRefreshing {
		t.Fatalf("expected isRefreshing during explicit refetch, got %+v", st)
	}

	waitFor(t, time.Second, "loaded state", func() bool {
		return c.State().Status == StatusLoaded
	})
	if st := c.State(); st.IsRefreshing {
		t.Fatal("expected isRefreshing cleared after settle")
	}
}

func TestFailedRefetchKeepsLastRecord(t *testing.T) {
	f := &fakeFetcher{}
	f.setRecord(completedRecord("example.com"))
	c := NewClient(f, testOptions())
	defer c.Close()

	c.Refetch("example.com")
	waitFor(t, time.Second, "loaded state", func() bool {
		return c.State().Status == StatusLoaded
	})

	f.mu.Lock()
	f.err = errors.New("connection reset")
	f.mu.Unlock()

	c.Refetch("example.com")
	waitFor(t, time.Second, "failed refresh", func() bool {
		return c.State().Status == StatusFailed
	})
	if st := c.State(); st.Record == nil {
		t.Fatal("expected last loaded record to survive a failed refetch")
	}
}

func TestDomainChangeClearsRecord(t *testing.T) {
	f := &fakeFetcher{}
	f.setRecord(completedRecord("a.example.com"))
	c := NewClient(f, testOptions())
	defer c.Close()

	c.Refetch("a.example.com")
	waitFor(t, time.Second, "loaded state", func() bool {
		return c.State().Status == StatusLoaded
	})

	c.Request("b.example.com")
	if st := c.State(); st.Record != nil {
		t.Fatalf("expected record cleared on domain change, got %+v", st.Record)
	}
}

func TestCloseCancelsPendingDebounce(t *testing.T) {
	f := &fakeFetcher{}
	c := NewClient(f, testOptions())

	c.Request("example.com")
	c.Close()

	time.Sleep(3 * testOptions().Debounce)
	if n := f.callCount(); n != 0 {
		t.Fatalf("expected no fetch after close, got %d", n)
	}
}

func TestCloseDiscardsInFlightResult(t *testing.T) {
	f := &fakeFetcher{delay: 30 * time.Millisecond}
	f.setRecord(completedRecord("example.com"))
	c := NewClient(f, testOptions())

	c.Refetch("example.com")
	waitFor(t, time.Second, "fetch in flight", func() bool {
		return c.State().Status == StatusFetching
	})
	c.Close()

	time.Sleep(60 * time.Millisecond)
	if st := c.State(); st.Status == StatusLoaded {
		t.Fatal("expected in-flight result to be discarded after close")
	}
}

func TestAutoRefreshBounded(t *testing.T) {
	opts := testOptions()
	f := &fakeFetcher{}
	c := NewClient(f, opts)
	defer c.Close()

	c.Request("example.com")
	waitFor(t, time.Second, "first failure", func() bool {
		return c.State().Status == StatusFailed
	})

	start := f.callCount()
	time.Sleep(2*opts.RefreshInterval + opts.RefreshInterval/2)
	extra := f.callCount() - start
	if extra < 1 || extra > 3 {
		t.Fatalf("expected refresh roughly once per interval, got %d extra calls", extra)
	}
}

func TestRefetchDoesNotStackRefreshTimers(t *testing.T) {
	opts := testOptions()
	f := &fakeFetcher{}
	c := NewClient(f, opts)
	defer c.Close()

	c.Request("example.com")
	waitFor(t, time.Second, "first failure", func() bool {
		return c.State().Status == StatusFailed
	})

	// A mid-interval refetch settles and re-arms auto-refresh; the tick armed
	// by the first settle must not survive alongside it.
	time.Sleep(opts.RefreshInterval / 4)
	c.Refetch("example.com")
	waitFor(t, time.Second, "refetch settled", func() bool {
		s := c.State()
		return s.Status == StatusFailed && !s.IsRefreshing
	})

	start := f.callCount()
	time.Sleep(opts.RefreshInterval + opts.RefreshInterval/4)
	extra := f.callCount() - start
	if extra > 1 {
		t.Fatalf("expected at most one auto-refresh per interval, got %d extra calls", extra)
	}
}
