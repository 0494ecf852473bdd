package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"

	orgdomain "rank-lens/gateway/internal/organization/domain"
	profiledomain "rank-lens/gateway/internal/profile/domain"
)

type fakeOrgGetter struct {
	mu    sync.Mutex
	orgs  map[string]*orgdomain.Org
	err   error
	calls int
}

func (f *fakeOrgGetter) GetByID(_ context.Context, id string) (*orgdomain.Org, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.orgs[id], nil
}

func strptr(s string) *string { return &s }

func profileWithOrg(orgID string) *profiledomain.Profile {
	return &profiledomain.Profile{
		ID:             "user-1",
		Email:          "user@example.com",
		Role:           profiledomain.RoleClient,
		OrganizationID: &orgID,
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/", "example.com"},
		{"http://example.com", "example.com"},
		{"www.example.com", "example.com"},
		{"example.com", "example.com"},
		{"https://www.Example.com/", "Example.com"},
		{"https://sub.example.com/path/", "sub.example.com/path"},
		{"  https://example.com  ", "example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://www.example.com/",
		"http://example.com/",
		"www.Example.com",
		"sub.example.com/path",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestResolveNoOrganization(t *testing.T) {
	f := &fakeOrgGetter{orgs: map[string]*orgdomain.Org{}}
	r := New(f)

	for _, p := range []*profiledomain.Profile{
		nil,
		{ID: "user-1", Email: "user@example.com", Role: profiledomain.RoleClient},
	} {
		res, err := r.Resolve(context.Background(), p)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if res.Organization != nil || res.Domain != "" {
			t.Fatalf("expected empty resolution, got %+v", res)
		}
	}
	if f.calls != 0 {
		t.Fatalf("expected no fetches for org-less profiles, got %d", f.calls)
	}
}

func TestResolveDomainFromWebsiteURL(t *testing.T) {
	f := &fakeOrgGetter{orgs: map[string]*orgdomain.Org{
		"org-1": {ID: "org-1", Name: "Acme", WebsiteURL: strptr("https://www.Example.com/")},
	}}
	r := New(f)

	res, err := r.Resolve(context.Background(), profileWithOrg("org-1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Organization == nil || res.Organization.ID != "org-1" {
		t.Fatalf("expected org-1, got %+v", res.Organization)
	}
	if res.Domain != "Example.com" {
		t.Fatalf("expected domain Example.com, got %q", res.Domain)
	}
}

func TestResolveOrgWithoutWebsiteURL(t *testing.T) {
	f := &fakeOrgGetter{orgs: map[string]*orgdomain.Org{
		"org-1": {ID: "org-1", Name: "Acme"},
	}}
	r := New(f)

	res, err := r.Resolve(context.Background(), profileWithOrg("org-1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Organization == nil {
		t.Fatal("expected organization to be present")
	}
	if res.Domain != "" {
		t.Fatalf("expected empty domain, got %q", res.Domain)
	}
}

func TestResolveCachesPerOrgID(t *testing.T) {
	f := &fakeOrgGetter{orgs: map[string]*orgdomain.Org{
		"org-1": {ID: "org-1", Name: "Acme", WebsiteURL: strptr("https://a.example.com")},
		"org-2": {ID: "org-2", Name: "Beta", WebsiteURL: strptr("https://b.example.com")},
	}}
	r := New(f)

	p1 := profileWithOrg("org-1")
	if _, err := r.Resolve(context.Background(), p1); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := r.Resolve(context.Background(), p1); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("expected 1 fetch for repeated org-1 resolves, got %d", f.calls)
	}

	res, err := r.Resolve(context.Background(), profileWithOrg("org-2"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Domain != "b.example.com" {
		t.Fatalf("expected b.example.com after org switch, got %q", res.Domain)
	}
	if f.calls != 2 {
		t.Fatalf("expected refetch on org switch, got %d calls", f.calls)
	}
}

func TestResolveDoesNotCacheErrors(t *testing.T) {
	f := &fakeOrgGetter{err: errors.New("connection refused")}
	r := New(f)

	if _, err := r.Resolve(context.Background(), profileWithOrg("org-1")); err == nil {
		t.Fatal("expected error")
	}

	f.mu.Lock()
	f.err = nil
	f.orgs = map[string]*orgdomain.Org{
		"org-1": {ID: "org-1", Name: "Acme", WebsiteURL: strptr("https://example.com")},
	}
	f.mu.Unlock()

	res, err := r.Resolve(context.Background(), profileWithOrg("org-1"))
	if err != nil {
		t.Fatalf("Resolve after recovery: %v", err)
	}
	if res.Domain != "example.com" {
		t.Fatalf("expected example.com after recovery, got %q", res.Domain)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	f := &fakeOrgGetter{orgs: map[string]*orgdomain.Org{
		"org-1": {ID: "org-1", Name: "Acme", WebsiteURL: strptr("https://old.example.com")},
	}}
	r := New(f)

	if _, err := r.Resolve(context.Background(), profileWithOrg("org-1")); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	f.mu.Lock()
	f.orgs["org-1"] = &orgdomain.Org{ID: "org-1", Name: "Acme", WebsiteURL: strptr("https://new.example.com")}
	f.mu.Unlock()

	r.Invalidate()
	res, err := r.Resolve(context.Background(), profileWithOrg("org-1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Domain != "new.example.com" {
		t.Fatalf("expected new.example.com after invalidate, got %q", res.Domain)
	}
	if f.calls != 2 {
		t.Fatalf("expected 2 fetches, got %d", f.calls)
	}
}
