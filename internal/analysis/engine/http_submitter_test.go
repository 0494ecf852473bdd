package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestSubmitPostsDomain(t *testing.T) {
	var mu sync.Mutex
	var got struct {
		Domain string `json:"domain"`
	}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTPSubmitter(srv.URL, "secret")
	if err := s.Submit(context.Background(), "example.com"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got.Domain != "example.com" {
		t.Fatalf("expected domain example.com, got %q", got.Domain)
	}
	if auth != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", auth)
	}
}

func TestSubmitCooldownPerDomain(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSubmitter(srv.URL, "")
	if err := s.Submit(context.Background(), "example.com"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := s.Submit(context.Background(), "example.com"); !errors.Is(err, ErrCooldown) {
		t.Fatalf("expected ErrCooldown on rapid resubmit, got %v", err)
	}
	if err := s.Submit(context.Background(), "other.com"); err != nil {
		t.Fatalf("different domain should not share cooldown: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 trigger calls, got %d", calls)
	}
}

func TestSubmitRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "engine overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewHTTPSubmitter(srv.URL, "")
	if err := s.Submit(context.Background(), "example.com"); err == nil {
		t.Fatal("expected error for non-2xx trigger response")
	}
}

func TestSubmitWithoutTriggerURL(t *testing.T) {
	s := NewHTTPSubmitter("", "")
	if err := s.Submit(context.Background(), "example.com"); err == nil {
		t.Fatal("expected error when trigger url is not configured")
	}
}
