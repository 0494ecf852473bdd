package httpidp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetSessionActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/whoami" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"active":    true,
			"userId":    "user-1",
			"expiresAt": time.Now().Add(time.Hour).UTC(),
		})
	}))
	defer srv.Close()

	p := NewClient(srv.URL).ProviderFor("tok-1")
	sess, err := p.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess == nil || sess.UserID != "user-1" {
		t.Fatalf("GetSession = %+v, want user-1", sess)
	}
}

func TestGetSessionUnauthorizedIsAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewClient(srv.URL).ProviderFor("expired")
	sess, err := p.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess != nil {
		t.Fatalf("GetSession = %+v, want nil", sess)
	}
}

func TestGetSessionInactiveIsAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"active": false})
	}))
	defer srv.Close()

	p := NewClient(srv.URL).ProviderFor("tok")
	sess, err := p.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess != nil {
		t.Fatalf("GetSession = %+v, want nil", sess)
	}
}

func TestGetSessionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewClient(srv.URL).ProviderFor("tok")
	if _, err := p.GetSession(context.Background()); err == nil {
		t.Fatal("GetSession did not surface a server error")
	}
}

func TestSignOut(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewClient(srv.URL).ProviderFor("tok")
	if err := p.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if method != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", method)
	}
}
