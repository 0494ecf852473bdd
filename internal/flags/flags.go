// Package flags reads the client-persisted onboarding hints used to break
// redirect oscillation. The values are hints, never a source of truth: server
// confirmed profile/organization data always wins, and any storage failure
// degrades to "absent".
package flags

import (
	"context"
	"log"
)

// Keys written by the onboarding flow and read here.
const (
	KeyDomainSetupInProgress = "domainSetupInProgress"
	KeyLastSavedDomain       = "lastSavedDomain"
	KeyLastSavedWebsiteURL   = "lastSavedWebsiteUrl"
)

// Store is the key-value capability backing the hints, scoped per client.
// Get returns ("", false, nil) for an absent key.
type Store interface {
	Get(ctx context.Context, clientID, key string) (value string, ok bool, err error)
	Set(ctx context.Context, clientID, key, value string) error
	Delete(ctx context.Context, clientID, key string) error
}

// Hints is the decoded view of the onboarding flags for one client.
type Hints struct {
	DomainSetupInProgress bool
	LastSavedDomain       string
	LastSavedWebsiteURL   string
}

// Any reports whether at least one hint is set.
func (h Hints) Any() bool {
	return h.DomainSetupInProgress || h.LastSavedDomain != "" || h.LastSavedWebsiteURL != ""
}

// ReadHints reads all hint keys for clientID. A storage error is logged and
// the hint treated as absent.
func ReadHints(ctx context.Context, store Store, clientID string) Hints {
	var h Hints
	if v, ok := readKey(ctx, store, clientID, KeyDomainSetupInProgress); ok {
		h.DomainSetupInProgress = v == "true"
	}
	if v, ok := readKey(ctx, store, clientID, KeyLastSavedDomain); ok {
		h.LastSavedDomain = v
	}
	if v, ok := readKey(ctx, store, clientID, KeyLastSavedWebsiteURL); ok {
		h.LastSavedWebsiteURL = v
	}
	return h
}

func readKey(ctx context.Context, store Store, clientID, key string) (string, bool) {
	v, ok, err := store.Get(ctx, clientID, key)
	if err != nil {
		log.Printf("flags: read %s failed for client %s, treating as absent: %v", key, clientID, err)
		return "", false
	}
	return v, ok
}
