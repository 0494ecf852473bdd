// Package httpidp consumes a remote identity provider over HTTP (whoami-style
// session introspection and sign-out).
package httpidp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rank-lens/gateway/internal/identity"
)

const defaultTimeout = 10 * time.Second

// Client talks to the identity provider's session API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client for the given base URL (e.g. http://idp:4433).
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// whoamiResponse is the provider's session introspection payload.
type whoamiResponse struct {
	Active    bool      `json:"active"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ProviderFor returns an identity.Provider bound to the given session token.
// The remote provider has no push channel, so OnSessionChange never fires.
func (c *Client) ProviderFor(token string) identity.Provider {
	return &boundProvider{client: c, token: token}
}

type boundProvider struct {
	client *Client
	token  string
}

// GetSession introspects the bound token. An inactive or unknown session
// returns (nil, nil); transport failures return an error.
func (p *boundProvider) GetSession(ctx context.Context) (*identity.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.client.BaseURL+"/sessions/whoami", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	resp, err := p.client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identity provider: status=%d body=%s", resp.StatusCode, string(b))
	}
	var w whoamiResponse
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, fmt.Errorf("identity provider: decode: %w", err)
	}
	if !w.Active || w.UserID == "" {
		return nil, nil
	}
	return &identity.Session{Token: p.token, UserID: w.UserID, ExpiresAt: w.ExpiresAt}, nil
}

// OnSessionChange is a no-op for the remote provider; session state is
// re-checked on each GetSession call instead.
func (p *boundProvider) OnSessionChange(func(*identity.Session)) func() {
	return func() {}
}

// SignOut revokes the bound session at the provider.
func (p *boundProvider) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.client.BaseURL+"/sessions", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	resp, err := p.client.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		return identity.ErrSignedOut
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("identity provider: status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
