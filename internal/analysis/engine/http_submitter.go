package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultSubmitTimeout = 15 * time.Second

// submitCooldown is the duplicate-submission window per domain.
const submitCooldown = 5 * time.Second

// HTTPSubmitter triggers analysis runs against the job engine's HTTP trigger
// endpoint. Submissions for the same domain within the cooldown window are
// rejected with ErrCooldown instead of reaching the engine twice.
type HTTPSubmitter struct {
	TriggerURL string
	APIKey     string
	HTTPClient *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPSubmitter returns a submitter posting to triggerURL with the given API key.
func NewHTTPSubmitter(triggerURL, apiKey string) *HTTPSubmitter {
	return &HTTPSubmitter{
		TriggerURL: triggerURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: defaultSubmitTimeout},
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Submit posts the domain to the trigger endpoint. Fire-and-forget: a nil
// error means accepted, not completed.
func (s *HTTPSubmitter) Submit(ctx context.Context, domainName string) error {
	if s.TriggerURL == "" {
		return fmt.Errorf("engine: trigger url not configured")
	}
	if !s.limiter(domainName).Allow() {
		return ErrCooldown
	}

	raw, err := json.Marshal(map[string]string{"domain": domainName})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TriggerURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("engine: trigger failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func (s *HTTPSubmitter) limiter(domainName string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[domainName]
	if !ok {
		l = rate.NewLimiter(rate.Every(submitCooldown), 1)
		s.limiters[domainName] = l
	}
	return l
}
