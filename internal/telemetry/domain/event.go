package domain

import "time"

// Event is a product telemetry event (user/session scoped). Metadata is an
// opaque JSON object supplied by the emitting feature.
type Event struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	EventType string         `json:"eventType"`
	Source    string         `json:"source"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
