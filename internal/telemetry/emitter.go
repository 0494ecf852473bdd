package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rank-lens/gateway/internal/telemetry/domain"
)

// EventEmitter emits telemetry events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// NewEvent builds an event with a fresh id and the current timestamp.
func NewEvent(eventType, source, userID, sessionID string, metadata map[string]any) *domain.Event {
	return &domain.Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		EventType: eventType,
		Source:    source,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// Fanout emits each event to every wrapped emitter, returning the first error
// after trying all of them.
type Fanout []EventEmitter

func (f Fanout) Emit(ctx context.Context, event *domain.Event) error {
	var firstErr error
	for _, e := range f {
		if err := e.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
