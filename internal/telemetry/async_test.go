package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"rank-lens/gateway/internal/telemetry/domain"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu     sync.Mutex
	events []*domain.Event
}

func (m *mockEventEmitter) Emit(_ context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventEmitter) getEvents() []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsyncNilEmitter(t *testing.T) {
	// Should not panic
	EmitAsync(nil, context.Background(), NewEvent("test", "test", "", "", nil))
}

func TestEmitAsyncNilEvent(t *testing.T) {
	emitter := &mockEventEmitter{}
	EmitAsync(emitter, context.Background(), nil)

	time.Sleep(10 * time.Millisecond)
	if n := len(emitter.getEvents()); n != 0 {
		t.Errorf("expected 0 events, got %d", n)
	}
}

func TestEmitAsyncDeliversEvent(t *testing.T) {
	emitter := &mockEventEmitter{}
	EmitAsync(emitter, context.Background(), NewEvent("decision_evaluated", "gatekeeper", "user-1", "sess-1", map[string]any{"route": "/home"}))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(emitter.getEvents()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	events := emitter.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.EventType != "decision_evaluated" || ev.UserID != "user-1" || ev.SessionID != "sess-1" {
		t.Errorf("unexpected event fields: %+v", ev)
	}
	if ev.ID == "" || ev.CreatedAt.IsZero() {
		t.Errorf("expected id and timestamp to be filled in, got %+v", ev)
	}
}

func TestEmitAsyncUsesBackgroundContext(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Must still emit even though the request context is cancelled.
	EmitAsync(emitter, ctx, NewEvent("test", "test", "", "", nil))

	time.Sleep(100 * time.Millisecond)
	if n := len(emitter.getEvents()); n != 1 {
		t.Errorf("expected 1 event, got %d", n)
	}
}

func TestFanoutEmitsToAll(t *testing.T) {
	a := &mockEventEmitter{}
	b := &mockEventEmitter{}
	f := Fanout{a, b}

	if err := f.Emit(context.Background(), NewEvent("test", "test", "", "", nil)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(a.getEvents()) != 1 || len(b.getEvents()) != 1 {
		t.Fatalf("expected both emitters to receive the event, got %d and %d", len(a.getEvents()), len(b.getEvents()))
	}
}
