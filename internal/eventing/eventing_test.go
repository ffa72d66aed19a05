package eventing

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sessionEvent struct {
	SessionID  string    `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Count      int       `json:"count"`
}

func TestInMemoryBusDelivers(t *testing.T) {
	bus := NewInMemoryBus()
	received := 0
	bus.Subscribe(EventTypeOf[sessionEvent](), func(ctx context.Context, event any) error {
		evt, ok := event.(sessionEvent)
		if !ok {
			return ErrInvalidEventType
		}
		received = evt.Count
		return nil
	})

	if err := bus.Publish(context.Background(), sessionEvent{SessionID: "recon-1", Count: 7}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if received != 7 {
		t.Fatalf("expected handler to receive event, got count %d", received)
	}
}

func TestBuildEnvelopeExtractsSessionID(t *testing.T) {
	occurred := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	env, err := BuildEnvelope(sessionEvent{SessionID: "recon-9", OccurredAt: occurred}, Meta{TenantID: "tenant-a"})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.SessionID != "recon-9" {
		t.Fatalf("expected session id from payload, got %q", env.SessionID)
	}
	if !env.OccurredAt.Equal(occurred) {
		t.Fatalf("expected occurred-at from payload, got %s", env.OccurredAt)
	}
	if env.EventType != EventTypeOf[sessionEvent]() {
		t.Fatalf("unexpected event type %q", env.EventType)
	}
	if env.EventID == "" || env.CorrelationID != env.EventID {
		t.Fatalf("expected generated event id to seed correlation id: %+v", env)
	}
}

func TestRegistryDecodeRoundTrip(t *testing.T) {
	registry := NewRegistry()
	registry.Register(sessionEvent{})

	env, err := BuildEnvelope(sessionEvent{SessionID: "recon-2", Count: 3}, Meta{})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	decoded, err := registry.DecodePayload(env)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	evt, ok := decoded.(sessionEvent)
	if !ok {
		t.Fatalf("expected sessionEvent, got %T", decoded)
	}
	if evt.SessionID != "recon-2" || evt.Count != 3 {
		t.Fatalf("unexpected decode: %+v", evt)
	}
}

func TestRegistryUnknownType(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.DecodePayload(Envelope{EventType: "eventing.sessionEvent"})
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}

type memoryProcessedStore struct {
	seen map[string]bool
}

func (s *memoryProcessedStore) HasProcessed(_ context.Context, eventID, consumer string) (bool, error) {
	return s.seen[eventID+"|"+consumer], nil
}

func (s *memoryProcessedStore) MarkProcessed(_ context.Context, eventID, consumer string) error {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	s.seen[eventID+"|"+consumer] = true
	return nil
}

func TestWrapHandlerIdempotency(t *testing.T) {
	store := &memoryProcessedStore{}
	calls := 0
	handler := WrapHandler("archive", func(ctx context.Context, event any) error {
		calls++
		return nil
	}, store)

	env := Envelope{EventID: "evt-1"}
	ctx := WithEnvelope(context.Background(), env)
	for i := 0; i < 3; i++ {
		if err := handler(ctx, sessionEvent{}); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected exactly one delivery, got %d", calls)
	}
}

func TestWrapHandlerFailureNotMarked(t *testing.T) {
	store := &memoryProcessedStore{}
	failing := errors.New("boom")
	attempts := 0
	handler := WrapHandler("archive", func(ctx context.Context, event any) error {
		attempts++
		if attempts == 1 {
			return failing
		}
		return nil
	}, store)

	ctx := WithEnvelope(context.Background(), Envelope{EventID: "evt-2"})
	if err := handler(ctx, sessionEvent{}); !errors.Is(err, failing) {
		t.Fatalf("expected first attempt to fail, got %v", err)
	}
	if err := handler(ctx, sessionEvent{}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected retry after failure, got %d attempts", attempts)
	}
}
