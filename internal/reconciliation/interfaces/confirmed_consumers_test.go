package interfaces

import (
	"context"
	"errors"
	"sync"
	"testing"

	"recon-cloud/internal/notify"
	"recon-cloud/internal/reconciliation/application"
	recon "recon-cloud/internal/reconciliation/domain"
)

type memoryResultStore struct {
	mu      sync.Mutex
	results map[string]recon.ReconciliationResult
	saveErr error
}

func (s *memoryResultStore) Save(_ context.Context, result recon.ReconciliationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if s.results == nil {
		s.results = make(map[string]recon.ReconciliationResult)
	}
	s.results[result.ID] = result
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.AlertMessage
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.AlertMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

func confirmedEvent() application.ReconciliationConfirmed {
	result := sampleResult()
	return application.ReconciliationConfirmed{
		SessionID:  result.SessionID,
		TenantID:   result.TenantID,
		ResultID:   result.ID,
		Result:     *result,
		OccurredAt: result.ConfirmedAt,
	}
}

func TestArchiveConsumerPersistsResult(t *testing.T) {
	store := &memoryResultStore{}
	consumer, err := NewArchiveConsumer(store, nil)
	if err != nil {
		t.Fatalf("new archive consumer: %v", err)
	}

	if err := consumer.HandleReconciliationConfirmed(context.Background(), confirmedEvent()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	store.mu.Lock()
	saved, ok := store.results["result-1"]
	store.mu.Unlock()
	if !ok || saved.SessionID != "recon-1" {
		t.Fatalf("expected archived result, got %+v", saved)
	}
}

func TestArchiveConsumerPropagatesStoreError(t *testing.T) {
	store := &memoryResultStore{saveErr: errors.New("db down")}
	consumer, err := NewArchiveConsumer(store, nil)
	if err != nil {
		t.Fatalf("new archive consumer: %v", err)
	}
	if err := consumer.HandleReconciliationConfirmed(context.Background(), confirmedEvent()); err == nil {
		t.Fatal("expected store error to propagate for redelivery")
	}
}

func TestArchiveConsumerIgnoresOtherEvents(t *testing.T) {
	store := &memoryResultStore{}
	consumer, err := NewArchiveConsumer(store, nil)
	if err != nil {
		t.Fatalf("new archive consumer: %v", err)
	}
	if err := consumer.HandleReconciliationConfirmed(context.Background(), application.StatementImported{}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	store.mu.Lock()
	count := len(store.results)
	store.mu.Unlock()
	if count != 0 {
		t.Fatalf("expected no archived results, got %d", count)
	}
}

func TestNotifyConsumerSendsAlert(t *testing.T) {
	notifier := &recordingNotifier{}
	consumer, err := NewNotifyConsumer(notifier, nil)
	if err != nil {
		t.Fatalf("new notify consumer: %v", err)
	}
	if err := consumer.HandleReconciliationConfirmed(context.Background(), confirmedEvent()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if msg.ResultID != "result-1" || msg.MatchRate != 50 || msg.BalanceGap != "915.50" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Level != notify.LevelWarning {
		t.Fatalf("expected warning level for non-zero gap, got %q", msg.Level)
	}
}

func TestNotifyConsumerSwallowsNotifierError(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("webhook down")}
	consumer, err := NewNotifyConsumer(notifier, nil)
	if err != nil {
		t.Fatalf("new notify consumer: %v", err)
	}
	if err := consumer.HandleReconciliationConfirmed(context.Background(), confirmedEvent()); err != nil {
		t.Fatalf("expected notify failure to be swallowed, got %v", err)
	}
}
