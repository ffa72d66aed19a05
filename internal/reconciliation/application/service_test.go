package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	recon "recon-cloud/internal/reconciliation/domain"
)

type stubLedger struct {
	mu              sync.Mutex
	parseFn         func(ctx context.Context, upload recon.StatementUpload) (*recon.Statement, error)
	matchFn         func(ctx context.Context, statement recon.Statement) (recon.MatchOutcome, error)
	confirmFn       func(ctx context.Context, payload []byte) (Receipt, error)
	parseCalls      int
	matchCalls      int
	confirmPayloads [][]byte
}

func (s *stubLedger) ParseStatement(ctx context.Context, upload recon.StatementUpload) (*recon.Statement, error) {
	s.mu.Lock()
	s.parseCalls++
	fn := s.parseFn
	s.mu.Unlock()
	if fn == nil {
		return nil, errors.New("no parse stub")
	}
	return fn(ctx, upload)
}

func (s *stubLedger) MatchOperations(ctx context.Context, statement recon.Statement) (recon.MatchOutcome, error) {
	s.mu.Lock()
	s.matchCalls++
	fn := s.matchFn
	s.mu.Unlock()
	if fn == nil {
		return recon.MatchOutcome{}, errors.New("no match stub")
	}
	return fn(ctx, statement)
}

func (s *stubLedger) ConfirmReconciliation(ctx context.Context, payload []byte) (Receipt, error) {
	s.mu.Lock()
	s.confirmPayloads = append(s.confirmPayloads, append([]byte(nil), payload...))
	fn := s.confirmFn
	s.mu.Unlock()
	if fn == nil {
		return Receipt{}, errors.New("no confirm stub")
	}
	return fn(ctx, payload)
}

func (s *stubLedger) confirmCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.confirmPayloads)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, event any) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) typed() (imported []StatementImported, matched []MatchingCompleted, confirmed []ReconciliationConfirmed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, event := range p.events {
		switch evt := event.(type) {
		case StatementImported:
			imported = append(imported, evt)
		case MatchingCompleted:
			matched = append(matched, evt)
		case ReconciliationConfirmed:
			confirmed = append(confirmed, evt)
		}
	}
	return
}

func testStatement(id string, generated int) *recon.Statement {
	stmt := &recon.Statement{
		ID:              id,
		AccountLabel:    "Compte courant",
		Currency:        "EUR",
		PeriodStart:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:       time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		DeclaredBalance: decimal.RequireFromString("1000.00"),
	}
	for i := 1; i <= generated; i++ {
		stmt.Operations = append(stmt.Operations, recon.Operation{
			ID:     fmt.Sprintf("op-%d", i),
			Date:   stmt.PeriodStart.AddDate(0, 0, i),
			Label:  fmt.Sprintf("operation %d", i),
			Amount: decimal.RequireFromString("10.00"),
		})
	}
	return stmt
}

// outcomeFor matches the first matchedCount operations and leaves the rest
// for manual adjudication.
func outcomeFor(statement recon.Statement, matchedCount int) recon.MatchOutcome {
	outcome := recon.MatchOutcome{Statement: statement}
	for i, op := range statement.Operations {
		if i < matchedCount {
			op.Match = &recon.MatchInfo{
				TransactionID: "tx-" + op.ID,
				Score:         0.9,
				Status:        recon.OperationStatusMatched,
			}
			outcome.Statement.Operations[i] = op
			outcome.Matched = append(outcome.Matched, op)
		} else {
			outcome.Unmatched = append(outcome.Unmatched, op)
		}
	}
	return outcome
}

func newTestService(t *testing.T, ledger *stubLedger, publisher EventPublisher) *WorkflowService {
	t.Helper()
	svc, err := NewWorkflowService(ledger, publisher, nil, nil)
	if err != nil {
		t.Fatalf("new workflow service: %v", err)
	}
	return svc
}

func importedSession(t *testing.T, svc *WorkflowService, ledger *stubLedger, tenantID string) string {
	t.Helper()
	ledger.mu.Lock()
	ledger.parseFn = func(_ context.Context, _ recon.StatementUpload) (*recon.Statement, error) {
		return testStatement("stmt-1", 10), nil
	}
	ledger.matchFn = func(_ context.Context, statement recon.Statement) (recon.MatchOutcome, error) {
		return outcomeFor(statement, 7), nil
	}
	ledger.mu.Unlock()

	view, err := svc.CreateSession(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	upload := recon.StatementUpload{FileName: "march.ofx", Content: []byte("raw")}
	if err := svc.Import(context.Background(), view.ID, upload); err != nil {
		t.Fatalf("import: %v", err)
	}
	return view.ID
}

func TestWorkflowHappyPath(t *testing.T) {
	ledger := &stubLedger{}
	publisher := &recordingPublisher{}
	svc := newTestService(t, ledger, publisher)
	id := importedSession(t, svc, ledger, "tenant-1")

	if err := svc.Match(context.Background(), id); err != nil {
		t.Fatalf("match: %v", err)
	}
	view, err := svc.View(id)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Match.Matched != 7 || view.Match.Unmatched != 3 || view.Match.Rate != 70 {
		t.Fatalf("unexpected match summary: %+v", view.Match)
	}

	// Resolve all three manual decisions.
	include := true
	tx := "tx-manual"
	notes := "duplicate card fee"
	if _, err := svc.UpdateDecision(id, "op-8", DecisionUpdate{Include: &include, TransactionID: &tx}); err != nil {
		t.Fatalf("update decision: %v", err)
	}
	if _, err := svc.UpdateDecision(id, "op-9", DecisionUpdate{Notes: &notes}); err != nil {
		t.Fatalf("update decision: %v", err)
	}
	if _, err := svc.UpdateDecision(id, "op-10", DecisionUpdate{Include: &include}); err != nil {
		t.Fatalf("update decision: %v", err)
	}

	for _, want := range []string{"automatic", "manual", "confirmation"} {
		view, err = svc.Advance(id)
		if err != nil {
			t.Fatalf("advance to %s: %v", want, err)
		}
		if view.Stage != want {
			t.Fatalf("expected stage %s, got %s", want, view.Stage)
		}
	}

	ack := true
	comments := "  reviewed by treasury  "
	if _, err := svc.SetConfirmation(id, ConfirmationUpdate{Acknowledged: &ack, Comments: &comments}); err != nil {
		t.Fatalf("set confirmation: %v", err)
	}

	ledger.mu.Lock()
	ledger.confirmFn = func(_ context.Context, _ []byte) (Receipt, error) {
		return Receipt{ReceiptID: "rcpt-1", RecordedAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}, nil
	}
	ledger.mu.Unlock()

	result, err := svc.Submit(context.Background(), id)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result")
	}
	if result.ID != "rcpt-1" || result.SessionID != id || result.TenantID != "tenant-1" {
		t.Fatalf("unexpected result identity: %+v", result)
	}
	if result.Summary.OperationCount != 10 || result.Summary.MatchedCount != 7 {
		t.Fatalf("unexpected result summary: %+v", result.Summary)
	}
	if result.Summary.IncludedCount != 2 || result.Summary.IgnoredCount != 1 {
		t.Fatalf("unexpected decision partition: %+v", result.Summary)
	}
	if result.Comments != "reviewed by treasury" {
		t.Fatalf("expected trimmed comments, got %q", result.Comments)
	}

	// The session is superseded: mutations fail, views still work.
	if _, err := svc.Advance(id); !errors.Is(err, recon.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	view, err = svc.View(id)
	if err != nil {
		t.Fatalf("view after confirm: %v", err)
	}
	if !view.Closed || view.ResultID != "rcpt-1" {
		t.Fatalf("expected closed view with result id, got %+v", view)
	}

	imported, matched, confirmed := publisher.typed()
	if len(imported) != 1 || imported[0].OperationCount != 10 {
		t.Fatalf("unexpected imported events: %+v", imported)
	}
	if len(matched) != 1 || matched[0].MatchRate != 70 {
		t.Fatalf("unexpected matched events: %+v", matched)
	}
	if len(confirmed) != 1 || confirmed[0].Result.ID != "rcpt-1" {
		t.Fatalf("unexpected confirmed events: %+v", confirmed)
	}
}

func TestSubmitWithoutAcknowledgementNeverReachesNetwork(t *testing.T) {
	ledger := &stubLedger{}
	svc := newTestService(t, ledger, nil)
	id := importedSession(t, svc, ledger, "tenant-1")
	if err := svc.Match(context.Background(), id); err != nil {
		t.Fatalf("match: %v", err)
	}
	include := true
	for _, op := range []string{"op-8", "op-9", "op-10"} {
		if _, err := svc.UpdateDecision(id, op, DecisionUpdate{Include: &include}); err != nil {
			t.Fatalf("update decision: %v", err)
		}
	}

	if _, err := svc.Submit(context.Background(), id); !errors.Is(err, recon.ErrAcknowledgementRequired) {
		t.Fatalf("expected ErrAcknowledgementRequired, got %v", err)
	}
	if got := ledger.confirmCount(); got != 0 {
		t.Fatalf("expected no confirmation calls, got %d", got)
	}
}

func TestMatchFailureRetainsState(t *testing.T) {
	ledger := &stubLedger{}
	svc := newTestService(t, ledger, nil)
	id := importedSession(t, svc, ledger, "tenant-1")
	if err := svc.Match(context.Background(), id); err != nil {
		t.Fatalf("match: %v", err)
	}

	ledger.mu.Lock()
	ledger.matchFn = func(_ context.Context, _ recon.Statement) (recon.MatchOutcome, error) {
		return recon.MatchOutcome{}, errors.New("ledger unavailable")
	}
	ledger.mu.Unlock()

	err := svc.Match(context.Background(), id)
	var matchErr *MatchError
	if !errors.As(err, &matchErr) {
		t.Fatalf("expected MatchError, got %v", err)
	}

	view, err := svc.View(id)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Match.Matched != 7 || view.Match.Unmatched != 3 {
		t.Fatalf("expected previous match results retained, got %+v", view.Match)
	}
}

func TestImportFailureRetainsStatement(t *testing.T) {
	ledger := &stubLedger{}
	svc := newTestService(t, ledger, nil)
	id := importedSession(t, svc, ledger, "tenant-1")

	ledger.mu.Lock()
	ledger.parseFn = func(_ context.Context, _ recon.StatementUpload) (*recon.Statement, error) {
		return nil, errors.New("unreadable file")
	}
	ledger.mu.Unlock()

	err := svc.Import(context.Background(), id, recon.StatementUpload{FileName: "bad.ofx", Content: []byte("x")})
	var importErr *ImportError
	if !errors.As(err, &importErr) {
		t.Fatalf("expected ImportError, got %v", err)
	}

	view, err := svc.View(id)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Statement == nil || view.Statement.ID != "stmt-1" {
		t.Fatalf("expected previous statement retained, got %+v", view.Statement)
	}
}

func TestDuplicateMatchTriggerIgnoredWhileInFlight(t *testing.T) {
	ledger := &stubLedger{}
	svc := newTestService(t, ledger, nil)
	id := importedSession(t, svc, ledger, "tenant-1")

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	ledger.mu.Lock()
	ledger.matchFn = func(_ context.Context, statement recon.Statement) (recon.MatchOutcome, error) {
		once.Do(func() { close(entered) })
		<-release
		return outcomeFor(statement, 7), nil
	}
	ledger.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- svc.Match(context.Background(), id) }()
	<-entered

	// Second trigger returns immediately without a second remote call.
	if err := svc.Match(context.Background(), id); err != nil {
		t.Fatalf("duplicate match trigger: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("match: %v", err)
	}

	ledger.mu.Lock()
	calls := ledger.matchCalls
	ledger.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected a single remote match call, got %d", calls)
	}
}

func TestLateMatchResponseAfterNewImportDiscarded(t *testing.T) {
	ledger := &stubLedger{}
	svc := newTestService(t, ledger, nil)
	id := importedSession(t, svc, ledger, "tenant-1")

	entered := make(chan struct{})
	release := make(chan struct{})
	ledger.mu.Lock()
	ledger.matchFn = func(_ context.Context, statement recon.Statement) (recon.MatchOutcome, error) {
		close(entered)
		<-release
		return outcomeFor(statement, 7), nil
	}
	ledger.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- svc.Match(context.Background(), id) }()
	<-entered

	// A new statement arrives while matching is still in flight.
	ledger.mu.Lock()
	ledger.parseFn = func(_ context.Context, _ recon.StatementUpload) (*recon.Statement, error) {
		return testStatement("stmt-2", 4), nil
	}
	ledger.mu.Unlock()
	if err := svc.Import(context.Background(), id, recon.StatementUpload{FileName: "april.ofx", Content: []byte("raw")}); err != nil {
		t.Fatalf("import: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("match: %v", err)
	}

	view, err := svc.View(id)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Statement.ID != "stmt-2" {
		t.Fatalf("expected new statement, got %s", view.Statement.ID)
	}
	if view.Match.Total != 0 || view.Stage != "import" {
		t.Fatalf("expected stale match outcome discarded, got %+v stage=%s", view.Match, view.Stage)
	}
}

func TestSubmitRetryIsByteIdentical(t *testing.T) {
	ledger := &stubLedger{}
	svc := newTestService(t, ledger, nil)
	id := importedSession(t, svc, ledger, "tenant-1")
	if err := svc.Match(context.Background(), id); err != nil {
		t.Fatalf("match: %v", err)
	}
	include := true
	for _, op := range []string{"op-8", "op-9", "op-10"} {
		if _, err := svc.UpdateDecision(id, op, DecisionUpdate{Include: &include}); err != nil {
			t.Fatalf("update decision: %v", err)
		}
	}
	ack := true
	if _, err := svc.SetConfirmation(id, ConfirmationUpdate{Acknowledged: &ack}); err != nil {
		t.Fatalf("set confirmation: %v", err)
	}

	ledger.mu.Lock()
	ledger.confirmFn = func(_ context.Context, _ []byte) (Receipt, error) {
		return Receipt{}, errors.New("gateway timeout")
	}
	ledger.mu.Unlock()

	_, err := svc.Submit(context.Background(), id)
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}

	// The session is still open: the retry succeeds with the same bytes.
	ledger.mu.Lock()
	ledger.confirmFn = func(_ context.Context, _ []byte) (Receipt, error) {
		return Receipt{ReceiptID: "rcpt-2"}, nil
	}
	ledger.mu.Unlock()

	result, err := svc.Submit(context.Background(), id)
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if result == nil || result.ID != "rcpt-2" {
		t.Fatalf("unexpected result: %+v", result)
	}

	ledger.mu.Lock()
	payloads := ledger.confirmPayloads
	ledger.mu.Unlock()
	if len(payloads) != 2 {
		t.Fatalf("expected two confirmation attempts, got %d", len(payloads))
	}
	if !bytes.Equal(payloads[0], payloads[1]) {
		t.Fatalf("expected byte-identical retry payloads:\n%s\n%s", payloads[0], payloads[1])
	}
}

func TestAbandonRemovesSession(t *testing.T) {
	ledger := &stubLedger{}
	svc := newTestService(t, ledger, nil)
	id := importedSession(t, svc, ledger, "tenant-1")

	if err := svc.Abandon(id); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, err := svc.View(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.Abandon(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second abandon, got %v", err)
	}
}

func TestListFiltersByTenant(t *testing.T) {
	ledger := &stubLedger{}
	svc := newTestService(t, ledger, nil)
	if _, err := svc.CreateSession(context.Background(), "tenant-a"); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := svc.CreateSession(context.Background(), "tenant-b"); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if got := len(svc.List("tenant-a")); got != 1 {
		t.Fatalf("expected 1 session for tenant-a, got %d", got)
	}
	if got := len(svc.List("")); got != 2 {
		t.Fatalf("expected 2 sessions in total, got %d", got)
	}
}
