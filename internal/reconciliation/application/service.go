package application

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"recon-cloud/internal/observability/metrics"
	recon "recon-cloud/internal/reconciliation/domain"
)

// Receipt acknowledges a recorded reconciliation on the ledger platform.
type Receipt struct {
	ReceiptID  string
	RecordedAt time.Time
}

// LedgerClient covers the remote calls the workflow depends on.
type LedgerClient interface {
	ParseStatement(ctx context.Context, upload recon.StatementUpload) (*recon.Statement, error)
	MatchOperations(ctx context.Context, statement recon.Statement) (recon.MatchOutcome, error)
	ConfirmReconciliation(ctx context.Context, payload []byte) (Receipt, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DecisionUpdate carries partial changes to one manual decision. Nil fields
// are left untouched.
type DecisionUpdate struct {
	Include       *bool
	TransactionID *string
	Notes         *string
}

// ConfirmationUpdate carries partial changes to the confirmation fields.
type ConfirmationUpdate struct {
	Acknowledged *bool
	Comments     *string
}

// sessionState serializes access to one session. Remote calls run outside
// the lock; their responses are applied only after the session is rechecked
// for liveness and generation.
type sessionState struct {
	mu      sync.Mutex
	session *recon.Session

	importing  bool
	matching   bool
	submitting bool
	abandoned  bool
}

// WorkflowService drives reconciliation sessions through import, automatic
// matching, manual adjudication and confirmation.
type WorkflowService struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState

	ledger    LedgerClient
	publisher EventPublisher
	clock     Clock
	logger    *log.Logger
}

// NewWorkflowService constructs the service.
func NewWorkflowService(ledger LedgerClient, publisher EventPublisher, clock Clock, logger *log.Logger) (*WorkflowService, error) {
	if ledger == nil {
		return nil, errors.New("workflow service: nil ledger client")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WorkflowService{
		sessions:  make(map[string]*sessionState),
		ledger:    ledger,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}, nil
}

// CreateSession opens a new session at the import stage.
func (s *WorkflowService) CreateSession(ctx context.Context, tenantID string) (SessionView, error) {
	session := recon.NewSession(recon.NewSessionID(), tenantID, s.clock.Now())
	state := &sessionState{session: session}

	s.mu.Lock()
	s.sessions[session.ID()] = state
	open := len(s.sessions)
	s.mu.Unlock()
	metrics.SetSessionsOpen(open)

	s.logger.Printf("session created id=%s tenant=%s", session.ID(), tenantID)
	return buildView(session), nil
}

// View returns a read snapshot of one session.
func (s *WorkflowService) View(sessionID string) (SessionView, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return SessionView{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return buildView(state.session), nil
}

// List returns snapshots of every open session for a tenant, newest first.
// An empty tenant lists all sessions.
func (s *WorkflowService) List(tenantID string) []SessionView {
	s.mu.RLock()
	states := make([]*sessionState, 0, len(s.sessions))
	for _, state := range s.sessions {
		states = append(states, state)
	}
	s.mu.RUnlock()

	views := make([]SessionView, 0, len(states))
	for _, state := range states {
		state.mu.Lock()
		if tenantID == "" || state.session.TenantID() == tenantID {
			views = append(views, buildView(state.session))
		}
		state.mu.Unlock()
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views
}

// Import parses the uploaded statement file remotely and installs the result
// into the session, resetting all downstream data. A duplicate trigger while
// an import is in flight is ignored.
func (s *WorkflowService) Import(ctx context.Context, sessionID string, upload recon.StatementUpload) error {
	state, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	if state.session.Closed() {
		state.mu.Unlock()
		return recon.ErrSessionClosed
	}
	if state.importing {
		state.mu.Unlock()
		return nil
	}
	state.importing = true
	state.mu.Unlock()

	start := time.Now()
	statement, err := s.ledger.ParseStatement(ctx, upload)

	state.mu.Lock()
	state.importing = false
	if err != nil {
		state.mu.Unlock()
		metrics.ObserveImport("error", time.Since(start))
		return &ImportError{Err: err}
	}
	if state.abandoned || state.session.Closed() {
		state.mu.Unlock()
		return nil
	}
	if err := state.session.LoadStatement(*statement); err != nil {
		state.mu.Unlock()
		return err
	}
	event := StatementImported{
		SessionID:      state.session.ID(),
		TenantID:       state.session.TenantID(),
		StatementID:    statement.ID,
		AccountLabel:   statement.AccountLabel,
		OperationCount: len(statement.Operations),
		OccurredAt:     s.clock.Now().UTC(),
	}
	state.mu.Unlock()

	metrics.ObserveImport("success", time.Since(start))
	s.publish(ctx, event)
	return nil
}

// Match runs automatic matching remotely and applies the annotated outcome.
// The response is discarded when a newer statement replaced the one it was
// computed for.
func (s *WorkflowService) Match(ctx context.Context, sessionID string) error {
	state, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	if state.session.Closed() {
		state.mu.Unlock()
		return recon.ErrSessionClosed
	}
	if state.session.Statement() == nil {
		state.mu.Unlock()
		return recon.ErrStatementRequired
	}
	if state.matching {
		state.mu.Unlock()
		return nil
	}
	state.matching = true
	generation := state.session.Generation()
	statement := *state.session.Statement()
	state.mu.Unlock()

	start := time.Now()
	outcome, err := s.ledger.MatchOperations(ctx, statement)

	state.mu.Lock()
	state.matching = false
	if err != nil {
		state.mu.Unlock()
		metrics.ObserveMatch("error", time.Since(start))
		return &MatchError{Err: err}
	}
	if state.abandoned || state.session.Closed() || state.session.Generation() != generation {
		state.mu.Unlock()
		s.logger.Printf("match response discarded id=%s", sessionID)
		return nil
	}
	if err := state.session.ApplyMatchOutcome(outcome); err != nil {
		state.mu.Unlock()
		return err
	}
	summary := state.session.MatchSummary()
	event := MatchingCompleted{
		SessionID:   state.session.ID(),
		TenantID:    state.session.TenantID(),
		StatementID: outcome.Statement.ID,
		Matched:     summary.Matched,
		Unmatched:   summary.Unmatched,
		MatchRate:   summary.Rate,
		OccurredAt:  s.clock.Now().UTC(),
	}
	state.mu.Unlock()

	metrics.ObserveMatch("success", time.Since(start))
	s.publish(ctx, event)
	return nil
}

// UpdateDecision applies partial changes to one manual decision and returns
// the refreshed snapshot.
func (s *WorkflowService) UpdateDecision(sessionID, operationID string, update DecisionUpdate) (SessionView, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if update.Include != nil {
		if err := state.session.ToggleInclude(operationID, *update.Include); err != nil {
			return SessionView{}, err
		}
		metrics.IncDecisionUpdate("include")
	}
	if update.TransactionID != nil {
		if err := state.session.SetTransaction(operationID, *update.TransactionID); err != nil {
			return SessionView{}, err
		}
		metrics.IncDecisionUpdate("transaction")
	}
	if update.Notes != nil {
		if err := state.session.SetNotes(operationID, *update.Notes); err != nil {
			return SessionView{}, err
		}
		metrics.IncDecisionUpdate("notes")
	}
	return buildView(state.session), nil
}

// Advance moves the session one stage forward.
func (s *WorkflowService) Advance(sessionID string) (SessionView, error) {
	return s.changeStage(sessionID, func(stages *recon.StageController) error {
		return stages.Advance()
	})
}

// Retreat moves the session one stage back.
func (s *WorkflowService) Retreat(sessionID string) (SessionView, error) {
	return s.changeStage(sessionID, func(stages *recon.StageController) error {
		return stages.Retreat()
	})
}

// JumpTo moves the session directly to the named stage.
func (s *WorkflowService) JumpTo(sessionID string, stage recon.Stage) (SessionView, error) {
	return s.changeStage(sessionID, func(stages *recon.StageController) error {
		return stages.JumpTo(stage)
	})
}

func (s *WorkflowService) changeStage(sessionID string, move func(*recon.StageController) error) (SessionView, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.session.Closed() {
		return SessionView{}, recon.ErrSessionClosed
	}
	if err := move(state.session.Stages()); err != nil {
		return SessionView{}, err
	}
	metrics.IncStageChange(state.session.Stage().String())
	return buildView(state.session), nil
}

// SetConfirmation applies partial changes to the confirmation fields.
func (s *WorkflowService) SetConfirmation(sessionID string, update ConfirmationUpdate) (SessionView, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return SessionView{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if update.Acknowledged != nil {
		if err := state.session.SetAcknowledged(*update.Acknowledged); err != nil {
			return SessionView{}, err
		}
	}
	if update.Comments != nil {
		if err := state.session.SetComments(*update.Comments); err != nil {
			return SessionView{}, err
		}
	}
	return buildView(state.session), nil
}

// Submit validates every local precondition, records the reconciliation on
// the ledger platform and supersedes the session with the confirmed result.
// A nil result with nil error means the trigger was ignored: either a
// submission was already in flight or the response arrived for a session
// that no longer exists in that shape.
func (s *WorkflowService) Submit(ctx context.Context, sessionID string) (*recon.ReconciliationResult, error) {
	state, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	if state.submitting {
		state.mu.Unlock()
		return nil, nil
	}
	if err := recon.ValidateSubmission(state.session); err != nil {
		state.mu.Unlock()
		return nil, err
	}
	payload, err := recon.BuildSubmissionPayload(state.session)
	if err != nil {
		state.mu.Unlock()
		return nil, err
	}
	encoded, err := payload.Encode()
	if err != nil {
		state.mu.Unlock()
		return nil, err
	}
	state.submitting = true
	generation := state.session.Generation()
	state.mu.Unlock()

	start := time.Now()
	receipt, err := s.ledger.ConfirmReconciliation(ctx, encoded)

	state.mu.Lock()
	state.submitting = false
	if err != nil {
		state.mu.Unlock()
		metrics.ObserveSubmit("error", time.Since(start))
		return nil, &SubmissionError{Err: err}
	}
	if state.abandoned || state.session.Closed() || state.session.Generation() != generation {
		state.mu.Unlock()
		s.logger.Printf("submit response discarded id=%s", sessionID)
		return nil, nil
	}

	resultID := receipt.ReceiptID
	if resultID == "" {
		resultID = recon.NewResultID()
	}
	confirmedAt := receipt.RecordedAt
	if confirmedAt.IsZero() {
		confirmedAt = s.clock.Now()
	}
	result := recon.ReconciliationResult{
		ID:           resultID,
		SessionID:    state.session.ID(),
		TenantID:     state.session.TenantID(),
		Statement:    *state.session.Statement(),
		Matches:      payload.Matches,
		Decisions:    state.session.Ledger().Entries(),
		Summary:      state.session.ResultSummary(),
		Acknowledged: state.session.Acknowledged(),
		Comments:     recon.TrimNotes(state.session.Comments()),
		ConfirmedAt:  confirmedAt.UTC(),
	}
	if err := state.session.Supersede(result); err != nil {
		state.mu.Unlock()
		return nil, err
	}
	event := ReconciliationConfirmed{
		SessionID:  result.SessionID,
		TenantID:   result.TenantID,
		ResultID:   result.ID,
		Result:     result,
		OccurredAt: result.ConfirmedAt,
	}
	state.mu.Unlock()

	metrics.ObserveSubmit("success", time.Since(start))
	s.logger.Printf("session confirmed id=%s result=%s", sessionID, result.ID)
	s.publish(ctx, event)
	return &result, nil
}

// Abandon removes a session from the service. In-flight responses for the
// session are discarded when they arrive.
func (s *WorkflowService) Abandon(sessionID string) error {
	s.mu.Lock()
	state, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	open := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	state.mu.Lock()
	state.abandoned = true
	state.mu.Unlock()
	metrics.SetSessionsOpen(open)

	s.logger.Printf("session abandoned id=%s", sessionID)
	return nil
}

func (s *WorkflowService) lookup(sessionID string) (*sessionState, error) {
	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state, nil
}

func (s *WorkflowService) publish(ctx context.Context, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Printf("event publish failed: %v", err)
	}
}
