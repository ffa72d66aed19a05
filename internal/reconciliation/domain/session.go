package reconciliation

import "time"

// Session owns one reconciliation workflow's state from import through
// confirmation: the statement, the automatic-match set, the manual decision
// ledger and the confirmation fields. All derived figures are recomputed
// from this state on read; nothing derived is stored.
//
// A session is not safe for concurrent use; callers serialize access.
type Session struct {
	id        string
	tenantID  string
	createdAt time.Time

	// generation increments whenever a new statement resets the session.
	// Late async responses issued under an older generation are discarded.
	generation int

	statement *Statement
	matched   []Operation
	unmatched []Operation
	ledger    *DecisionLedger
	matchRuns int

	acknowledged bool
	comments     string

	result *ReconciliationResult
	stages *StageController
}

// NewSession constructs an empty session at the import stage.
func NewSession(id, tenantID string, now time.Time) *Session {
	s := &Session{
		id:        id,
		tenantID:  tenantID,
		createdAt: now.UTC(),
		ledger:    NewDecisionLedger(nil),
	}
	s.stages = NewStageController(s)
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) TenantID() string     { return s.tenantID }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Generation returns the current reset generation.
func (s *Session) Generation() int { return s.generation }

// Closed reports whether the session has been superseded by its result.
func (s *Session) Closed() bool { return s.result != nil }

// Statement returns the current statement, nil before the first import.
func (s *Session) Statement() *Statement { return s.statement }

// Matched returns a copy of the automatic-match set.
func (s *Session) Matched() []Operation {
	return append([]Operation(nil), s.matched...)
}

// Unmatched returns a copy of the unmatched-operation set backing the ledger.
func (s *Session) Unmatched() []Operation {
	return append([]Operation(nil), s.unmatched...)
}

// Ledger returns the manual decision ledger.
func (s *Session) Ledger() *DecisionLedger { return s.ledger }

// Result returns the terminal record, nil until confirmed.
func (s *Session) Result() *ReconciliationResult { return s.result }

// Acknowledged reports the confirmation acknowledgement flag.
func (s *Session) Acknowledged() bool { return s.acknowledged }

// Comments returns the free-text final comments.
func (s *Session) Comments() string { return s.comments }

// Stage returns the active workflow stage.
func (s *Session) Stage() Stage { return s.stages.Current() }

// Stages returns the stage controller.
func (s *Session) Stages() *StageController { return s.stages }

// StageGuard implementation. The controller gates on these facts.

// HasStatement reports whether a statement has been imported.
func (s *Session) HasStatement() bool { return s.statement != nil }

// MatchingCompleted reports whether automatic matching ran at least once
// for the current statement.
func (s *Session) MatchingCompleted() bool { return s.matchRuns > 0 }

// LedgerComplete reports whether every manual decision is resolved.
func (s *Session) LedgerComplete() bool { return s.ledger.IsComplete() }

// LoadStatement installs a freshly imported statement. Downstream session
// data (automatic matches, decision ledger, confirmation fields) is reset
// wholesale and the workflow returns to the import stage.
func (s *Session) LoadStatement(stmt Statement) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	copied := stmt
	copied.Operations = append([]Operation(nil), stmt.Operations...)
	s.statement = &copied
	s.matched = nil
	s.unmatched = nil
	s.ledger = NewDecisionLedger(nil)
	s.matchRuns = 0
	s.acknowledged = false
	s.comments = ""
	s.stages.Reset()
	s.generation++
	return nil
}

// ApplyMatchOutcome installs an automatic-matching response: the statement
// is replaced wholesale by the annotated one and the decision ledger is
// rebuilt from the unmatched set. The outcome is applied in full before any
// derived read can observe it.
func (s *Session) ApplyMatchOutcome(outcome MatchOutcome) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	if s.statement == nil {
		return ErrStatementRequired
	}
	stmt := outcome.Statement
	stmt.Operations = append([]Operation(nil), outcome.Statement.Operations...)
	s.statement = &stmt
	s.matched = append([]Operation(nil), outcome.Matched...)
	s.unmatched = append([]Operation(nil), outcome.Unmatched...)
	s.ledger = NewDecisionLedger(outcome.Unmatched)
	s.matchRuns++
	return nil
}

// ToggleInclude adjusts one manual decision's inclusion flag.
func (s *Session) ToggleInclude(operationID string, include bool) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	s.ledger.ToggleInclude(operationID, include)
	return nil
}

// SetTransaction records the chosen transaction for one manual decision.
func (s *Session) SetTransaction(operationID, transactionID string) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	s.ledger.SetTransaction(operationID, transactionID)
	return nil
}

// SetNotes records notes for one manual decision.
func (s *Session) SetNotes(operationID, notes string) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	s.ledger.SetNotes(operationID, notes)
	return nil
}

// SetAcknowledged sets the confirmation acknowledgement flag.
func (s *Session) SetAcknowledged(acknowledged bool) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	s.acknowledged = acknowledged
	return nil
}

// SetComments sets the free-text final comments.
func (s *Session) SetComments(comments string) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	s.comments = comments
	return nil
}

// Supersede installs the confirmed result. The session becomes read-only;
// every later mutation returns ErrSessionClosed.
func (s *Session) Supersede(result ReconciliationResult) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	s.result = &result
	return nil
}
