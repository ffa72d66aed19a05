package reconciliation

import "strings"

// ManualDecision is one adjudication record for an operation the automatic
// matcher could not resolve. A decision is resolved when the operation is
// included or carries an explanatory note; silent exclusion stays pending
// and blocks confirmation.
type ManualDecision struct {
	OperationID   string `json:"operation_id"`
	Include       bool   `json:"include"`
	TransactionID string `json:"transaction_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Resolved reports whether the decision carries an inclusion or a note.
func (d ManualDecision) Resolved() bool {
	return d.Include || strings.TrimSpace(d.Notes) != ""
}

// Pending is the inverse of Resolved.
func (d ManualDecision) Pending() bool { return !d.Resolved() }

// DecisionLedger maps each unmatched operation to its adjudication decision.
// Entries keep statement order. Updates replace exactly one entry; an
// unknown operation id is a no-op since the caller and the ledger can race
// benignly across a rebuild.
type DecisionLedger struct {
	entries []ManualDecision
	index   map[string]int
}

// NewDecisionLedger builds a ledger from the unmatched-operation set, one
// pending decision per operation.
func NewDecisionLedger(unmatched []Operation) *DecisionLedger {
	ledger := &DecisionLedger{
		entries: make([]ManualDecision, 0, len(unmatched)),
		index:   make(map[string]int, len(unmatched)),
	}
	for _, op := range unmatched {
		if _, exists := ledger.index[op.ID]; exists {
			continue
		}
		ledger.index[op.ID] = len(ledger.entries)
		ledger.entries = append(ledger.entries, ManualDecision{OperationID: op.ID})
	}
	return ledger
}

// ToggleInclude sets the inclusion flag for one operation.
func (l *DecisionLedger) ToggleInclude(operationID string, include bool) {
	l.update(operationID, func(d ManualDecision) ManualDecision {
		d.Include = include
		return d
	})
}

// SetTransaction records the chosen ledger-transaction id; empty clears it.
func (l *DecisionLedger) SetTransaction(operationID, transactionID string) {
	l.update(operationID, func(d ManualDecision) ManualDecision {
		d.TransactionID = transactionID
		return d
	})
}

// SetNotes records free-text notes for one operation.
func (l *DecisionLedger) SetNotes(operationID, notes string) {
	l.update(operationID, func(d ManualDecision) ManualDecision {
		d.Notes = notes
		return d
	})
}

func (l *DecisionLedger) update(operationID string, apply func(ManualDecision) ManualDecision) {
	if l == nil {
		return
	}
	pos, ok := l.index[operationID]
	if !ok {
		return
	}
	l.entries[pos] = apply(l.entries[pos])
}

// Get returns the decision for an operation.
func (l *DecisionLedger) Get(operationID string) (ManualDecision, bool) {
	if l == nil {
		return ManualDecision{}, false
	}
	pos, ok := l.index[operationID]
	if !ok {
		return ManualDecision{}, false
	}
	return l.entries[pos], true
}

// Len returns the number of ledger entries.
func (l *DecisionLedger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Entries returns a copy of all decisions in statement order.
func (l *DecisionLedger) Entries() []ManualDecision {
	if l == nil {
		return nil
	}
	return append([]ManualDecision(nil), l.entries...)
}

// IsComplete reports whether every entry is resolved. An empty ledger is
// complete. This is the single gate for reaching the confirmation stage.
func (l *DecisionLedger) IsComplete() bool {
	if l == nil {
		return true
	}
	for _, entry := range l.entries {
		if entry.Pending() {
			return false
		}
	}
	return true
}
