package reconciliation

import "testing"

func TestDecisionResolved(t *testing.T) {
	cases := []struct {
		name     string
		decision ManualDecision
		resolved bool
	}{
		{"fresh entry", ManualDecision{OperationID: "op-1"}, false},
		{"included", ManualDecision{OperationID: "op-1", Include: true}, true},
		{"noted", ManualDecision{OperationID: "op-1", Notes: "duplicate of op-9"}, true},
		{"whitespace notes only", ManualDecision{OperationID: "op-1", Notes: "   \t"}, false},
		{"transaction without note or include", ManualDecision{OperationID: "op-1", TransactionID: "tx-1"}, false},
	}
	for _, tc := range cases {
		if got := tc.decision.Resolved(); got != tc.resolved {
			t.Fatalf("%s: expected resolved=%v, got %v", tc.name, tc.resolved, got)
		}
		if got := tc.decision.Pending(); got == tc.resolved {
			t.Fatalf("%s: pending must be the inverse of resolved", tc.name)
		}
	}
}

func TestLedgerInitializedPending(t *testing.T) {
	ledger := NewDecisionLedger(makeOperations("op", 3, "10.00"))
	if ledger.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", ledger.Len())
	}
	if ledger.IsComplete() {
		t.Fatalf("fresh ledger must be incomplete")
	}
	for _, entry := range ledger.Entries() {
		if entry.Include || entry.Notes != "" {
			t.Fatalf("fresh entry must be include=false with empty notes, got %+v", entry)
		}
	}
}

func TestLedgerEmptyIsComplete(t *testing.T) {
	if !NewDecisionLedger(nil).IsComplete() {
		t.Fatalf("empty ledger must be complete")
	}
}

func TestLedgerUpdates(t *testing.T) {
	ledger := NewDecisionLedger(makeOperations("op", 2, "10.00"))

	ledger.ToggleInclude("op-1", true)
	ledger.SetTransaction("op-1", "tx-7")
	ledger.SetNotes("op-2", "bank fee, no ledger counterpart")

	first, ok := ledger.Get("op-1")
	if !ok || !first.Include || first.TransactionID != "tx-7" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	second, ok := ledger.Get("op-2")
	if !ok || second.Notes != "bank fee, no ledger counterpart" {
		t.Fatalf("unexpected second entry: %+v", second)
	}
	if !ledger.IsComplete() {
		t.Fatalf("ledger must be complete after include + note")
	}

	ledger.SetTransaction("op-1", "")
	first, _ = ledger.Get("op-1")
	if first.TransactionID != "" {
		t.Fatalf("empty transaction id must clear the choice, got %q", first.TransactionID)
	}
}

func TestLedgerUnknownOperationIsNoop(t *testing.T) {
	ledger := NewDecisionLedger(makeOperations("op", 1, "10.00"))
	ledger.ToggleInclude("op-404", true)
	ledger.SetTransaction("op-404", "tx-1")
	ledger.SetNotes("op-404", "ghost")
	if ledger.Len() != 1 {
		t.Fatalf("unknown operation must not grow the ledger, got %d entries", ledger.Len())
	}
	entry, _ := ledger.Get("op-1")
	if entry.Include || entry.Notes != "" || entry.TransactionID != "" {
		t.Fatalf("unknown operation update must not touch other entries: %+v", entry)
	}
}

func TestLedgerCompletenessFlips(t *testing.T) {
	ledger := NewDecisionLedger(makeOperations("op", 3, "10.00"))
	ledger.ToggleInclude("op-1", true)
	ledger.ToggleInclude("op-2", true)
	if ledger.IsComplete() {
		t.Fatalf("one pending entry must keep the ledger incomplete")
	}
	ledger.SetNotes("op-3", "charge disputed with the bank")
	if !ledger.IsComplete() {
		t.Fatalf("ledger must be complete once the last entry carries a note")
	}
	ledger.SetNotes("op-3", "  ")
	if ledger.IsComplete() {
		t.Fatalf("blanking the note must reopen the entry")
	}
}
