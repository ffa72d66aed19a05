package reconciliation

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func nowUTC() time.Time { return time.Now().UTC() }

func makeOperations(prefix string, count int, amount string) []Operation {
	ops := make([]Operation, 0, count)
	for i := 0; i < count; i++ {
		ops = append(ops, Operation{
			ID:     fmt.Sprintf("%s-%d", prefix, i+1),
			Date:   time.Date(2026, 3, 1+i, 0, 0, 0, 0, time.UTC),
			Label:  fmt.Sprintf("%s line %d", prefix, i+1),
			Amount: decimal.RequireFromString(amount),
		})
	}
	return ops
}

func makeStatement(ops []Operation) Statement {
	return Statement{
		ID:              "stmt-1",
		Currency:        "EUR",
		PeriodStart:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:       time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		DeclaredBalance: decimal.RequireFromString("1000.00"),
		Operations:      ops,
	}
}

// sessionWithMatchOutcome builds a session with an imported statement and
// one completed matching run partitioned into the given counts.
func sessionWithMatchOutcome(t *testing.T, matched, unmatched int) *Session {
	t.Helper()

	matchedOps := makeOperations("op-m", matched, "10.00")
	for i := range matchedOps {
		matchedOps[i].Match = &MatchInfo{
			TransactionID: fmt.Sprintf("tx-%d", i+1),
			Score:         0.95,
			Status:        OperationStatusMatched,
		}
	}
	unmatchedOps := makeOperations("op-u", unmatched, "25.50")

	stmt := makeStatement(append(append([]Operation(nil), matchedOps...), unmatchedOps...))
	s := NewSession("recon-1", "tenant-a", time.Now())
	if err := s.LoadStatement(stmt); err != nil {
		t.Fatalf("load statement: %v", err)
	}
	outcome := MatchOutcome{Statement: stmt, Matched: matchedOps, Unmatched: unmatchedOps}
	if err := s.ApplyMatchOutcome(outcome); err != nil {
		t.Fatalf("apply match outcome: %v", err)
	}
	return s
}
