package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchRecord is a denormalized audit snapshot of one automatic match, not
// a live reference into the statement.
type MatchRecord struct {
	OperationID   string          `json:"operation_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Label         string          `json:"label"`
}

// ResultSummary holds the aggregate figures frozen into a confirmed
// reconciliation.
type ResultSummary struct {
	OperationCount int             `json:"operation_count"`
	MatchedCount   int             `json:"matched_count"`
	IncludedCount  int             `json:"included_count"`
	IgnoredCount   int             `json:"ignored_count"`
	MatchRate      int             `json:"match_rate"`
	BalanceGap     decimal.Decimal `json:"balance_gap"`
}

// ReconciliationResult is the terminal, write-once record of a confirmed
// session. It is created by a successful confirmation call and never
// mutated afterward.
type ReconciliationResult struct {
	ID           string           `json:"id"`
	SessionID    string           `json:"session_id"`
	TenantID     string           `json:"tenant_id"`
	Statement    Statement        `json:"statement"`
	Matches      []MatchRecord    `json:"matches"`
	Decisions    []ManualDecision `json:"decisions"`
	Summary      ResultSummary    `json:"summary"`
	Acknowledged bool             `json:"acknowledged"`
	Comments     string           `json:"comments,omitempty"`
	ConfirmedAt  time.Time        `json:"confirmed_at"`
}
