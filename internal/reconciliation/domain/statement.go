package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OperationStatusMatched = "matched"
	OperationStatusPending = "pending"
	OperationStatusIgnored = "ignored"
	OperationStatusManual  = "manual"
)

// Statement represents one imported bank statement.
type Statement struct {
	ID              string          `json:"id"`
	AccountLabel    string          `json:"account_label,omitempty"`
	Currency        string          `json:"currency"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	DeclaredBalance decimal.Decimal `json:"declared_balance"`
	Operations      []Operation     `json:"operations"`
}

// Operation is one bank-statement line.
type Operation struct {
	ID        string          `json:"id"`
	Date      time.Time       `json:"date"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	Category  string          `json:"category,omitempty"`
	Match     *MatchInfo      `json:"match,omitempty"`
}

// MatchInfo carries the match metadata the matching service attached to an
// operation.
type MatchInfo struct {
	TransactionID string  `json:"transaction_id"`
	Score         float64 `json:"score"`
	Status        string  `json:"status"`
}

// MatchedTransactionID returns the resolved ledger-transaction id, or empty
// when the operation carries no match.
func (o Operation) MatchedTransactionID() string {
	if o.Match == nil {
		return ""
	}
	return o.Match.TransactionID
}

// StatementUpload is the raw file handed to the parsing service.
type StatementUpload struct {
	FileName string
	Content  []byte
}

// MatchOutcome is the automatic-matching response: the (possibly annotated)
// statement plus the partition of its operations. Operations appear in
// exactly one of the two sets, never both.
type MatchOutcome struct {
	Statement Statement   `json:"statement"`
	Matched   []Operation `json:"matched_operations"`
	Unmatched []Operation `json:"unmatched_operations"`
}
