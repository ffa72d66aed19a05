package application

import (
	"context"
	"time"

	recon "recon-cloud/internal/reconciliation/domain"
)

// StatementImported is emitted when a parsed statement is installed into a
// session.
type StatementImported struct {
	SessionID      string    `json:"session_id"`
	TenantID       string    `json:"tenant_id"`
	StatementID    string    `json:"statement_id"`
	AccountLabel   string    `json:"account_label"`
	OperationCount int       `json:"operation_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// MatchingCompleted is emitted when an automatic-matching run is applied.
type MatchingCompleted struct {
	SessionID   string    `json:"session_id"`
	TenantID    string    `json:"tenant_id"`
	StatementID string    `json:"statement_id"`
	Matched     int       `json:"matched"`
	Unmatched   int       `json:"unmatched"`
	MatchRate   int       `json:"match_rate"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ReconciliationConfirmed is emitted once per confirmed session. It carries
// the full result so consumers never need to read the superseded session.
type ReconciliationConfirmed struct {
	SessionID  string                     `json:"session_id"`
	TenantID   string                     `json:"tenant_id"`
	ResultID   string                     `json:"result_id"`
	Result     recon.ReconciliationResult `json:"result"`
	OccurredAt time.Time                  `json:"occurred_at"`
}

// EventPublisher emits workflow events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}
