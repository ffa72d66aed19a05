package notify

import "context"

// Notification levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// AlertMessage represents a notification payload.
type AlertMessage struct {
	Level          string            `json:"level"`
	TenantID       string            `json:"tenant_id"`
	SessionID      string            `json:"session_id"`
	ResultID       string            `json:"result_id"`
	AccountLabel   string            `json:"account_label"`
	OperationCount int               `json:"operation_count"`
	MatchRate      int               `json:"match_rate"`
	BalanceGap     string            `json:"balance_gap"`
	Comments       string            `json:"comments,omitempty"`
	Meta           map[string]string `json:"meta,omitempty"`
}

// Notifier sends notifications.
type Notifier interface {
	Notify(ctx context.Context, msg AlertMessage) error
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) Notify(context.Context, AlertMessage) error { return nil }
