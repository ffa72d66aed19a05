package application

import (
	"time"

	recon "recon-cloud/internal/reconciliation/domain"
)

// SessionView is a read-only snapshot of one session. Every derived figure
// is recomputed from session state at snapshot time.
type SessionView struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
	Stage     string    `json:"stage"`
	Progress  int       `json:"progress"`
	Closed    bool      `json:"closed"`

	Statement *recon.Statement        `json:"statement,omitempty"`
	Matched   []recon.Operation       `json:"matched,omitempty"`
	Decisions []recon.ManualDecision  `json:"decisions,omitempty"`
	Match     recon.MatchSummary      `json:"match"`
	Manual    recon.ManualSummary     `json:"manual"`
	Balance   recon.BalanceSummary    `json:"balance"`

	Confirmation recon.ConfirmationSummary `json:"confirmation"`
	Acknowledged bool                      `json:"acknowledged"`
	Comments     string                    `json:"comments"`

	ResultID string `json:"result_id,omitempty"`
}

// buildView snapshots a session. Callers hold the session lock.
func buildView(session *recon.Session) SessionView {
	view := SessionView{
		ID:           session.ID(),
		TenantID:     session.TenantID(),
		CreatedAt:    session.CreatedAt(),
		Stage:        session.Stage().String(),
		Progress:     session.Progress(),
		Closed:       session.Closed(),
		Statement:    session.Statement(),
		Matched:      session.Matched(),
		Decisions:    session.Ledger().Entries(),
		Match:        session.MatchSummary(),
		Manual:       session.ManualSummary(),
		Balance:      session.BalanceSummary(),
		Confirmation: session.ConfirmationSummary(),
		Acknowledged: session.Acknowledged(),
		Comments:     session.Comments(),
	}
	if result := session.Result(); result != nil {
		view.ResultID = result.ID
	}
	return view
}
