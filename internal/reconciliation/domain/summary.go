package reconciliation

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MatchSummary counts the partition of operations after automatic matching.
type MatchSummary struct {
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Total     int `json:"total"`
	Rate      int `json:"rate"`
}

// ManualSummary counts adjudication progress over the decision ledger.
type ManualSummary struct {
	Included int `json:"included"`
	Pending  int `json:"pending"`
	Total    int `json:"total"`
}

// BalanceSummary derives monetary totals and the gap against the declared
// balance. All totals are rounded to cents, half away from zero.
type BalanceSummary struct {
	DeclaredBalance decimal.Decimal `json:"declared_balance"`
	MatchedTotal    decimal.Decimal `json:"matched_total"`
	IncludedTotal   decimal.Decimal `json:"included_total"`
	ReconciledTotal decimal.Decimal `json:"reconciled_total"`
	Gap             decimal.Decimal `json:"gap"`
}

// ConfirmationSummary is the read-only projection shown before submission.
// It is never persisted; the submission payload is assembled separately.
type ConfirmationSummary struct {
	OperationCount int              `json:"operation_count"`
	MatchedCount   int              `json:"matched_count"`
	Included       []ManualDecision `json:"included"`
	Ignored        []ManualDecision `json:"ignored"`
	Comments       string           `json:"comments"`
}

// MatchSummary recomputes the match partition counts from current state.
func (s *Session) MatchSummary() MatchSummary {
	matched := len(s.matched)
	unmatched := s.ledger.Len()
	total := matched + unmatched
	rate := 0
	if total > 0 {
		rate = roundPercent(float64(matched) / float64(total) * 100)
	}
	return MatchSummary{Matched: matched, Unmatched: unmatched, Total: total, Rate: rate}
}

// ManualSummary recomputes adjudication progress from the ledger.
func (s *Session) ManualSummary() ManualSummary {
	summary := ManualSummary{Total: s.ledger.Len()}
	for _, entry := range s.ledger.Entries() {
		switch {
		case entry.Include:
			summary.Included++
		case entry.Pending():
			summary.Pending++
		}
	}
	return summary
}

// Progress maps the active stage onto a 0..100 percentage.
func (s *Session) Progress() int {
	return StageProgress(s.stages.Current())
}

// StageProgress converts a stage index into a clamped percentage.
func StageProgress(stage Stage) int {
	if stageCount <= 1 {
		return 100
	}
	pct := roundPercent(float64(stage) / float64(stageCount-1) * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// BalanceSummary recomputes monetary totals from current state.
func (s *Session) BalanceSummary() BalanceSummary {
	var declared decimal.Decimal
	if s.statement != nil {
		declared = s.statement.DeclaredBalance
	}

	matchedTotal := decimal.Zero
	for _, op := range s.matched {
		matchedTotal = matchedTotal.Add(op.Amount)
	}

	includedTotal := decimal.Zero
	amounts := make(map[string]decimal.Decimal, len(s.unmatched))
	for _, op := range s.unmatched {
		amounts[op.ID] = op.Amount
	}
	for _, entry := range s.ledger.Entries() {
		if !entry.Include {
			continue
		}
		includedTotal = includedTotal.Add(amounts[entry.OperationID])
	}

	matchedTotal = RoundAmount(matchedTotal)
	includedTotal = RoundAmount(includedTotal)
	reconciled := RoundAmount(matchedTotal.Add(includedTotal))
	return BalanceSummary{
		DeclaredBalance: RoundAmount(declared),
		MatchedTotal:    matchedTotal,
		IncludedTotal:   includedTotal,
		ReconciledTotal: reconciled,
		Gap:             RoundAmount(declared.Sub(reconciled)),
	}
}

// ConfirmationSummary recomputes the pre-submission projection. The
// operation count comes from the statement when it carries operations and
// falls back to matched+decision counts when it does not.
func (s *Session) ConfirmationSummary() ConfirmationSummary {
	summary := ConfirmationSummary{
		MatchedCount: len(s.matched),
		Comments:     s.comments,
	}
	for _, entry := range s.ledger.Entries() {
		if entry.Include {
			summary.Included = append(summary.Included, entry)
		} else {
			summary.Ignored = append(summary.Ignored, entry)
		}
	}
	if s.statement != nil && len(s.statement.Operations) > 0 {
		summary.OperationCount = len(s.statement.Operations)
	} else {
		summary.OperationCount = len(s.matched) + s.ledger.Len()
	}
	return summary
}

// ResultSummary freezes the aggregate figures for a confirmed record.
func (s *Session) ResultSummary() ResultSummary {
	match := s.MatchSummary()
	confirmation := s.ConfirmationSummary()
	return ResultSummary{
		OperationCount: confirmation.OperationCount,
		MatchedCount:   match.Matched,
		IncludedCount:  len(confirmation.Included),
		IgnoredCount:   len(confirmation.Ignored),
		MatchRate:      match.Rate,
		BalanceGap:     s.BalanceSummary().Gap,
	}
}

// RoundAmount rounds a monetary amount to cents, half away from zero.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func roundPercent(value float64) int {
	return int(math.Round(value))
}

// TrimNotes normalizes free-text fields for payloads and persistence.
func TrimNotes(text string) string {
	return strings.TrimSpace(text)
}
