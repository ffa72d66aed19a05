package reconciliation

import "encoding/json"

// SubmissionPayload is the immutable confirmation request assembled from
// session state. Construction is deterministic: identical session state
// yields byte-identical encodings, so a retry after a transient failure
// repeats exactly the same request.
type SubmissionPayload struct {
	StatementID  string           `json:"statement_id"`
	Matches      []MatchRecord    `json:"matches"`
	Decisions    []DecisionRecord `json:"decisions"`
	Acknowledged bool             `json:"acknowledged"`
	Comments     string           `json:"comments,omitempty"`
}

// DecisionRecord is the submitted form of one manual decision. Notes are
// trimmed and omitted when empty.
type DecisionRecord struct {
	OperationID   string `json:"operation_id"`
	Include       bool   `json:"include"`
	TransactionID string `json:"transaction_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// ValidateSubmission checks every local submission precondition and returns
// the first unmet one. No precondition failure ever reaches the network.
func ValidateSubmission(s *Session) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	if !s.HasStatement() {
		return ErrStatementRequired
	}
	if !s.MatchingCompleted() {
		return ErrMatchingRequired
	}
	if !s.LedgerComplete() {
		return ErrPendingDecisions
	}
	if !s.Acknowledged() {
		return ErrAcknowledgementRequired
	}
	return nil
}

// BuildSubmissionPayload assembles the confirmation payload from session
// state after validating every precondition.
func BuildSubmissionPayload(s *Session) (SubmissionPayload, error) {
	if err := ValidateSubmission(s); err != nil {
		return SubmissionPayload{}, err
	}

	payload := SubmissionPayload{
		StatementID:  s.Statement().ID,
		Matches:      make([]MatchRecord, 0, len(s.matched)),
		Decisions:    make([]DecisionRecord, 0, s.ledger.Len()),
		Acknowledged: s.Acknowledged(),
		Comments:     TrimNotes(s.Comments()),
	}
	for _, op := range s.matched {
		payload.Matches = append(payload.Matches, MatchRecord{
			OperationID:   op.ID,
			TransactionID: op.MatchedTransactionID(),
			Amount:        op.Amount,
			Label:         op.Label,
		})
	}
	for _, entry := range s.ledger.Entries() {
		payload.Decisions = append(payload.Decisions, DecisionRecord{
			OperationID:   entry.OperationID,
			Include:       entry.Include,
			TransactionID: entry.TransactionID,
			Notes:         TrimNotes(entry.Notes),
		})
	}
	return payload, nil
}

// Encode serializes the payload deterministically.
func (p SubmissionPayload) Encode() ([]byte, error) {
	return json.Marshal(p)
}
