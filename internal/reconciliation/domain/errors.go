package reconciliation

import "errors"

var (
	// ErrSessionClosed is returned by mutators after a session has been
	// superseded by its confirmed result.
	ErrSessionClosed = errors.New("reconciliation: session already confirmed")

	// ErrStatementRequired gates stages and submission on a loaded statement.
	ErrStatementRequired = errors.New("reconciliation: statement required")

	// ErrMatchingRequired gates stages and submission on automatic matching
	// having completed at least once.
	ErrMatchingRequired = errors.New("reconciliation: automatic matching required")

	// ErrPendingDecisions is returned while the decision ledger still holds
	// entries that are neither included nor annotated.
	ErrPendingDecisions = errors.New("reconciliation: pending manual decisions")

	// ErrAcknowledgementRequired blocks submission until the adjudicator has
	// explicitly acknowledged the confirmation summary.
	ErrAcknowledgementRequired = errors.New("reconciliation: acknowledgement required")

	// ErrResultNotFound is returned for unknown archived result ids.
	ErrResultNotFound = errors.New("reconciliation: result not found")

	ErrAtInitialStage = errors.New("reconciliation: already at initial stage")
	ErrAtFinalStage   = errors.New("reconciliation: already at final stage")
	ErrUnknownStage   = errors.New("reconciliation: unknown stage")
)
