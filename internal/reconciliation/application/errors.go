package application

import "errors"

// ErrSessionNotFound is returned for unknown or abandoned sessions.
var ErrSessionNotFound = errors.New("reconciliation: session not found")

// ImportError wraps a remote statement-parsing failure. The session keeps
// its previous statement untouched.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string {
	return "reconciliation: statement import failed: " + e.Err.Error()
}

func (e *ImportError) Unwrap() error { return e.Err }

// MatchError wraps a remote matching failure. Previously applied match
// results and decisions stay intact.
type MatchError struct {
	Err error
}

func (e *MatchError) Error() string {
	return "reconciliation: automatic matching failed: " + e.Err.Error()
}

func (e *MatchError) Unwrap() error { return e.Err }

// SubmissionError wraps a remote confirmation failure. The session stays
// open so the exact same payload can be retried.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return "reconciliation: submission failed: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error { return e.Err }
