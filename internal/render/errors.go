package render

import "errors"

// Cancellation causes threaded through the session context. The supervisor
// reports the cause as its error, which lets the pipeline tell a user stop
// apart from a deadline kill.
var (
	ErrStopped  = errors.New("render stopped by user")
	ErrTimedOut = errors.New("render timed out")
)

// Outcome classifies how a render ended.
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeFailed          Outcome = "failed"
	OutcomeSyntaxInvalid   Outcome = "syntax_invalid"
	OutcomeTimedOut        Outcome = "timed_out"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeMissingArtifact Outcome = "missing_artifact"
)

// Success reports whether the outcome produced a usable artifact.
func (o Outcome) Success() bool {
	return o == OutcomeCompleted
}
