package queue

import (
	"time"

	"sceneforge/internal/render"
)

// Status represents the lifecycle of a history record.
type Status string

const (
	StatusPending         Status = "pending"
	StatusRendering       Status = "rendering"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusSyntaxInvalid   Status = "syntax_invalid"
	StatusTimedOut        Status = "timed_out"
	StatusCancelled       Status = "cancelled"
	StatusMissingArtifact Status = "missing_artifact"
)

var terminalStatuses = map[Status]struct{}{
	StatusCompleted:       {},
	StatusFailed:          {},
	StatusSyntaxInvalid:   {},
	StatusTimedOut:        {},
	StatusCancelled:       {},
	StatusMissingArtifact: {},
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// StatusFromOutcome maps a render outcome onto its history status.
func StatusFromOutcome(outcome render.Outcome) Status {
	switch outcome {
	case render.OutcomeCompleted:
		return StatusCompleted
	case render.OutcomeSyntaxInvalid:
		return StatusSyntaxInvalid
	case render.OutcomeTimedOut:
		return StatusTimedOut
	case render.OutcomeCancelled:
		return StatusCancelled
	case render.OutcomeMissingArtifact:
		return StatusMissingArtifact
	default:
		return StatusFailed
	}
}

// Record is one row of render history.
type Record struct {
	ID              string
	Scene           string
	Quality         string
	Status          Status
	ErrorMessage    string
	ArtifactPath    string
	ArtifactSize    int64
	TotalAnimations int
	Duration        time.Duration
	Log             string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
