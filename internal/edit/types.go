// Package edit implements the AI edit pipeline: one step per edit
// kind, sequenced by an orchestrator that folds the selected steps
// over the evolving content.
package edit

import (
	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/models"
)

// AppliedEdit records one successfully executed step. Never mutated
// after creation.
type AppliedEdit struct {
	Type           models.EditKind `json:"type"`
	DurationMs     int64           `json:"durationMs"`
	ChangesMade    bool            `json:"changesMade"`
	CharacterDelta int             `json:"characterDelta"`
}

// FailedEdit records one step that did not complete. Recoverable is
// false only for user cancellation.
type FailedEdit struct {
	Type        models.EditKind `json:"type"`
	Error       string          `json:"error"`
	Recoverable bool            `json:"recoverable"`
}

// ResultError is the structured error embedded in a Result when the
// run as a whole was rejected or aborted.
type ResultError struct {
	Code      apperr.Code `json:"code"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
}

// Result is the orchestrator's terminal output for one run. It is
// never persisted; only Content survives, into the note, if the
// caller applies it.
type Result struct {
	Success          bool          `json:"success"`
	Content          string        `json:"content"`
	AppliedEdits     []AppliedEdit `json:"appliedEdits"`
	FailedEdits      []FailedEdit  `json:"failedEdits"`
	OriginalContent  string        `json:"originalContent"`
	ChangePercentage float64       `json:"changePercentage"`
	ProcessingTimeMs int64         `json:"processingTimeMs"`
	Error            *ResultError  `json:"error,omitempty"`
}

func resultError(e *apperr.Error) *ResultError {
	return &ResultError{Code: e.Code, Message: e.Message, Retryable: e.Retryable}
}
