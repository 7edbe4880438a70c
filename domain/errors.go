package domain

import (
	"errors"
	"fmt"
)

// ErrorKind identifies which pipeline stage failed. Every error that crosses
// a stage boundary carries exactly one kind so the client can decide whether
// to re-record, retry the turn, or report a backend problem.
type ErrorKind string

const (
	ErrDecode             ErrorKind = "decode_error"
	ErrTranscode          ErrorKind = "transcode_error"
	ErrUnintelligible     ErrorKind = "unintelligible"
	ErrRecognitionService ErrorKind = "recognition_service_error"
	ErrDialogueService    ErrorKind = "dialogue_service_error"
	ErrSynthesis          ErrorKind = "synthesis_error"
)

// TurnError is a typed, event-scoped pipeline failure. It never terminates
// the session; the websocket layer reports it and waits for the next event.
type TurnError struct {
	Kind   ErrorKind
	Detail string

	// Status and Body are populated for dialogue_service_error only and
	// preserve the upstream response for diagnostics.
	Status int
	Body   string

	Err error
}

func (e *TurnError) Error() string {
	if e.Kind == ErrDialogueService && e.Status != 0 {
		return fmt.Sprintf("[ERROR %d] %s", e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// NewTurnError wraps err as a stage-scoped failure.
func NewTurnError(kind ErrorKind, detail string, err error) *TurnError {
	return &TurnError{Kind: kind, Detail: detail, Err: err}
}

// NewDialogueServiceError preserves the upstream HTTP status and raw body.
func NewDialogueServiceError(status int, body string) *TurnError {
	return &TurnError{
		Kind:   ErrDialogueService,
		Detail: fmt.Sprintf("chat completion returned status %d", status),
		Status: status,
		Body:   body,
	}
}

// KindOf extracts the stage kind from err, or empty when err is not a
// pipeline failure.
func KindOf(err error) ErrorKind {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
