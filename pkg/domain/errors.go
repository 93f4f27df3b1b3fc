package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID is not registered.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionClosed is returned for any operation on a closed session.
var ErrSessionClosed = errors.New("session closed")

// ErrSubmitInFlight is returned when Submit is called while a submission is
// pending. The second call never reaches the service.
var ErrSubmitInFlight = errors.New("submission already in flight")

// ErrStepLocked is returned by JumpTo for a step that is ahead of the
// current one and was never completed.
var ErrStepLocked = errors.New("step not reachable yet")

// ErrNoPreviousStep is returned by Back on the first step.
var ErrNoPreviousStep = errors.New("already at first step")

// ErrNotLastStep is returned by Submit before the last step is active.
var ErrNotLastStep = errors.New("submit is only available on the last step")

// ErrUnknownField is returned when writing a key no step owns.
var ErrUnknownField = errors.New("unknown field")

// ErrUnknownWizard is returned when a wizard name is not registered.
var ErrUnknownWizard = errors.New("unknown wizard")

// ErrSuperseded marks a fetch result that lost to a newer request.
var ErrSuperseded = errors.New("superseded by a newer request")

// ErrEntityNotFound is returned when a selected ID is not among the
// picker's current results.
var ErrEntityNotFound = errors.New("entity not found")

// StepValidationError is returned when a step validator blocks advancement.
type StepValidationError struct {
	StepID StepID
	Index  int
	Fields FieldErrors
}

func (e *StepValidationError) Error() string {
	keys := e.Fields.Keys()
	return fmt.Sprintf("step %q has %d invalid field(s): %s", e.StepID, len(keys), strings.Join(keys, ", "))
}

// SubmissionError carries the human-readable reason a submission failed.
// The session stays open with its FieldSet intact.
type SubmissionError struct {
	Message string
	Cause   error
}

func (e *SubmissionError) Error() string {
	return "submission failed: " + e.Message
}

func (e *SubmissionError) Unwrap() error { return e.Cause }

// ServiceError represents a {success: false} envelope.
type ServiceError struct {
	Op      string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
