package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// StageError classifies a stage failure as transient (retried via backoff)
// or permanent (terminal immediately). Message is the human-readable summary
// stored on the job row; the wrapped error stays in logs only.
type StageError struct {
	Stage     string
	Transient bool
	Message   string
	Err       error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable stage failure.
func Transient(stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Transient: true, Message: message, Err: err}
}

// Permanent wraps err as a terminal stage failure.
func Permanent(stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Transient: false, Message: message, Err: err}
}

// classify maps an arbitrary stage error to (transient, summary). Anything a
// stage did not classify itself is treated as transient, so an unknown fault
// retries instead of silently losing the job.
func classify(stage string, err error) (bool, string) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Transient, fmt.Sprintf("%s: %s", se.Stage, se.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true, fmt.Sprintf("%s: timed out", stage)
	}
	return true, fmt.Sprintf("%s: unexpected failure", stage)
}
