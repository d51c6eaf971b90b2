package service

import (
	"errors"
	"fmt"
)

var (
	// ErrGradeValidation indicates a submitted score or entry is malformed or out of range.
	ErrGradeValidation = errors.New("grade validation failed")
	// ErrGradeAuthorization indicates a main or subs grader touched a slot already ruled by the head grader.
	ErrGradeAuthorization = errors.New("slot already graded by head grader")
	// ErrGradeNotFound indicates the usage or slot is not a known attempt.
	ErrGradeNotFound = errors.New("attempt or slot not found")
	// ErrGradeStorageConflict indicates the batch lost a race against a concurrent update and may be retried.
	ErrGradeStorageConflict = errors.New("concurrent grade update conflict")
)

// GradingError is the typed rejection of a grade batch. It unwraps to one of the Err* kinds above.
type GradingError struct {
	Kind   error
	Slot   int
	Reason string
	Cause  error
}

func (e *GradingError) Error() string {
	msg := e.Kind.Error()
	if e.Slot > 0 {
		msg = fmt.Sprintf("%s (slot %d)", msg, e.Slot)
	}
	if e.Reason != "" {
		msg = msg + ": " + e.Reason
	}
	return msg
}

func (e *GradingError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// KindName returns a stable identifier for API payloads and metrics labels.
func (e *GradingError) KindName() string {
	switch e.Kind {
	case ErrGradeValidation:
		return "validation"
	case ErrGradeAuthorization:
		return "authorization"
	case ErrGradeNotFound:
		return "not_found"
	case ErrGradeStorageConflict:
		return "storage_conflict"
	default:
		return "unknown"
	}
}

func validationError(slot int, format string, args ...interface{}) *GradingError {
	return &GradingError{Kind: ErrGradeValidation, Slot: slot, Reason: fmt.Sprintf(format, args...)}
}

func authorizationError(slot int) *GradingError {
	return &GradingError{Kind: ErrGradeAuthorization, Slot: slot}
}

func notFoundError(slot int, format string, args ...interface{}) *GradingError {
	return &GradingError{Kind: ErrGradeNotFound, Slot: slot, Reason: fmt.Sprintf(format, args...)}
}
