package fireforget

import (
	"context"
	"errors"
	"net"

	"github.com/voxrun/assistant/internal/apperr"
	"github.com/voxrun/assistant/internal/session"
)

// Classifier maps a task's returned error to an ErrorClass. TaskError lets
// a handler opt into a specific class without the engine having to
// pattern-match on error text.
type Classifier func(err error) session.ErrorClass

// TaskError lets a handler-authored task declare its own error class
// explicitly, bypassing heuristic classification.
type TaskError struct {
	Class  session.ErrorClass
	Detail string
	Cause  error
}

func (e *TaskError) Error() string {
	if e.Cause != nil {
		return e.Detail + ": " + e.Cause.Error()
	}
	return e.Detail
}

func (e *TaskError) Unwrap() error { return e.Cause }

// NewTaskError builds a TaskError tagging err with an explicit class.
func NewTaskError(class session.ErrorClass, detail string, cause error) *TaskError {
	return &TaskError{Class: class, Detail: detail, Cause: cause}
}

// DefaultClassifier implements the default error-class classification
// table: explicit *TaskError tags win; context.DeadlineExceeded and
// apperr.ErrTimeout classify as timeout; net.Error as network;
// apperr.ErrDependencyUnavailable as service_unavailable;
// apperr.ErrParameterExtraction as validation; everything else as internal.
func DefaultClassifier(err error) session.ErrorClass {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Class
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, apperr.ErrTimeout):
		return session.ErrClassTimeout
	case errors.Is(err, apperr.ErrDependencyUnavailable):
		return session.ErrClassServiceUnavailable
	case errors.Is(err, apperr.ErrParameterExtraction):
		return session.ErrClassValidation
	case errors.Is(err, apperr.ErrPermission):
		return session.ErrClassPermission
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return session.ErrClassNetwork
	}
	return session.ErrClassInternal
}

// DefaultRetryable implements the "Retryable by default" column of the
// error-class classification table.
func DefaultRetryable(class session.ErrorClass) bool {
	switch class {
	case session.ErrClassTimeout, session.ErrClassNetwork, session.ErrClassServiceUnavailable:
		return true
	default:
		return false
	}
}
