// Package apperr defines the typed error taxonomy shared across the runtime's
// components. Each error kind carries the handling policy described in the
// component that raises it; this package only fixes the type and the
// wrapping convention (errors.Is/As over a sentinel, contextual detail via
// fmt.Errorf("%w")).
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is against these, or errors.As against the
// richer *Error type below when the caller needs the structured fields.
var (
	// ErrDonationSchema is raised by the donation registry when a document
	// fails schema validation. Fatal at startup in strict mode.
	ErrDonationSchema = errors.New("apperr: donation schema error")

	// ErrParameterExtraction is raised by the NLU cascade's post-stage
	// parameter extractor when a required parameter has no value and no
	// default. Caught by the intent orchestrator and converted into a
	// clarification prompt.
	ErrParameterExtraction = errors.New("apperr: parameter extraction error")

	// ErrHandlerNotFound is raised by the intent orchestrator when no
	// registered handler pattern matches an intent. Surfaced as the
	// conversation.general fallback.
	ErrHandlerNotFound = errors.New("apperr: handler not found")

	// ErrDomainBusy is raised by the fire-and-forget engine when a handler
	// attempts to start a second action for a domain that already has one
	// running.
	ErrDomainBusy = errors.New("apperr: domain busy")

	// ErrTimeout is raised by the fire-and-forget engine's timeout watcher.
	// Classified as "timeout", retryable by default.
	ErrTimeout = errors.New("apperr: action timeout")

	// ErrDependencyUnavailable is raised by any provider capability that
	// cannot currently serve requests. A cascade plugin that encounters this
	// drops out; if every plugin drops out, the fallback stage still runs.
	ErrDependencyUnavailable = errors.New("apperr: dependency unavailable")

	// ErrContextEviction is raised by the context manager when cleanup of a
	// single evicted session fails. Logged; does not abort the eviction tick.
	ErrContextEviction = errors.New("apperr: context eviction error")

	// ErrDeadlineExceeded is returned by the pipeline orchestrator when a
	// per-request deadline elapses before dispatch completes.
	ErrDeadlineExceeded = errors.New("apperr: deadline exceeded")

	// ErrConfigValidation is raised at boot when the configuration document
	// fails validation. Fatal before any component starts.
	ErrConfigValidation = errors.New("apperr: config validation error")

	// ErrPermission is raised by a handler or provider when a caller lacks
	// the authorization to perform an action. Classified as "permission" by
	// the fire-and-forget engine; not retryable by default.
	ErrPermission = errors.New("apperr: permission denied")
)

// Error is a structured wrapper that pairs a sentinel kind with contextual
// detail and an optional cause. Components that need to inspect structured
// fields (e.g. which domain was busy) should use errors.As against *Error;
// callers that only care about the kind should use errors.Is against the
// sentinel.
type Error struct {
	Kind    error
	Detail  string
	Cause   error
}

// New constructs an *Error of the given kind with a formatted detail message.
func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind, recording cause for Unwrap.
func Wrap(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap supports errors.Is(err, apperr.ErrXxx) and errors.Is(err, cause).
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}
