// Package booking implements the reservation lifecycle: availability
// checking, status transitions, authorization and archival.  Failures
// are reported through the sentinel errors below so that handlers can
// map each kind to a distinct HTTP status with errors.Is.  Errors are
// usually wrapped with extra context; compare with errors.Is, never ==.
package booking

import "errors"

var (
	// ErrNotFound means a referenced user, environment or reservation
	// id did not resolve.  Maps to 404.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor lacks permission for the requested
	// action.  Maps to 403.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict means the requested interval overlaps an existing
	// blocking reservation on the same environment.  Maps to 409.
	ErrConflict = errors.New("environment not available for the requested interval")

	// ErrInvalidTransition means the requested status change violates
	// the lifecycle state machine.  Maps to 400.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidInput means the request itself is malformed: end not
	// after start, unknown status, overlong reason.  Maps to 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIntegrityViolation means the store rejected a write on a
	// uniqueness constraint that should never trip in normal operation,
	// such as a duplicate history id.  Logged with full context and
	// surfaced to clients as a generic failure.
	ErrIntegrityViolation = errors.New("integrity violation")
)
