package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

var (
	// ErrStoreUnavailable marks a transient record store failure (network, timeout, permission).
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrCancelled marks an operation aborted by its caller's context.
	ErrCancelled = errors.New("request cancelled")
	// ErrUnauthorized is returned when no valid requester identity is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the requester may not touch the resource.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports invalid caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// UpstreamError carries the status of a failed call to a generative backend.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Service, e.Status)
}

// Cancelled converts a context error into ErrCancelled while keeping the cause.
func Cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %v", ErrCancelled, cause)
}

// Unavailable wraps cause so it matches ErrStoreUnavailable.
func Unavailable(cause error) error {
	if cause == nil {
		return ErrStoreUnavailable
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, cause)
}
