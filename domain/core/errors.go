package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrPendingNotFound = fmt.Errorf("%w: pending record", ErrNotFound)

	// Request errors
	ErrInvalidQuery   = errors.New("invalid query")
	ErrNotImplemented = errors.New("not implemented")

	// Pipeline errors
	ErrProfileFailed     = errors.New("profiling failed")
	ErrMaterializeFailed = errors.New("materializer reports failure")
	ErrSourceProtocol    = errors.New("unexpected source response")

	// Collaborator errors, treated as warnings by callers
	ErrSketchUnavailable = errors.New("sketch index unavailable")
)

// NewNotFoundError builds a not-found error carrying the resource id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewInvalidQueryError builds an invalid-query error with a reason
func NewInvalidQueryError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, reason)
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidQuery reports whether err is a request validation error
func IsInvalidQuery(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}
