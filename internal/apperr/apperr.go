// Package apperr defines the error kinds shared by the coach service's
// domain packages. Transports map them to status codes with errors.Is /
// errors.As; domain packages wrap them with their own context.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every domain-level "does not exist" sentinel.
var ErrNotFound = errors.New("not found")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// GenerationError means the text-generation call failed, timed out, or
// returned text that could not be parsed. It is never retried here.
type GenerationError struct {
	Subject string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Subject, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StorageError is a read/write failure from PostgreSQL or Redis.
type StorageError struct {
	Op      string
	Subject string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Subject, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
