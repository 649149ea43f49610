package errors

import (
	"fmt"
)

// DiskError is an error with an attached errno code, so callers can react to
// the kind of failure without parsing message text.
type DiskError interface {
	error
	Errno() Errno
	Unwrap() error
}

type diskError struct {
	errno         Errno
	message       string
	originalError error
}

func (e diskError) Error() string {
	if e.message != "" {
		return e.message
	}
	return StrError(e.errno)
}

func (e diskError) Errno() Errno {
	return e.errno
}

func (e diskError) Unwrap() error {
	return e.originalError
}

// New creates a [DiskError] whose message is derived from the errno code.
func New(errnoCode Errno) DiskError {
	return diskError{
		errno:   errnoCode,
		message: StrError(errnoCode),
	}
}

// NewFromError wraps an underlying error with an errno code. The original
// error remains reachable through Unwrap.
func NewFromError(errnoCode Errno, originalError error) DiskError {
	return diskError{
		errno:         errnoCode,
		message:       fmt.Sprintf("%s: %s", StrError(errnoCode), originalError.Error()),
		originalError: originalError,
	}
}

// NewWithMessage creates a [DiskError] with a custom message.
func NewWithMessage(errnoCode Errno, message string) DiskError {
	return diskError{
		errno:   errnoCode,
		message: message,
	}
}

// Is reports whether err is a [DiskError] carrying the given errno code.
func Is(err error, code Errno) bool {
	de, ok := err.(DiskError)
	return ok && de.Errno() == code
}
