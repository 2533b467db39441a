package siftz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds surfaced by extractors. Match them with errors.Is; they are
// always wrapped in an *Error[T] by the time they reach the caller.
var (
	// ErrTypeConversion reports that the current value cannot be viewed in the
	// shape an operation requires.
	ErrTypeConversion = errors.New("type conversion")

	// ErrParse reports that text failed to parse as the required format.
	ErrParse = errors.New("parse")

	// ErrQuerySyntax reports a malformed XPath, CSS, JSONPath or catalog expression.
	ErrQuerySyntax = errors.New("query syntax")

	// ErrMissingResponse reports that Secrets ran before the last-response
	// side channel was populated.
	ErrMissingResponse = errors.New("missing last response")

	// ErrProcessorPanic reports a panic recovered inside a processor.
	ErrProcessorPanic = errors.New("processor panic")
)

// Error provides rich context about processing failures.
// It wraps the underlying error with the path of processors that led to it,
// the value being processed, and whether the failure was a timeout or a
// cancellation. Connectors prepend their own name to Path as the error
// travels outward, so a failure inside a recipe reads
// ["recipe", "css_selector"].
type Error[T any] struct {
	Timestamp time.Time
	InputData T
	Err       error
	Path      []Name
	Duration  time.Duration
	Timeout   bool
	Canceled  bool
}

// Error implements the error interface, providing a detailed error message.
func (e *Error[T]) Error() string {
	path := strings.Join(e.Path, " -> ")
	if e.Timeout {
		return fmt.Sprintf("%s timed out after %v: %v", path, e.Duration, e.Err)
	}
	if e.Canceled {
		return fmt.Sprintf("%s canceled after %v: %v", path, e.Duration, e.Err)
	}
	return fmt.Sprintf("%s failed after %v: %v", path, e.Duration, e.Err)
}

// Unwrap returns the underlying error, supporting error wrapping patterns.
func (e *Error[T]) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if the error was caused by a timeout.
func (e *Error[T]) IsTimeout() bool {
	return e.Timeout || errors.Is(e.Err, context.DeadlineExceeded)
}

// IsCanceled returns true if the error was caused by cancellation.
func (e *Error[T]) IsCanceled() bool {
	return e.Canceled || errors.Is(e.Err, context.Canceled)
}

// wrapError prepends name to the path of err, wrapping plain errors first.
func wrapError[T any](name Name, input T, err error) *Error[T] {
	var pipeErr *Error[T]
	if errors.As(err, &pipeErr) {
		pipeErr.Path = append([]Name{name}, pipeErr.Path...)
		return pipeErr
	}
	return &Error[T]{
		Timestamp: time.Now(),
		InputData: input,
		Err:       err,
		Path:      []Name{name},
		Timeout:   errors.Is(err, context.DeadlineExceeded),
		Canceled:  errors.Is(err, context.Canceled),
	}
}

func recoverFromPanic[T any](result *T, err *error, name Name, input T) {
	if r := recover(); r != nil {
		*result = input
		*err = &Error[T]{
			Timestamp: time.Now(),
			InputData: input,
			Err:       fmt.Errorf("%w: %v", ErrProcessorPanic, r),
			Path:      []Name{name},
		}
	}
}

func conversionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTypeConversion, fmt.Sprintf(format, args...))
}
