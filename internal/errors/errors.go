// Package errors defines the error kinds shared by the harvester.
//
// Fetch failures are split into two kinds so the cycle orchestrator can decide
// what to do with them: an UnreachableSourceError means the location could not
// be read at all, a MalformedDataError means it was read but its content could
// not be turned into records. Both match their sentinel with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// New is errors.New, re-exported so callers need a single import.
var New = errors.New

// Is and As are re-exported from the standard library.
var (
	Is = errors.Is
	As = errors.As
)

var (
	// ErrUnreachable marks a fetch location that could not be read.
	ErrUnreachable = errors.New("source unreachable")

	// ErrMalformed marks fetched data that could not be parsed.
	ErrMalformed = errors.New("malformed data")

	// ErrNotFound marks a missing resource, e.g. a sink that was never saved.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks invalid configuration or arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCycleAborted marks a harvest cycle that ended without saving.
	ErrCycleAborted = errors.New("cycle aborted")
)

// UnreachableSourceError is returned when a location cannot be fetched:
// transport failures, timeouts, non-2xx responses and unreadable files.
type UnreachableSourceError struct {
	Location   string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *UnreachableSourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s unreachable: unexpected status %d", e.Location, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("source %s unreachable: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("source %s unreachable", e.Location)
}

// Unwrap implements errors.Unwrap
func (e *UnreachableSourceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *UnreachableSourceError) Is(target error) bool {
	return target == ErrUnreachable
}

// NewUnreachableSourceError creates an UnreachableSourceError for a transport failure.
func NewUnreachableSourceError(location string, err error) *UnreachableSourceError {
	return &UnreachableSourceError{Location: location, Err: err}
}

// NewStatusError creates an UnreachableSourceError for an unexpected HTTP status.
func NewStatusError(location string, statusCode int) *UnreachableSourceError {
	return &UnreachableSourceError{Location: location, StatusCode: statusCode}
}

// MalformedDataError is returned when fetched text is not a JSON array of
// objects, or when a required field of one element is missing or unparsable.
// Index is the element position, or -1 when the problem concerns the whole
// document.
type MalformedDataError struct {
	Location string
	Index    int
	Field    string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *MalformedDataError) Error() string {
	where := "document"
	if e.Index >= 0 {
		where = fmt.Sprintf("element %d", e.Index)
	}
	if e.Field != "" {
		where += fmt.Sprintf(" field %q", e.Field)
	}
	if e.Location != "" {
		return fmt.Sprintf("malformed data from %s: %s: %s", e.Location, where, e.Message)
	}
	return fmt.Sprintf("malformed data: %s: %s", where, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *MalformedDataError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MalformedDataError) Is(target error) bool {
	return target == ErrMalformed
}

// NewMalformedDocument creates a MalformedDataError about the document as a whole.
func NewMalformedDocument(message string) *MalformedDataError {
	return &MalformedDataError{Index: -1, Message: message}
}

// NewMalformedField creates a MalformedDataError about one field of one element.
func NewMalformedField(index int, field, message string, err error) *MalformedDataError {
	return &MalformedDataError{Index: index, Field: field, Message: message, Err: err}
}

// WithLocation attaches the fetch location to a MalformedDataError found in err.
// Other errors are returned unchanged.
func WithLocation(err error, location string) error {
	var m *MalformedDataError
	if errors.As(err, &m) && m.Location == "" {
		m.Location = location
	}
	return err
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// IOError represents a storage read or write failure.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// WrapIO wraps err as an IOError, returning nil for a nil err.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// CycleAbortedError is returned by a harvest cycle that discarded its work.
// Stage names the step that failed: "approvals", "enrich" or "save".
type CycleAbortedError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *CycleAbortedError) Error() string {
	return fmt.Sprintf("cycle aborted at %s: %v", e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *CycleAbortedError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CycleAbortedError) Is(target error) bool {
	return target == ErrCycleAborted
}

// Abort wraps err as a CycleAbortedError for the given stage.
func Abort(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &CycleAbortedError{Stage: stage, Err: err}
}

// IsUnreachable reports whether err is an unreachable source error
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// IsMalformed reports whether err is a malformed data error
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCycleAborted reports whether err aborted a harvest cycle
func IsCycleAborted(err error) bool {
	return errors.Is(err, ErrCycleAborted)
}
