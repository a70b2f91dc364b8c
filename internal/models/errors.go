package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by every layer. Callers classify with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("configuration test failed")
	ErrExternalProcess = errors.New("external process error")
	ErrIO              = errors.New("i/o error")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// FieldErrors is an ErrInvalidArgument carrying per-field details.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid argument: " + strings.Join(parts, "; ")
}

func (e FieldErrors) Is(target error) bool {
	return target == ErrInvalidArgument
}

// ValidationError is returned when the proxy server rejected the
// configuration during a dry run. Diagnostic holds the raw server output.
type ValidationError struct {
	Diagnostic string
	Err        error
}

func (e *ValidationError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("configuration test failed: %v", e.Err)
	}
	return "configuration test failed: " + e.Diagnostic
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ProcessError is returned when an external command could not be run,
// timed out or exited with a failure outside of a dry run.
type ProcessError struct {
	Command string
	Output  string
	Err     error
}

func (e *ProcessError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *ProcessError) Is(target error) bool {
	return target == ErrExternalProcess
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IOError wraps a filesystem failure so it classifies as ErrIO while
// keeping the underlying error reachable.
func IOError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

// InvalidArgument builds an ErrInvalidArgument with a message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
