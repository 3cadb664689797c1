// Package apperr defines the error kinds shared by the editor components.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrIO            = errors.New("i/o failure")
	ErrRender        = errors.New("render failed")
	ErrNoArtifact    = errors.New("nothing to export")
	ErrDiscardDenied = errors.New("discard of unsaved changes declined")
	ErrNotOpen       = errors.New("document not open")
	ErrInvalidFormat = errors.New("invalid export format")
	ErrInvalidInput  = errors.New("invalid input")
)

// OperationError ties a failure to the operation and target that produced it.
// Kind is one of the sentinel errors above; Err is the underlying cause.
type OperationError struct {
	Op     string
	Target string
	Kind   error
	Err    error
}

// Wrap builds an OperationError. A nil cause yields a nil error.
func Wrap(op, target string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Target: target, Kind: kind, Err: err}
}

func (e *OperationError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *OperationError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
