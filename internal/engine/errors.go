package engine

import (
	"fmt"
	"strings"
)

// ValidationError means the caller must resupply missing fields. Maps to 400.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// ResolutionError means a user-supplied name matched nothing. The message
// repeats the input verbatim so the user can correct it. Maps to 400.
type ResolutionError struct {
	Kind  string // "workspace", "project", "assignee"
	Input string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not find %s matching %q", e.Kind, e.Input)
}

// ModelNotAllowedError means the requested model failed the whitelist gate.
// The request is rejected, never silently substituted. Maps to 400.
type ModelNotAllowedError struct {
	Model string
}

func (e *ModelNotAllowedError) Error() string {
	return fmt.Sprintf("model %q is not available", e.Model)
}

// PersistenceError wraps a failed database write. Maps to 500; not retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
