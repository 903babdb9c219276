package analysis

import (
	"errors"
	"fmt"
)

// Domain errors for the analysis pipeline.
var (
	// ErrValidation indicates a bad run identifier, input, or a duplicate active run.
	ErrValidation = errors.New("validation failed")

	// ErrDependency indicates a stage ran before the fields it requires were populated.
	ErrDependency = errors.New("required upstream field missing")

	// ErrCollaborator indicates a model or retrieval call failed, timed out, or returned unparseable output.
	ErrCollaborator = errors.New("collaborator call failed")

	// ErrPersistence indicates the deliverable could not be saved after a run finished.
	ErrPersistence = errors.New("deliverable persistence failed")

	// ErrRunActive indicates a run for the same identifier is still executing.
	ErrRunActive = errors.New("run already active")

	// ErrRunNotFound indicates no state is held for the identifier.
	ErrRunNotFound = errors.New("run not found")
)

// ErrorKind tags a StageError so consumers can filter by failure class.
type ErrorKind string

const (
	KindCollaborator ErrorKind = "collaborator"
	KindTimeout      ErrorKind = "timeout"
	KindParse        ErrorKind = "parse"
	KindDependency   ErrorKind = "dependency"
	KindPanic        ErrorKind = "panic"
)

// ValidationError describes a rejected input.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Is allows errors.Is to work with ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DependencyError reports fields a stage needed but found unset.
type DependencyError struct {
	Stage   StageName
	Missing FieldSet
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s: missing required fields [%s]", e.Stage, e.Missing)
}

// Is allows errors.Is to work with DependencyError.
func (e *DependencyError) Is(target error) bool {
	return target == ErrDependency
}

// StageFailure is the error form of a failed StageResult.
type StageFailure struct {
	Stage   StageName
	Kind    ErrorKind
	Message string
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %s", e.Stage, e.Kind, e.Message)
}

// Is maps dependency failures to ErrDependency and everything else to ErrCollaborator.
func (e *StageFailure) Is(target error) bool {
	if e.Kind == KindDependency {
		return target == ErrDependency
	}
	return target == ErrCollaborator
}

// PersistenceError wraps a failed deliverable handoff.
type PersistenceError struct {
	ProjectID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save deliverable for project %s: %v", e.ProjectID, e.Err)
}

// Is allows errors.Is to work with PersistenceError.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
