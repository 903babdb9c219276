package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// idPattern matches project and document identifiers.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// RunID identifies one pipeline execution for a project/document pair.
type RunID struct {
	ProjectID  string `json:"project_id"`
	DocumentID string `json:"document_id"`
}

// NewRunID validates both halves of the identifier.
// Project IDs may not contain '_' because it separates the two halves in String().
func NewRunID(projectID, documentID string) (RunID, error) {
	projectID = strings.TrimSpace(projectID)
	documentID = strings.TrimSpace(documentID)
	if projectID == "" {
		return RunID{}, &ValidationError{Field: "project_id", Reason: "cannot be empty"}
	}
	if documentID == "" {
		return RunID{}, &ValidationError{Field: "document_id", Reason: "cannot be empty"}
	}
	if !idPattern.MatchString(projectID) || strings.Contains(projectID, "_") {
		return RunID{}, &ValidationError{Field: "project_id", Reason: fmt.Sprintf("invalid format: %q", projectID)}
	}
	if !idPattern.MatchString(documentID) {
		return RunID{}, &ValidationError{Field: "document_id", Reason: fmt.Sprintf("invalid format: %q", documentID)}
	}
	return RunID{ProjectID: projectID, DocumentID: documentID}, nil
}

// MustRunID creates a RunID or panics if invalid. Use only in tests.
func MustRunID(projectID, documentID string) RunID {
	id, err := NewRunID(projectID, documentID)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseRunID parses the "{projectId}_{documentId}" form.
func ParseRunID(value string) (RunID, error) {
	value = strings.TrimSpace(value)
	projectID, documentID, ok := strings.Cut(value, "_")
	if !ok {
		return RunID{}, &ValidationError{Field: "run_id", Reason: fmt.Sprintf("expected {projectId}_{documentId}, got %q", value)}
	}
	return NewRunID(projectID, documentID)
}

// String renders the identifier as "{projectId}_{documentId}".
func (id RunID) String() string {
	return id.ProjectID + "_" + id.DocumentID
}

// IsZero returns true if the RunID is empty.
func (id RunID) IsZero() bool {
	return id.ProjectID == "" && id.DocumentID == ""
}
