package sdk

import "github.com/felixgeelhaar/rfpflow/pkg/application"

// Tool names exposed by the rfpflow MCP server.
const (
	ToolTriggerAnalysis  = "rfpflow_trigger_analysis"
	ToolGetWorkflowState = "rfpflow_get_workflow_state"
	SchemaURI            = "rfpflow://schema"
)

// TriggerRequest holds the arguments of rfpflow_trigger_analysis.
type TriggerRequest struct {
	ProjectID  string
	DocumentID string
	Text       string
	Async      bool
}

// TriggerResult is the answer to rfpflow_trigger_analysis.
type TriggerResult = application.TriggerResult

// WorkflowState is the answer to rfpflow_get_workflow_state.
type WorkflowState = application.WorkflowView

// SchemaInfo describes the server's tool schema.
type SchemaInfo struct {
	SchemaVersion string   `json:"schema_version"`
	ServerVersion string   `json:"server_version"`
	Tools         []string `json:"tools"`
	Statuses      []string `json:"statuses"`
	ErrorKinds    []string `json:"error_kinds"`
}

// SupportedSchemaMajor is the schema major version this SDK speaks.
const SupportedSchemaMajor = "1"
