package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// SchemaVersion is the current MCP tool schema version (semver).
const SchemaVersion = "1.0.0"

const schemaURI = "rfpflow://schema"

type schemaResponse struct {
	SchemaVersion string   `json:"schema_version"`
	ServerVersion string   `json:"server_version"`
	Tools         []string `json:"tools"`
	Statuses      []string `json:"statuses"`
	ErrorKinds    []string `json:"error_kinds"`
}

func schemaInfo() schemaResponse {
	return schemaResponse{
		SchemaVersion: SchemaVersion,
		ServerVersion: Version,
		Tools:         []string{ToolTriggerAnalysis, ToolGetWorkflowState},
		Statuses: []string{
			string(analysis.RunPending),
			string(analysis.RunRunning),
			string(analysis.RunSucceeded),
			string(analysis.RunPartiallySucceeded),
			string(analysis.RunFailed),
		},
		ErrorKinds: []string{
			string(analysis.KindCollaborator),
			string(analysis.KindTimeout),
			string(analysis.KindParse),
			string(analysis.KindDependency),
			string(analysis.KindPanic),
		},
	}
}

func (s *Server) registerSchemaResource() {
	s.mcpServer.Resource(schemaURI).
		Name(schemaURI).
		Description("Tool schema version, run statuses and error kinds").
		MimeType("application/json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			data, err := json.Marshal(schemaInfo())
			if err != nil {
				return nil, err
			}
			return &mcplib.ResourceContent{
				URI:      schemaURI,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}
