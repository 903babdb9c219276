// Package mcp exposes the analysis pipeline as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/rfpflow/pkg/application"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// Tool names.
const (
	ToolTriggerAnalysis  = "rfpflow_trigger_analysis"
	ToolGetWorkflowState = "rfpflow_get_workflow_state"
)

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

type Server struct {
	mcpServer *mcp.Server
	svc       *application.AnalysisService
	logger    *slog.Logger
}

// mcpErr returns a user-friendly error for MCP clients.
func mcpErr(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// NewServer registers the pipeline tools. A nil logger means slog.Default().
func NewServer(svc *application.AnalysisService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	info := mcp.ServerInfo{
		Name:    "rfpflow",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("rfpflow MCP Server"),
			mcp.WithDescription("rfpflow analyzes RFP documents into challenges, discovery questions, value propositions, case studies and a proposal draft."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Trigger an analysis with the RFP text, then poll the workflow state with the returned run_id."),
		),
		svc:    svc,
		logger: logger,
	}

	s.registerTools()
	s.registerSchemaResource()
	return s
}

type TriggerAnalysisArgs struct {
	ProjectID  string   `json:"project_id" jsonschema:"description=Project the RFP belongs to"`
	DocumentID string   `json:"document_id" jsonschema:"description=Identifier of the uploaded RFP document"`
	Text       string   `json:"text" jsonschema:"description=Full text of the RFP document"`
	Async      FlexBool `json:"async,omitempty" jsonschema:"description=Return immediately and poll rfpflow_get_workflow_state"`
}

type WorkflowStateArgs struct {
	RunID string `json:"run_id" jsonschema:"description=Run identifier in the form {projectId}_{documentId}"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool(ToolTriggerAnalysis).
		Description("Run the RFP analysis pipeline for a document. Waits for completion unless async is set.").
		Handler(s.handleTriggerAnalysis)

	s.mcpServer.Tool(ToolGetWorkflowState).
		Description("Return the status, execution log and errors of an analysis run").
		Handler(s.handleGetWorkflowState)
}

func (s *Server) handleTriggerAnalysis(ctx context.Context, args TriggerAnalysisArgs) (any, error) {
	res, err := s.svc.Trigger(ctx, args.ProjectID, args.DocumentID, args.Text, bool(args.Async))
	if err != nil {
		var verr *analysis.ValidationError
		if errors.As(err, &verr) {
			return nil, mcpErr("Invalid request: %s", verr.Error())
		}
		s.logger.Warn("trigger analysis", "project_id", args.ProjectID, "document_id", args.DocumentID, "error", err)
		return nil, mcpErr("Failed to start the analysis.")
	}
	return res, nil
}

func (s *Server) handleGetWorkflowState(ctx context.Context, args WorkflowStateArgs) (any, error) {
	view, err := s.svc.WorkflowState(ctx, args.RunID)
	switch {
	case err == nil:
		return view, nil
	case errors.Is(err, analysis.ErrValidation):
		return nil, mcpErr("Invalid run_id: %s", err.Error())
	case errors.Is(err, analysis.ErrRunNotFound):
		return nil, mcpErr("Run %s not found.", args.RunID)
	default:
		s.logger.Warn("get workflow state", "run_id", args.RunID, "error", err)
		return nil, mcpErr("Failed to load the workflow state.")
	}
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}
