package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/mcp-go/client"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// Client is a typed Go client for the rfpflow MCP server.
type Client struct {
	mcp          *client.Client
	retryCfg     retry.Config
	timeout      time.Duration
	pollInterval time.Duration
}

// NewClient creates a new SDK client wrapping the given MCP transport.
func NewClient(transport client.Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		mcp:          client.New(transport, client.WithTimeout(o.timeout)),
		timeout:      o.timeout,
		pollInterval: o.pollInterval,
		retryCfg: retry.Config{
			MaxAttempts:   o.maxAttempts,
			InitialDelay:  o.initialDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Initialize performs the MCP initialize handshake.
func (c *Client) Initialize(ctx context.Context) (*client.ServerInfo, error) {
	return c.mcp.Initialize(ctx)
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// call invokes a tool with retry.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (*client.ToolResult, error) {
	r := retry.New[*client.ToolResult](c.retryCfg)
	result, err := r.Do(ctx, func(ctx context.Context) (*client.ToolResult, error) {
		return c.mcp.CallTool(ctx, tool, args)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", tool, err)
	}
	if result.IsError {
		msg := ""
		if len(result.Content) > 0 {
			msg = result.Content[0].Text
		}
		return nil, &ToolError{Tool: tool, Message: msg}
	}
	return result, nil
}

// unmarshalText extracts Content[0].Text from a tool result and unmarshals it as JSON.
func unmarshalText[T any](result *client.ToolResult) (*T, error) {
	text, err := textResult(result)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &v, nil
}

// textResult extracts Content[0].Text from a tool result.
func textResult(result *client.ToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", ErrNoContent
	}
	return result.Content[0].Text, nil
}

// GetSchema reads the rfpflow://schema resource from the server.
func (c *Client) GetSchema(ctx context.Context) (*SchemaInfo, error) {
	rc, err := c.mcp.ReadResource(ctx, SchemaURI)
	if err != nil {
		return nil, fmt.Errorf("read schema resource: %w", err)
	}
	var info SchemaInfo
	if err := json.Unmarshal([]byte(rc.Text), &info); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return &info, nil
}

// Compatible checks if the server schema is compatible with this SDK version.
// Returns nil if compatible, error with details if not.
func (c *Client) Compatible(ctx context.Context) error {
	info, err := c.GetSchema(ctx)
	if err != nil {
		return fmt.Errorf("check compatibility: %w", err)
	}
	serverMajor := majorVersion(info.SchemaVersion)
	if serverMajor != SupportedSchemaMajor {
		return fmt.Errorf("incompatible schema: server=%s (major %s), sdk supports major %s",
			info.SchemaVersion, serverMajor, SupportedSchemaMajor)
	}
	return nil
}

// majorVersion extracts the major version from a semver string.
func majorVersion(v string) string {
	for i, ch := range v {
		if ch == '.' {
			return v[:i]
		}
	}
	return v
}

// TriggerAnalysis starts a run. Without Async the server answers once the run is terminal.
func (c *Client) TriggerAnalysis(ctx context.Context, req TriggerRequest) (*TriggerResult, error) {
	args := map[string]any{
		"project_id":  req.ProjectID,
		"document_id": req.DocumentID,
		"text":        req.Text,
	}
	if req.Async {
		args["async"] = true
	}
	res, err := c.call(ctx, ToolTriggerAnalysis, args)
	if err != nil {
		return nil, err
	}
	return unmarshalText[TriggerResult](res)
}

// GetWorkflowState returns the status and execution log of a run.
func (c *Client) GetWorkflowState(ctx context.Context, runID string) (*WorkflowState, error) {
	res, err := c.call(ctx, ToolGetWorkflowState, map[string]any{"run_id": runID})
	if err != nil {
		return nil, err
	}
	return unmarshalText[WorkflowState](res)
}

// WaitForRun polls the run until it reaches a terminal status or ctx ends.
func (c *Client) WaitForRun(ctx context.Context, runID string) (*WorkflowState, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		view, err := c.GetWorkflowState(ctx, runID)
		if err != nil {
			return nil, err
		}
		if analysis.RunStatus(view.Status).IsTerminal() {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return view, ctx.Err()
		case <-ticker.C:
		}
	}
}
