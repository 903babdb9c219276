// Package sdk provides a typed Go client for the rfpflow MCP server.
//
// The client wraps mcp-go/client.CallTool with one method per MCP tool
// and retries transport failures via fortify.
//
// Usage:
//
//	transport, _ := client.NewStdioTransport("rfpflow", "mcp")
//	c := sdk.NewClient(transport)
//	defer c.Close()
//
//	_, _ = c.Initialize(ctx)
//	res, _ := c.TriggerAnalysis(ctx, sdk.TriggerRequest{ProjectID: "acme", DocumentID: "rfp-1", Text: text, Async: true})
//	view, _ := c.WaitForRun(ctx, res.RunID)
//	fmt.Println(view.Status)
package sdk
