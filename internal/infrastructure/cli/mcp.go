package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	inframcp "github.com/felixgeelhaar/rfpflow/internal/infrastructure/mcp"
	"github.com/spf13/cobra"
)

var (
	mcpTransport   string
	mcpAddr        string
	mcpMetricsAddr string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the rfpflow MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadAppForCurrentDir()
		if err != nil {
			return err
		}
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		app.StartJanitor(ctx)
		startMetrics(ctx, mcpMetricsAddr, app)

		inframcp.Version, inframcp.BuildCommit, inframcp.BuildDate = Version, Commit, Date
		server := inframcp.NewServer(app.Analysis, app.Logger)
		switch strings.ToLower(mcpTransport) {
		case "stdio", "":
			err = server.ServeStdio(ctx)
		case "http":
			err = server.ServeHTTP(ctx, mcpAddr)
		default:
			return NewCLIError(fmt.Sprintf("unsupported transport: %s", mcpTransport), "Use --transport stdio or --transport http", nil)
		}
		app.Orchestrator.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport to use (stdio, http)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8080", "Address for the http transport")
	mcpCmd.Flags().StringVar(&mcpMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	RootCmd.AddCommand(mcpCmd)
}
