package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/wiring"
	"github.com/spf13/cobra"
)

var metricsAddr string

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Expose Prometheus metrics and the live run event stream over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadAppForCurrentDir()
		if err != nil {
			return err
		}
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s/metrics and %s/events\n", metricsAddr, metricsAddr)
		return app.MetricsServer(metricsAddr).Run(ctx)
	},
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// startMetrics serves app's metrics on addr in the background until ctx ends.
// An empty addr disables the endpoint.
func startMetrics(ctx context.Context, addr string, app *wiring.App) {
	if addr == "" {
		return
	}
	srv := app.MetricsServer(addr)
	go func() {
		if err := srv.Run(ctx); err != nil {
			slog.Warn("metrics server stopped", "addr", addr, "error", err)
		}
	}()
}

func init() {
	serveMetricsCmd.Flags().StringVar(&metricsAddr, "addr", ":9090", "Listen address")
	RootCmd.AddCommand(serveMetricsCmd)
}
