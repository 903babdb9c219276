package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/watch"
	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/wiring"
	"github.com/spf13/cobra"
)

var (
	watchProject     string
	watchExisting    bool
	watchDebounce    time.Duration
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Analyze every RFP document dropped into an inbox directory",
	Long: `Analyze every RFP document dropped into an inbox directory.

New or rewritten *.txt and *.md files are analyzed once they stop changing.
The document id is the file name without its extension.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return NewCLIError(fmt.Sprintf("inbox %q is not a directory", dir), "Create the directory first", err)
		}

		app, err := loadAppForCurrentDir()
		if err != nil {
			return err
		}
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		app.StartJanitor(ctx)
		startMetrics(ctx, watchMetricsAddr, app)

		opts := []watch.Option{watch.WithDebounce(watchDebounce), watch.WithLogger(app.Logger)}
		if watchExisting {
			opts = append(opts, watch.WithExisting())
		}
		inbox := watch.NewInbox(dir, inboxHandler(app, watchProject, cmd), opts...)

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for RFP documents (project %s)\n", dir, watchProject)
		err = inbox.Run(ctx)
		app.Orchestrator.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func inboxHandler(app *wiring.App, projectID string, cmd *cobra.Command) watch.HandlerFunc {
	return func(ctx context.Context, path string) error {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the watched inbox
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		res, err := app.Analysis.Trigger(ctx, projectID, watch.DocumentID(path), string(data), false)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> run %s: %s\n", path, res.RunID, res.Status)
		return nil
	}
}

func init() {
	watchCmd.Flags().StringVarP(&watchProject, "project", "p", "", "Project id for every run")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "Also analyze documents already in the inbox")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before a changed file is analyzed")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	_ = watchCmd.MarkFlagRequired("project")
	RootCmd.AddCommand(watchCmd)
}
