package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// EnvLogLevel sets the log level when --log-level is not given.
const EnvLogLevel = "RFPFLOW_LOG_LEVEL"

var (
	logLevel    string
	projectPath string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "rfpflow",
	Version: Version,
	Short:   "Multi-agent RFP analysis pipeline",
	Long: `rfpflow turns an RFP document into a structured sales deliverable.

Each run walks a fixed graph of analysis stages: summary, challenges,
discovery questions, value propositions, case-study matches and a
proposal draft. Runs can be started from the command line, over MCP,
or by dropping documents into a watched inbox.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(logLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		reportError(RootCmd, err)
	}
	return err
}

func reportError(cmd *cobra.Command, err error) {
	mapped := MapError(err)
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", mapped)
	var cliErr *CLIError
	if errors.As(mapped, &cliErr) && cliErr.Hint != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: %s\n", cliErr.Hint)
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, NewCLIError(fmt.Sprintf("unknown log level %q", s), "Use one of debug, info, warn, error", nil)
	}
}

func init() {
	defaultLevel := os.Getenv(EnvLogLevel)
	if defaultLevel == "" {
		defaultLevel = "info"
	}
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLevel, "Log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVarP(&projectPath, "dir", "C", "", "Workspace root (defaults to the current directory)")
}
