package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/rfpflow/pkg/application"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
	"github.com/spf13/cobra"
)

var stateJSON bool

var stateCmd = &cobra.Command{
	Use:   "state <runId>",
	Short: "Show the execution log of a run",
	Long: `Show the execution log of a run.

Runs held by another process are read back from the run journal.

Examples:
  rfpflow state acme_rfp-2024
  rfpflow state acme_rfp-2024 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadAppForCurrentDir()
		if err != nil {
			return err
		}
		view, err := app.Analysis.WorkflowState(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if stateJSON {
			return writeJSON(cmd.OutOrStdout(), view)
		}
		return renderWorkflow(cmd.OutOrStdout(), view)
	},
}

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	Padding(0, 1)

var statusDone = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
var statusWIP = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
var statusErr = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

func statusStyle(status string) lipgloss.Style {
	switch status {
	case string(analysis.RunSucceeded): // same value as analysis.StageSucceeded
		return statusDone
	case string(analysis.RunFailed): // same value as analysis.StageFailed
		return statusErr
	default:
		return statusWIP
	}
}

func stageTable(view *application.WorkflowView) table.Model {
	columns := []table.Column{
		{Title: "Stage", Width: 30},
		{Title: "Status", Width: 10},
		{Title: "Started", Width: 10},
		{Title: "Duration", Width: 10},
		{Title: "Error", Width: 40},
	}

	rows := make([]table.Row, 0, len(view.Stages))
	for _, s := range view.Stages {
		errText := ""
		if s.Kind != "" {
			errText = s.Kind + ": " + s.Message
		}
		rows = append(rows, table.Row{s.Stage, s.Status, s.StartedAt.Format("15:04:05"), s.Duration, errText})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)
	return t
}

func renderWorkflow(w io.Writer, view *application.WorkflowView) error {
	fmt.Fprintf(w, "Run %s: %s (%s)\n", view.RunID, statusStyle(view.Status).Render(view.Status), view.Source)
	if len(view.Stages) > 0 {
		fmt.Fprintln(w, baseStyle.Render(stageTable(view).View()))
	}
	if len(view.Sections) > 0 {
		fmt.Fprintf(w, "Proposal sections: %v\n", view.Sections)
	}
	renderErrors(w, view.Errors, view.Warnings)
	return nil
}

func renderErrors(w io.Writer, errs []analysis.StageError, warnings []string) {
	if len(errs) > 0 {
		fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Errors"))
		for _, e := range errs {
			fmt.Fprintf(w, "  - [%s/%s] %s\n", e.Stage, e.Kind, statusErr.Render(e.Message))
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Warnings"))
		for _, msg := range warnings {
			fmt.Fprintf(w, "  - %s\n", statusWIP.Render(msg))
		}
	}
}

func init() {
	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "Output in JSON format")
	RootCmd.AddCommand(stateCmd)
}
