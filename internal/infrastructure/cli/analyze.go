package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/watch"
	"github.com/felixgeelhaar/rfpflow/pkg/application"
	"github.com/spf13/cobra"
)

var (
	analyzeProject  string
	analyzeDocument string
	analyzeFile     string
	analyzeAsync    bool
	analyzeJSON     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis pipeline on an RFP document",
	Long: `Run the analysis pipeline on an RFP document.

The document id defaults to the file name without its extension.
Use --file - to read the document from stdin.

Examples:
  rfpflow analyze --project acme --file rfp.txt
  rfpflow analyze --project acme --document rfp-2024 --file - < rfp.txt
  rfpflow analyze --project acme --file rfp.md --async --json`,
	RunE: runAnalyzeCmd,
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	text, err := readDocument(cmd.InOrStdin(), analyzeFile)
	if err != nil {
		return err
	}
	documentID := analyzeDocument
	if documentID == "" && analyzeFile != "-" {
		documentID = watch.DocumentID(analyzeFile)
	}

	app, err := loadAppForCurrentDir()
	if err != nil {
		return err
	}

	res, err := app.Analysis.Trigger(cmd.Context(), analyzeProject, documentID, text, analyzeAsync)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeAsync {
		if !analyzeJSON {
			fmt.Fprintf(out, "Submitted run %s\n", res.RunID)
		}
		// The process owns the run, so stay alive until it finishes.
		app.Orchestrator.Wait()
		view, err := app.Analysis.WorkflowState(cmd.Context(), res.RunID)
		if err != nil {
			return err
		}
		if analyzeJSON {
			return writeJSON(out, view)
		}
		return renderWorkflow(out, view)
	}

	if analyzeJSON {
		return writeJSON(out, res)
	}
	renderTriggerResult(out, res)
	return nil
}

func readDocument(stdin io.Reader, path string) (string, error) {
	if path == "" {
		return "", NewCLIError("no document given", "Pass --file <path> or --file - for stdin", nil)
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- user-supplied document path
	}
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

func renderTriggerResult(w io.Writer, res *application.TriggerResult) {
	fmt.Fprintf(w, "Run %s: %s\n", res.RunID, statusStyle(string(res.Status)).Render(string(res.Status)))

	if d := res.Deliverable; d != nil {
		fmt.Fprintf(w, "\n%s\n%s\n", headerStyle.Render("Summary"), d.Summary)
		if len(d.Challenges) > 0 {
			fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Challenges"))
			for _, c := range d.Challenges {
				fmt.Fprintf(w, "  - [%s/%s] %s\n", c.Category, c.Impact, c.Description)
			}
		}
		if len(d.MatchedCaseStudies) > 0 {
			fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Case studies"))
			for _, cs := range d.MatchedCaseStudies {
				fmt.Fprintf(w, "  - %s (score %d): %s\n", cs.ID, cs.Score, cs.Rationale)
			}
		}
	}
	renderErrors(w, res.Errors, res.Warnings)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeProject, "project", "p", "", "Project id")
	analyzeCmd.Flags().StringVarP(&analyzeDocument, "document", "d", "", "Document id (defaults to the file name)")
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "RFP document to analyze, or - for stdin")
	analyzeCmd.Flags().BoolVar(&analyzeAsync, "async", false, "Submit the run and report its state once it finishes")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output in JSON format")
	_ = analyzeCmd.MarkFlagRequired("project")
	RootCmd.AddCommand(analyzeCmd)
}
