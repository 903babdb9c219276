package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var valErr *analysis.ValidationError
	if errors.As(err, &valErr) {
		return NewCLIError(
			valErr.Error(),
			"Identifiers use letters, digits, '.', '-' and '_'; run ids look like <project>_<document>",
			err,
		)
	}

	var stageErr *analysis.StageFailure
	if errors.As(err, &stageErr) {
		return NewCLIError(
			fmt.Sprintf("stage %s failed", stageErr.Stage),
			fmt.Sprintf("Inspect the run with 'rfpflow state' (error kind: %s)", stageErr.Kind),
			err,
		)
	}

	switch {
	case errors.Is(err, analysis.ErrRunActive):
		return NewCLIError("run already active", "Wait for it to finish, then check it with 'rfpflow state <runId>'", err)
	case errors.Is(err, analysis.ErrRunNotFound):
		return NewCLIError("run not found", "Runs are kept for the configured retention; check the run id", err)
	case errors.Is(err, analysis.ErrPersistence):
		return NewCLIError("deliverable could not be saved", "Check the insights settings in .rfpflow/config.yaml", err)
	}

	return err
}
