package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
	"github.com/felixgeelhaar/rfpflow/pkg/pipeline"
)

// Runner executes analysis runs. *pipeline.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, id analysis.RunID, text string) (*pipeline.RunOutcome, error)
	Submit(ctx context.Context, id analysis.RunID, text string) (analysis.RunID, error)
	State(id analysis.RunID) (*analysis.SharedState, error)
}

// TriggerResult describes a run started through the service.
type TriggerResult struct {
	RunID       string                `json:"run_id"`
	Status      analysis.RunStatus    `json:"status"`
	Async       bool                  `json:"async"`
	Deliverable *analysis.Deliverable `json:"deliverable,omitempty"`
	Errors      []analysis.StageError `json:"errors,omitempty"`
	Warnings    []string              `json:"warnings,omitempty"`
}

// AnalysisService is the entry point the CLI, the MCP server and the inbox
// watcher share.
type AnalysisService struct {
	runner  Runner
	journal events.EventStore
}

// NewAnalysisService creates the service. journal may be nil, in which case
// only runs held in memory can be looked up.
func NewAnalysisService(runner Runner, journal events.EventStore) *AnalysisService {
	return &AnalysisService{runner: runner, journal: journal}
}

// Trigger starts a run. With async it returns as soon as the run is
// registered; otherwise it waits for the terminal status. A run that fails
// still yields a result; the error reports requests that never started.
func (s *AnalysisService) Trigger(ctx context.Context, projectID, documentID, text string, async bool) (*TriggerResult, error) {
	id, err := analysis.NewRunID(projectID, documentID)
	if err != nil {
		return nil, err
	}

	if async {
		id, err = s.runner.Submit(ctx, id, text)
		if err != nil {
			return nil, err
		}
		return &TriggerResult{RunID: id.String(), Status: analysis.RunPending, Async: true}, nil
	}

	outcome, err := s.runner.Run(ctx, id, text)
	if outcome == nil || outcome.State == nil {
		if err == nil {
			err = fmt.Errorf("run %s returned no state", id)
		}
		return nil, err
	}
	return &TriggerResult{
		RunID:       outcome.State.ID.String(),
		Status:      outcome.State.Status,
		Deliverable: outcome.Deliverable,
		Errors:      outcome.State.Errors,
		Warnings:    outcome.State.Warnings,
	}, nil
}

// WorkflowState returns the live state of runID, falling back to the journal
// for runs executed by another process or already evicted.
func (s *AnalysisService) WorkflowState(_ context.Context, runID string) (*WorkflowView, error) {
	id, err := analysis.ParseRunID(runID)
	if err != nil {
		return nil, err
	}

	state, err := s.runner.State(id)
	if err == nil {
		return ViewFromState(state), nil
	}
	if !errors.Is(err, analysis.ErrRunNotFound) || s.journal == nil {
		return nil, err
	}

	evts, jerr := s.journal.LoadByAggregate(events.AggregateTypeRun, id.String())
	if jerr != nil {
		return nil, fmt.Errorf("load run journal: %w", jerr)
	}
	history, ok := events.ReplayRun(id.String(), evts)
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, analysis.ErrRunNotFound)
	}
	return ViewFromHistory(history), nil
}
