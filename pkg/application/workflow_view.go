package application

import (
	"time"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
)

// Where a WorkflowView came from.
const (
	SourceLive    = "live"
	SourceJournal = "journal"
)

// StageView is one row of the execution log.
type StageView struct {
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Duration   string    `json:"duration,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// WorkflowView is the read model behind `rfpflow state` and the
// rfpflow_get_workflow_state tool.
type WorkflowView struct {
	RunID      string                `json:"run_id"`
	ProjectID  string                `json:"project_id"`
	DocumentID string                `json:"document_id"`
	Status     string                `json:"status"`
	Source     string                `json:"source"`
	Stages     []StageView           `json:"stages"`
	Errors     []analysis.StageError `json:"errors,omitempty"`
	Warnings   []string              `json:"warnings,omitempty"`
	Sections   []string              `json:"sections,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at,omitempty"`
}

// ViewFromState builds a view of a live run.
func ViewFromState(s *analysis.SharedState) *WorkflowView {
	v := &WorkflowView{
		RunID:      s.ID.String(),
		ProjectID:  s.ID.ProjectID,
		DocumentID: s.ID.DocumentID,
		Status:     string(s.Status),
		Source:     SourceLive,
		Stages:     make([]StageView, 0, len(s.ExecutionLog)),
		Errors:     s.Errors,
		Warnings:   s.Warnings,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
	if s.ProposalDraft != nil {
		v.Sections = s.ProposalDraft.SectionNames()
	}

	lastError := make(map[analysis.StageName]analysis.StageError, len(s.Errors))
	for _, e := range s.Errors {
		lastError[e.Stage] = e
	}
	for _, entry := range s.ExecutionLog {
		sv := StageView{
			Stage:      string(entry.Stage),
			Status:     string(entry.Status),
			StartedAt:  entry.StartedAt,
			FinishedAt: entry.FinishedAt,
			Duration:   duration(entry.StartedAt, entry.FinishedAt),
		}
		if entry.Status == analysis.StageFailed {
			if e, ok := lastError[entry.Stage]; ok {
				sv.Kind = string(e.Kind)
				sv.Message = e.Message
			}
		}
		v.Stages = append(v.Stages, sv)
	}
	return v
}

// ViewFromHistory builds a view of a run replayed from the journal.
func ViewFromHistory(h *events.RunHistory) *WorkflowView {
	v := &WorkflowView{
		RunID:      h.RunID,
		ProjectID:  h.ProjectID,
		DocumentID: h.DocumentID,
		Status:     h.Status,
		Source:     SourceJournal,
		Stages:     make([]StageView, 0, len(h.Stages)),
		Warnings:   h.Warnings,
		StartedAt:  h.StartedAt,
		FinishedAt: h.FinishedAt,
	}
	for _, r := range h.Stages {
		v.Stages = append(v.Stages, StageView{
			Stage:      r.Stage,
			Status:     r.Status,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Duration:   duration(r.StartedAt, r.FinishedAt),
			Kind:       r.Kind,
			Message:    r.Message,
		})
	}
	return v
}

func duration(start, end time.Time) string {
	if end.IsZero() || start.IsZero() {
		return ""
	}
	return end.Sub(start).Round(time.Millisecond).String()
}
