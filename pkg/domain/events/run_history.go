package events

import "time"

// StageRecord is one stage of a replayed run.
type StageRecord struct {
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	Kind       string    `json:"kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// RunHistory is a run rebuilt from the journal.
type RunHistory struct {
	RunID      string        `json:"run_id"`
	ProjectID  string        `json:"project_id,omitempty"`
	DocumentID string        `json:"document_id,omitempty"`
	Status     string        `json:"status"`
	Stages     []StageRecord `json:"stages"`
	Warnings   []string      `json:"warnings,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
}

// ReplayRun rebuilds the latest execution of runID from its events. Earlier
// executions of the same id are ignored. It returns false when the journal
// holds no run.started event for the id.
func ReplayRun(runID string, evts []*BaseEvent) (*RunHistory, bool) {
	start := -1
	for i, e := range evts {
		if e.AggregateID_ == runID && e.Type == EventTypeRunStarted {
			start = i
		}
	}
	if start < 0 {
		return nil, false
	}

	first := evts[start]
	h := &RunHistory{
		RunID:      runID,
		ProjectID:  first.String(MetaProjectID),
		DocumentID: first.String(MetaDocumentID),
		Status:     "running",
		Stages:     []StageRecord{},
		StartedAt:  first.Timestamp,
	}
	index := make(map[string]int)

	for _, e := range evts[start+1:] {
		if e.AggregateID_ != runID {
			continue
		}
		switch e.Type {
		case EventTypeStageStarted:
			stage := e.String(MetaStage)
			index[stage] = len(h.Stages)
			h.Stages = append(h.Stages, StageRecord{
				Stage:     stage,
				Status:    "running",
				StartedAt: parseTime(e.String(MetaStartedAt), e.Timestamp),
			})
		case EventTypeStageFinished:
			stage := e.String(MetaStage)
			i, ok := index[stage]
			if !ok {
				i = len(h.Stages)
				h.Stages = append(h.Stages, StageRecord{Stage: stage, StartedAt: parseTime(e.String(MetaStartedAt), e.Timestamp)})
			}
			rec := &h.Stages[i]
			rec.Status = e.String(MetaStatus)
			rec.Kind = e.String(MetaKind)
			rec.Message = e.String(MetaMessage)
			rec.FinishedAt = parseTime(e.String(MetaFinishedAt), e.Timestamp)
		case EventTypeRunContextDegraded, EventTypeRunPersistFailed:
			h.Warnings = append(h.Warnings, e.String(MetaMessage))
		case EventTypeRunFinished:
			h.Status = e.String(MetaStatus)
			h.FinishedAt = e.Timestamp
		}
	}
	return h, true
}

func parseTime(value string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return fallback
}
