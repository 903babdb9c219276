package events

import (
	"testing"
	"time"
)

func TestReplayRun(t *testing.T) {
	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	at := func(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }
	rfc := func(sec int) string { return at(sec).Format(time.RFC3339Nano) }

	evts := []*BaseEvent{
		// An earlier execution of the same run id.
		NewRunEvent(EventTypeRunStarted, "acme_rfp-1", at(0), nil),
		NewRunEvent(EventTypeRunFinished, "acme_rfp-1", at(1), map[string]interface{}{MetaStatus: "failed"}),

		NewRunEvent(EventTypeRunStarted, "acme_rfp-1", at(10), map[string]interface{}{MetaProjectID: "acme", MetaDocumentID: "rfp-1"}),
		NewRunEvent(EventTypeRunStarted, "other_doc", at(10), nil),
		NewRunEvent(EventTypeRunContextDegraded, "acme_rfp-1", at(11), map[string]interface{}{MetaMessage: "no context"}),
		NewRunEvent(EventTypeStageStarted, "acme_rfp-1", at(12), map[string]interface{}{MetaStage: "rfp_analyzer", MetaStartedAt: rfc(12)}),
		NewRunEvent(EventTypeStageFinished, "acme_rfp-1", at(13), map[string]interface{}{
			MetaStage: "rfp_analyzer", MetaStatus: "failed", MetaKind: "timeout", MetaMessage: "too slow",
			MetaStartedAt: rfc(12), MetaFinishedAt: rfc(13),
		}),
		NewRunEvent(EventTypeRunFinished, "acme_rfp-1", at(14), map[string]interface{}{MetaStatus: "failed"}),
	}

	h, ok := ReplayRun("acme_rfp-1", evts)
	if !ok {
		t.Fatal("Expected run to be found")
	}
	if h.ProjectID != "acme" || h.DocumentID != "rfp-1" {
		t.Errorf("ids = %s/%s", h.ProjectID, h.DocumentID)
	}
	if !h.StartedAt.Equal(at(10)) {
		t.Errorf("StartedAt = %v, want latest execution start %v", h.StartedAt, at(10))
	}
	if h.Status != "failed" {
		t.Errorf("Status = %q, want failed", h.Status)
	}
	if len(h.Stages) != 1 {
		t.Fatalf("Stages = %d, want 1", len(h.Stages))
	}
	stage := h.Stages[0]
	if stage.Status != "failed" || stage.Kind != "timeout" || stage.Message != "too slow" {
		t.Errorf("stage = %+v", stage)
	}
	if !stage.StartedAt.Equal(at(12)) || !stage.FinishedAt.Equal(at(13)) {
		t.Errorf("stage times = %v..%v", stage.StartedAt, stage.FinishedAt)
	}
	if len(h.Warnings) != 1 || h.Warnings[0] != "no context" {
		t.Errorf("Warnings = %v", h.Warnings)
	}
}

func TestReplayRun_NotFound(t *testing.T) {
	evts := []*BaseEvent{NewRunEvent(EventTypeRunStarted, "acme_rfp-1", time.Now(), nil)}
	if _, ok := ReplayRun("acme_rfp-2", evts); ok {
		t.Error("Expected run not found")
	}
}

func TestReplayRun_InFlight(t *testing.T) {
	evts := []*BaseEvent{
		NewRunEvent(EventTypeRunStarted, "acme_rfp-1", time.Now(), nil),
		NewRunEvent(EventTypeStageStarted, "acme_rfp-1", time.Now(), map[string]interface{}{MetaStage: "rfp_analyzer"}),
	}
	h, ok := ReplayRun("acme_rfp-1", evts)
	if !ok {
		t.Fatal("Expected run")
	}
	if h.Status != "running" || h.Stages[0].Status != "running" {
		t.Errorf("history = %+v", h)
	}
}
