package application

import (
	"context"
	"errors"
	"testing"
	"time"

	aiprovider "github.com/felixgeelhaar/rfpflow/pkg/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/casestudy"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
	"github.com/felixgeelhaar/rfpflow/pkg/pipeline"
	"github.com/felixgeelhaar/rfpflow/pkg/storage"
)

const rfpText = "Client needs a cloud migration with 99.9% uptime SLA"

type serviceFixture struct {
	orch    *pipeline.Orchestrator
	journal *storage.FileEventStore
	svc     *AnalysisService
}

func newFixture(t *testing.T, responses map[string]string, journal *storage.FileEventStore) *serviceFixture {
	t.Helper()
	if journal == nil {
		var err error
		journal, err = storage.NewFileEventStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileEventStore: %v", err)
		}
	}

	provider := aiprovider.NewMockProvider("test", responses)
	graph, err := pipeline.NewDefaultGraph(provider, casestudy.DefaultCatalog(), pipeline.DefaultSettings())
	if err != nil {
		t.Fatalf("NewDefaultGraph: %v", err)
	}

	dispatcher := events.NewEventDispatcher()
	dispatcher.RegisterWildcard("journal", events.JournalHandler(journal))

	orch, err := pipeline.NewOrchestrator(graph, storage.NewMemoryStateStore(time.Hour), pipeline.WithPublisher(dispatcher))
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return &serviceFixture{orch: orch, journal: journal, svc: NewAnalysisService(orch, journal)}
}

func TestAnalysisService_TriggerSync(t *testing.T) {
	f := newFixture(t, pipeline.SampleResponses(), nil)

	res, err := f.svc.Trigger(context.Background(), "acme", "rfp-1", rfpText, false)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if res.RunID != "acme_rfp-1" || res.Async {
		t.Errorf("result = %+v", res)
	}
	if res.Status != analysis.RunSucceeded {
		t.Errorf("Status = %s, want succeeded (errors: %+v)", res.Status, res.Errors)
	}
	if res.Deliverable == nil || res.Deliverable.ProposalDraft == nil {
		t.Fatal("expected a deliverable with a proposal draft")
	}
	if res.Deliverable.MatchedCaseStudies[0].ID != "cs-tech-cloud" {
		t.Errorf("top case study = %s, want cs-tech-cloud", res.Deliverable.MatchedCaseStudies[0].ID)
	}
}

func TestAnalysisService_TriggerAsyncThenPoll(t *testing.T) {
	f := newFixture(t, pipeline.SampleResponses(), nil)

	res, err := f.svc.Trigger(context.Background(), "acme", "rfp-2", rfpText, true)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !res.Async || res.Status != analysis.RunPending {
		t.Errorf("result = %+v, want pending async", res)
	}

	f.orch.Wait()

	view, err := f.svc.WorkflowState(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("WorkflowState: %v", err)
	}
	if view.Source != SourceLive || view.Status != string(analysis.RunSucceeded) {
		t.Errorf("view = %s/%s, want live/succeeded", view.Source, view.Status)
	}
	if len(view.Stages) != 6 {
		t.Errorf("stages = %d, want 6", len(view.Stages))
	}
	if len(view.Sections) == 0 || view.Sections[0] != analysis.SectionSummary {
		t.Errorf("sections = %v", view.Sections)
	}
}

func TestAnalysisService_FailedRunStillReturnsResult(t *testing.T) {
	responses := pipeline.SampleResponses()
	responses[pipeline.RoleAnalyzer] = "not json"
	f := newFixture(t, responses, nil)

	res, err := f.svc.Trigger(context.Background(), "acme", "rfp-3", rfpText, false)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if res.Status != analysis.RunFailed {
		t.Errorf("Status = %s, want failed", res.Status)
	}
	if res.Deliverable != nil {
		t.Error("failed run should not carry a deliverable")
	}
	if len(res.Errors) != 1 || res.Errors[0].Kind != analysis.KindParse {
		t.Errorf("Errors = %+v, want one parse error", res.Errors)
	}

	view, err := f.svc.WorkflowState(context.Background(), "acme_rfp-3")
	if err != nil {
		t.Fatalf("WorkflowState: %v", err)
	}
	if view.Stages[0].Kind != string(analysis.KindParse) || view.Stages[0].Message == "" {
		t.Errorf("failed stage view = %+v", view.Stages[0])
	}
}

func TestAnalysisService_Validation(t *testing.T) {
	f := newFixture(t, pipeline.SampleResponses(), nil)
	ctx := context.Background()

	if _, err := f.svc.Trigger(ctx, "", "rfp", rfpText, false); !errors.Is(err, analysis.ErrValidation) {
		t.Errorf("empty project: err = %v, want ErrValidation", err)
	}
	if _, err := f.svc.Trigger(ctx, "acme", "rfp", "   ", true); !errors.Is(err, analysis.ErrValidation) {
		t.Errorf("empty text: err = %v, want ErrValidation", err)
	}
	if _, err := f.svc.WorkflowState(ctx, "no-separator"); !errors.Is(err, analysis.ErrValidation) {
		t.Errorf("bad run id: err = %v, want ErrValidation", err)
	}
}

func TestAnalysisService_JournalFallback(t *testing.T) {
	first := newFixture(t, pipeline.SampleResponses(), nil)
	if _, err := first.svc.Trigger(context.Background(), "acme", "rfp-4", rfpText, false); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	// A second process sharing only the journal.
	second := newFixture(t, pipeline.SampleResponses(), first.journal)

	view, err := second.svc.WorkflowState(context.Background(), "acme_rfp-4")
	if err != nil {
		t.Fatalf("WorkflowState: %v", err)
	}
	if view.Source != SourceJournal {
		t.Errorf("Source = %s, want journal", view.Source)
	}
	if view.Status != string(analysis.RunSucceeded) || len(view.Stages) != 6 {
		t.Errorf("view = %s with %d stages", view.Status, len(view.Stages))
	}
	if view.ProjectID != "acme" || view.DocumentID != "rfp-4" {
		t.Errorf("ids = %s/%s", view.ProjectID, view.DocumentID)
	}
}

func TestAnalysisService_UnknownRun(t *testing.T) {
	f := newFixture(t, pipeline.SampleResponses(), nil)
	if _, err := f.svc.WorkflowState(context.Background(), "acme_missing"); !errors.Is(err, analysis.ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}

	noJournal := NewAnalysisService(f.orch, nil)
	if _, err := noJournal.WorkflowState(context.Background(), "acme_missing"); !errors.Is(err, analysis.ErrRunNotFound) {
		t.Errorf("without journal: err = %v, want ErrRunNotFound", err)
	}
}
