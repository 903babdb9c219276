package pipeline_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
	"github.com/felixgeelhaar/rfpflow/pkg/pipeline"
	"github.com/felixgeelhaar/rfpflow/pkg/storage"
)

const cloudRFP = "Client needs a cloud migration with 99.9% uptime SLA"

var roles = []string{
	pipeline.RoleAnalyzer,
	pipeline.RoleChallenges,
	pipeline.RoleQuestions,
	pipeline.RolePropositions,
	pipeline.RoleIntroduction,
}

func roleOf(system string) string {
	for _, r := range roles {
		if strings.HasPrefix(system, r) {
			return r
		}
	}
	return ""
}

// scriptedProvider answers per stage role and can fail, delay or block a role.
type scriptedProvider struct {
	responses map[string]string
	failures  map[string]error
	delays    map[string]time.Duration
	blocks    map[string]chan struct{}

	mu    sync.Mutex
	calls []ai.CompletionRequest
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		responses: pipeline.SampleResponses(),
		failures:  map[string]error{},
		delays:    map[string]time.Duration{},
		blocks:    map[string]chan struct{}{},
	}
}

func (p *scriptedProvider) ID() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	role := roleOf(req.System)
	p.mu.Lock()
	p.calls = append(p.calls, req)
	delay := p.delays[role]
	block := p.blocks[role]
	failure := p.failures[role]
	text, ok := p.responses[role]
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}
	if !ok {
		text = "{}"
	}
	return &ai.CompletionResponse{Text: text, Model: "scripted"}, nil
}

// setBlock replaces the block channel of role while runs may be in flight.
func (p *scriptedProvider) setBlock(role string, ch chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch == nil {
		delete(p.blocks, role)
		return
	}
	p.blocks[role] = ch
}

func (p *scriptedProvider) callsFor(role string) []ai.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ai.CompletionRequest
	for _, c := range p.calls {
		if roleOf(c.System) == role {
			out = append(out, c)
		}
	}
	return out
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeIndex struct {
	refs []analysis.CaseStudyRef
	err  error

	mu      sync.Mutex
	queries []analysis.MatchQuery
}

func (f *fakeIndex) MatchCaseStudies(ctx context.Context, q analysis.MatchQuery) ([]analysis.CaseStudyRef, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.refs, nil
}

type fakeDeliverables struct {
	err error

	mu    sync.Mutex
	saved []*analysis.Deliverable
}

func (f *fakeDeliverables) SaveDeliverable(ctx context.Context, projectID string, d *analysis.Deliverable) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, d)
	return nil
}

func (f *fakeDeliverables) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakeRetriever struct {
	text string
	err  error
}

func (f fakeRetriever) RetrieveContext(ctx context.Context, documentID string) (string, error) {
	return f.text, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.BaseEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, event *events.BaseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	provider     *scriptedProvider
	index        *fakeIndex
	deliverables *fakeDeliverables
	publisher    *recordingPublisher
	store        *storage.MemoryStateStore
	orch         *pipeline.Orchestrator
}

func newHarness(t *testing.T, opts ...pipeline.Option) *harness {
	t.Helper()
	h := &harness{
		provider: newScriptedProvider(),
		index: &fakeIndex{refs: []analysis.CaseStudyRef{
			{ID: "cs-cloud", Title: "Cloud platform migration", Industry: "Technology", Rationale: "same industry", Score: 11},
		}},
		deliverables: &fakeDeliverables{},
		publisher:    &recordingPublisher{},
		store:        storage.NewMemoryStateStore(time.Hour),
	}
	h.orch = h.build(t, opts...)
	return h
}

// build creates an orchestrator over the harness fakes. Call again after
// changing the harness collaborators.
func (h *harness) build(t *testing.T, opts ...pipeline.Option) *pipeline.Orchestrator {
	t.Helper()
	return buildWith(t, h, h.provider, h.index, opts...)
}

// buildWith creates an orchestrator over provider and index, keeping the
// harness store, deliverables and publisher.
func buildWith(t *testing.T, h *harness, provider ai.Provider, index analysis.CaseStudyIndex, opts ...pipeline.Option) *pipeline.Orchestrator {
	t.Helper()
	graph, err := pipeline.NewDefaultGraph(provider, index, pipeline.DefaultSettings())
	if err != nil {
		t.Fatalf("NewDefaultGraph: %v", err)
	}
	base := []pipeline.Option{
		pipeline.WithDeliverableStore(h.deliverables),
		pipeline.WithPublisher(h.publisher),
	}
	orch, err := pipeline.NewOrchestrator(graph, h.store, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return orch
}

func logStages(state *analysis.SharedState) []analysis.StageName {
	out := make([]analysis.StageName, 0, len(state.ExecutionLog))
	for _, e := range state.ExecutionLog {
		out = append(out, e.Stage)
	}
	return out
}
