package pipeline_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
	"github.com/felixgeelhaar/rfpflow/pkg/pipeline"
)

func analyzedState(t *testing.T) *analysis.SharedState {
	t.Helper()
	s := analysis.NewSharedState(analysis.MustRunID("acme", "rfp-1"), cloudRFP, time.Now())
	err := s.Apply(analysis.StageRFPAnalyzer, analysis.FieldSummary|analysis.FieldObjectives|analysis.FieldScope|analysis.FieldIndustry, analysis.StageUpdate{
		Fields:     analysis.FieldSummary | analysis.FieldObjectives | analysis.FieldScope | analysis.FieldIndustry,
		Summary:    "Cloud migration with strict uptime.",
		Objectives: []string{"Migrate workloads"},
		Scope:      "Migration",
		Industry:   "Healthcare",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return s
}

func challengedState(t *testing.T) *analysis.SharedState {
	t.Helper()
	s := analyzedState(t)
	err := s.Apply(analysis.StageChallengeExtractor, analysis.FieldChallenges, analysis.StageUpdate{
		Fields:     analysis.FieldChallenges,
		Challenges: []analysis.Challenge{{Description: "Downtime during cutover", Category: "Technology", Impact: "high"}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return s
}

func TestRFPAnalyzer_Execute(t *testing.T) {
	p := newScriptedProvider()
	stage := pipeline.NewRFPAnalyzer(p, pipeline.ModelSettings{Temperature: 0.1, MaxTokens: 100})
	state := analysis.NewSharedState(analysis.MustRunID("acme", "rfp-1"), cloudRFP, time.Now())

	res := stage.Execute(context.Background(), state)
	if !res.OK() {
		t.Fatalf("Execute failed: %v", res.Err)
	}
	if res.Update.Fields != stage.Produces() {
		t.Errorf("Fields = %s, want %s", res.Update.Fields, stage.Produces())
	}
	if res.Update.Industry != "Technology" {
		t.Errorf("Industry = %q, want Technology", res.Update.Industry)
	}

	calls := p.callsFor(pipeline.RoleAnalyzer)
	if calls[0].Temperature != 0.1 {
		t.Errorf("Temperature = %v, want 0.1", calls[0].Temperature)
	}
	if !calls[0].JSON {
		t.Error("Expected JSON mode")
	}
}

func TestRFPAnalyzer_ParseFailures(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"prose", "I cannot help with that."},
		{"empty summary", `{"summary": "   ", "objectives": []}`},
		{"missing summary", `{"objectives": ["a"]}`},
		{"wrong type", `{"summary": 42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newScriptedProvider()
			p.responses[pipeline.RoleAnalyzer] = tt.response
			stage := pipeline.NewRFPAnalyzer(p, pipeline.ModelSettings{})
			state := analysis.NewSharedState(analysis.MustRunID("acme", "rfp-1"), cloudRFP, time.Now())

			res := stage.Execute(context.Background(), state)
			if res.OK() {
				t.Fatal("Expected failure")
			}
			if res.Err.Kind != analysis.KindParse {
				t.Errorf("Kind = %s, want parse", res.Err.Kind)
			}
			if !errors.Is(res.Err, analysis.ErrCollaborator) {
				t.Error("Parse failures are collaborator failures")
			}
		})
	}
}

func TestRFPAnalyzer_AcceptsFencedJSON(t *testing.T) {
	p := newScriptedProvider()
	p.responses[pipeline.RoleAnalyzer] = "Here you go:\n```json\n{\"summary\": \"ok\", \"industry\": \"Retail\"}\n```"
	stage := pipeline.NewRFPAnalyzer(p, pipeline.ModelSettings{})
	state := analysis.NewSharedState(analysis.MustRunID("acme", "rfp-1"), cloudRFP, time.Now())

	res := stage.Execute(context.Background(), state)
	if !res.OK() {
		t.Fatalf("Execute failed: %v", res.Err)
	}
	if res.Update.Summary != "ok" || res.Update.Industry != "Retail" {
		t.Errorf("update = %+v", res.Update)
	}
}

func TestChallengeExtractor_NormalizesChallenges(t *testing.T) {
	p := newScriptedProvider()
	p.responses[pipeline.RoleChallenges] = `{"challenges": [
		{"description": " Legacy ERP ", "category": "", "impact": "CRITICAL"},
		{"description": "", "category": "Business", "impact": "low"},
		{"description": "Budget pressure", "category": "Business", "impact": "unknown"}
	]}`
	stage := pipeline.NewChallengeExtractor(p, pipeline.ModelSettings{})

	res := stage.Execute(context.Background(), analyzedState(t))
	if !res.OK() {
		t.Fatalf("Execute failed: %v", res.Err)
	}
	want := []analysis.Challenge{
		{Description: "Legacy ERP", Category: "General", Impact: pipeline.ImpactHigh},
		{Description: "Budget pressure", Category: "Business", Impact: pipeline.ImpactMedium},
	}
	if !reflect.DeepEqual(res.Update.Challenges, want) {
		t.Errorf("Challenges = %+v, want %+v", res.Update.Challenges, want)
	}
}

func TestChallengeExtractor_MissingDependency(t *testing.T) {
	stage := pipeline.NewChallengeExtractor(newScriptedProvider(), pipeline.ModelSettings{})
	state := analysis.NewSharedState(analysis.MustRunID("acme", "rfp-1"), cloudRFP, time.Now())

	res := stage.Execute(context.Background(), state)
	if res.OK() {
		t.Fatal("Expected failure")
	}
	if res.Err.Kind != analysis.KindDependency {
		t.Errorf("Kind = %s, want dependency", res.Err.Kind)
	}
	if !errors.Is(res.Err, analysis.ErrDependency) {
		t.Error("Expected ErrDependency")
	}
	if !strings.Contains(res.Err.Message, "summary") {
		t.Errorf("Message = %q, want it to name the missing field", res.Err.Message)
	}
}

func TestNormalizeImpact(t *testing.T) {
	tests := map[string]string{
		"High":     pipeline.ImpactHigh,
		" severe ": pipeline.ImpactHigh,
		"medium":   pipeline.ImpactMedium,
		"":         pipeline.ImpactMedium,
		"Minor":    pipeline.ImpactLow,
		"low":      pipeline.ImpactLow,
	}
	for in, want := range tests {
		if got := pipeline.NormalizeImpact(in); got != want {
			t.Errorf("NormalizeImpact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDiscoveryQuestionGenerator_DropsEmptyCategories(t *testing.T) {
	p := newScriptedProvider()
	p.responses[pipeline.RoleQuestions] = `{"questions": {"Business": ["Why now?"], "Technology": [], "Legal": ["  "]}}`
	stage := pipeline.NewDiscoveryQuestionGenerator(p, pipeline.ModelSettings{Temperature: 0.7})

	res := stage.Execute(context.Background(), challengedState(t))
	if !res.OK() {
		t.Fatalf("Execute failed: %v", res.Err)
	}
	want := map[string][]string{"Business": {"Why now?"}}
	if !reflect.DeepEqual(res.Update.DiscoveryQuestions, want) {
		t.Errorf("questions = %v, want %v", res.Update.DiscoveryQuestions, want)
	}
	if got := p.callsFor(pipeline.RoleQuestions)[0].Temperature; got != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", got)
	}
}

func TestDiscoveryQuestionGenerator_AllEmptyIsParseFailure(t *testing.T) {
	p := newScriptedProvider()
	p.responses[pipeline.RoleQuestions] = `{"questions": {"Business": []}}`
	stage := pipeline.NewDiscoveryQuestionGenerator(p, pipeline.ModelSettings{})

	res := stage.Execute(context.Background(), challengedState(t))
	if res.OK() || res.Err.Kind != analysis.KindParse {
		t.Errorf("result = %+v, want parse failure", res.Err)
	}
}

func TestValuePropositionGenerator_ModelError(t *testing.T) {
	p := newScriptedProvider()
	p.failures[pipeline.RolePropositions] = errors.New("503")
	stage := pipeline.NewValuePropositionGenerator(p, pipeline.ModelSettings{})

	res := stage.Execute(context.Background(), challengedState(t))
	if res.OK() {
		t.Fatal("Expected failure")
	}
	if res.Err.Kind != analysis.KindCollaborator {
		t.Errorf("Kind = %s, want collaborator", res.Err.Kind)
	}
	if res.Err.Stage != analysis.StageValuePropositions {
		t.Errorf("Stage = %s, want %s", res.Err.Stage, analysis.StageValuePropositions)
	}
}

func TestCaseStudyMatcher_QueriesIndex(t *testing.T) {
	index := &fakeIndex{refs: []analysis.CaseStudyRef{{ID: "cs-1", Title: "Hospital EHR"}}}
	stage := pipeline.NewCaseStudyMatcher(index, 3)

	res := stage.Execute(context.Background(), challengedState(t))
	if !res.OK() {
		t.Fatalf("Execute failed: %v", res.Err)
	}
	if len(res.Update.MatchedCaseStudies) != 1 {
		t.Errorf("matches = %v", res.Update.MatchedCaseStudies)
	}
	q := index.queries[0]
	if q.Industry != "Healthcare" || q.Limit != 3 || len(q.Challenges) != 1 {
		t.Errorf("query = %+v", q)
	}
}

func TestCaseStudyMatcher_EmptyResultSucceeds(t *testing.T) {
	stage := pipeline.NewCaseStudyMatcher(&fakeIndex{}, 5)
	res := stage.Execute(context.Background(), challengedState(t))
	if !res.OK() {
		t.Fatalf("Execute failed: %v", res.Err)
	}
	if res.Update.MatchedCaseStudies == nil {
		t.Error("Expected empty, non-nil matches")
	}
}

func TestProposalBuilder_OmitsMissingSections(t *testing.T) {
	stage := pipeline.NewProposalBuilder(nil, pipeline.ModelSettings{})
	state := challengedState(t)
	err := state.Apply(analysis.StageValuePropositions, analysis.FieldPropositions, analysis.StageUpdate{
		Fields:            analysis.FieldPropositions,
		ValuePropositions: []string{"Zero-downtime cutover"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	res := stage.Execute(context.Background(), state)
	if !res.OK() {
		t.Fatalf("Execute failed: %v", res.Err)
	}
	want := []string{analysis.SectionSummary, analysis.SectionChallenges, analysis.SectionValueProps}
	if got := res.Update.ProposalDraft.SectionNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("sections = %v, want %v", got, want)
	}
	if !strings.Contains(res.Update.ProposalDraft.Sections[2].Content, "- Zero-downtime cutover") {
		t.Errorf("ValueProps content = %q", res.Update.ProposalDraft.Sections[2].Content)
	}
}

func TestProposalBuilder_Introduction(t *testing.T) {
	p := newScriptedProvider()
	stage := pipeline.NewProposalBuilder(p, pipeline.ModelSettings{Temperature: 0.3})

	res := stage.Execute(context.Background(), challengedState(t))
	if !res.OK() {
		t.Fatalf("Execute failed: %v", res.Err)
	}
	summary := res.Update.ProposalDraft.Sections[0].Content
	if !strings.HasPrefix(summary, "We propose a phased cloud migration") {
		t.Errorf("Summary section = %q, want introduction first", summary)
	}
}

func TestProposalBuilder_IntroductionFailureIgnored(t *testing.T) {
	p := newScriptedProvider()
	p.failures[pipeline.RoleIntroduction] = errors.New("model down")
	stage := pipeline.NewProposalBuilder(p, pipeline.ModelSettings{})

	res := stage.Execute(context.Background(), challengedState(t))
	if !res.OK() {
		t.Fatalf("Execute failed: %v", res.Err)
	}
	if got := res.Update.ProposalDraft.Sections[0].Content; !strings.HasPrefix(got, "Cloud migration with strict uptime.") {
		t.Errorf("Summary section = %q", got)
	}
}

func TestProposalBuilder_QuestionsSortedByCategory(t *testing.T) {
	stage := pipeline.NewProposalBuilder(nil, pipeline.ModelSettings{})
	state := challengedState(t)
	_ = state.Apply(analysis.StageDiscoveryQuestions, analysis.FieldQuestions, analysis.StageUpdate{
		Fields: analysis.FieldQuestions,
		DiscoveryQuestions: map[string][]string{
			"Technology": {"Which cloud?"},
			"Business":   {"Why now?"},
		},
	})

	res := stage.Execute(context.Background(), state)
	content := res.Update.ProposalDraft.Sections[2].Content
	if strings.Index(content, "Business:") > strings.Index(content, "Technology:") {
		t.Errorf("categories not sorted: %q", content)
	}
}
