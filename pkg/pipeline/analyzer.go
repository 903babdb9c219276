package pipeline

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// RFPAnalyzer summarizes the document and names objectives, scope and industry.
type RFPAnalyzer struct {
	model modelCall
}

func NewRFPAnalyzer(provider ai.Provider, settings ModelSettings) *RFPAnalyzer {
	return &RFPAnalyzer{model: modelCall{stage: analysis.StageRFPAnalyzer, provider: provider, settings: settings}}
}

func (s *RFPAnalyzer) Name() analysis.StageName { return analysis.StageRFPAnalyzer }

func (s *RFPAnalyzer) Requires() analysis.FieldSet { return analysis.FieldInput }

func (s *RFPAnalyzer) Produces() analysis.FieldSet {
	return analysis.FieldSummary | analysis.FieldObjectives | analysis.FieldScope | analysis.FieldIndustry
}

type analyzerResponse struct {
	Summary    string   `json:"summary"`
	Objectives []string `json:"objectives"`
	Scope      string   `json:"scope"`
	Industry   string   `json:"industry"`
}

func (s *RFPAnalyzer) Execute(ctx context.Context, state *analysis.SharedState) StageResult {
	if f := requireFields(s, state); f != nil {
		return FailedWith(f)
	}

	var b strings.Builder
	b.WriteString("RFP document:\n")
	b.WriteString(state.InputText)
	if state.Populated.Has(analysis.FieldContext) {
		b.WriteString("\n\nRelated context from earlier documents:\n")
		b.WriteString(state.RetrievedContext)
	}

	var resp analyzerResponse
	if f := s.model.complete(ctx, analyzerInstruction, b.String(), analyzerSchemaLoader, &resp); f != nil {
		return FailedWith(f)
	}

	summary := strings.TrimSpace(resp.Summary)
	if summary == "" {
		return Failed(s.Name(), analysis.KindParse, "response has an empty summary")
	}

	return Succeeded(analysis.StageUpdate{
		Fields:     s.Produces(),
		Summary:    summary,
		Objectives: trimAll(resp.Objectives),
		Scope:      strings.TrimSpace(resp.Scope),
		Industry:   strings.TrimSpace(resp.Industry),
	})
}

// trimAll trims every item and drops the empty ones.
func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
