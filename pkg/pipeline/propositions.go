package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// ValuePropositionGenerator writes value statements answering the challenges.
type ValuePropositionGenerator struct {
	model modelCall
}

func NewValuePropositionGenerator(provider ai.Provider, settings ModelSettings) *ValuePropositionGenerator {
	return &ValuePropositionGenerator{model: modelCall{stage: analysis.StageValuePropositions, provider: provider, settings: settings}}
}

func (s *ValuePropositionGenerator) Name() analysis.StageName {
	return analysis.StageValuePropositions
}

func (s *ValuePropositionGenerator) Requires() analysis.FieldSet {
	return analysis.FieldSummary | analysis.FieldChallenges
}

func (s *ValuePropositionGenerator) Produces() analysis.FieldSet {
	return analysis.FieldPropositions
}

type propositionsResponse struct {
	ValuePropositions []string `json:"value_propositions"`
}

func (s *ValuePropositionGenerator) Execute(ctx context.Context, state *analysis.SharedState) StageResult {
	if f := requireFields(s, state); f != nil {
		return FailedWith(f)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Summary:\n%s\n\n", state.Summary)
	describeChallenges(&b, state.Challenges)

	var resp propositionsResponse
	if f := s.model.complete(ctx, propositionsInstruction, b.String(), propositionsSchemaLoader, &resp); f != nil {
		return FailedWith(f)
	}

	props := trimAll(resp.ValuePropositions)
	if len(props) == 0 {
		return Failed(s.Name(), analysis.KindParse, "response contains no value propositions")
	}
	return Succeeded(analysis.StageUpdate{Fields: s.Produces(), ValuePropositions: props})
}
