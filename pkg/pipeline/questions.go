package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// DiscoveryQuestionGenerator drafts workshop questions grouped by category.
type DiscoveryQuestionGenerator struct {
	model modelCall
}

func NewDiscoveryQuestionGenerator(provider ai.Provider, settings ModelSettings) *DiscoveryQuestionGenerator {
	return &DiscoveryQuestionGenerator{model: modelCall{stage: analysis.StageDiscoveryQuestions, provider: provider, settings: settings}}
}

func (s *DiscoveryQuestionGenerator) Name() analysis.StageName {
	return analysis.StageDiscoveryQuestions
}

func (s *DiscoveryQuestionGenerator) Requires() analysis.FieldSet {
	return analysis.FieldSummary | analysis.FieldChallenges
}

func (s *DiscoveryQuestionGenerator) Produces() analysis.FieldSet { return analysis.FieldQuestions }

type questionsResponse struct {
	Questions map[string][]string `json:"questions"`
}

func (s *DiscoveryQuestionGenerator) Execute(ctx context.Context, state *analysis.SharedState) StageResult {
	if f := requireFields(s, state); f != nil {
		return FailedWith(f)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Summary:\n%s\n\n", state.Summary)
	describeChallenges(&b, state.Challenges)

	var resp questionsResponse
	if f := s.model.complete(ctx, questionsInstruction, b.String(), questionsSchemaLoader, &resp); f != nil {
		return FailedWith(f)
	}

	questions := make(map[string][]string, len(resp.Questions))
	for category, items := range resp.Questions {
		category = strings.TrimSpace(category)
		items = trimAll(items)
		if category == "" || len(items) == 0 {
			continue
		}
		questions[category] = append(questions[category], items...)
	}
	if len(questions) == 0 {
		return Failed(s.Name(), analysis.KindParse, "response contains no questions")
	}

	return Succeeded(analysis.StageUpdate{Fields: s.Produces(), DiscoveryQuestions: questions})
}
