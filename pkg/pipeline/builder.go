package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// ProposalBuilder assembles the proposal draft from whatever upstream stages produced.
// Sections whose inputs are missing are left out.
type ProposalBuilder struct {
	intro *modelCall
}

// NewProposalBuilder returns a builder. A nil provider disables the
// model-written executive introduction.
func NewProposalBuilder(provider ai.Provider, settings ModelSettings) *ProposalBuilder {
	b := &ProposalBuilder{}
	if provider != nil {
		b.intro = &modelCall{stage: analysis.StageProposalBuilder, provider: provider, settings: settings}
	}
	return b
}

func (s *ProposalBuilder) Name() analysis.StageName { return analysis.StageProposalBuilder }

func (s *ProposalBuilder) Requires() analysis.FieldSet {
	return analysis.FieldSummary | analysis.FieldObjectives | analysis.FieldScope | analysis.FieldChallenges
}

// Optional lists the fields used when present.
func (s *ProposalBuilder) Optional() analysis.FieldSet {
	return analysis.FieldQuestions | analysis.FieldPropositions | analysis.FieldMatches
}

func (s *ProposalBuilder) Produces() analysis.FieldSet { return analysis.FieldDraft }

// DefaultIntroductionTimeout bounds the introduction call when the stage
// context carries no deadline.
const DefaultIntroductionTimeout = 30 * time.Second

// introductionBudget is the share of the remaining stage budget the
// introduction may use, leaving the rest for assembling the draft.
func introductionBudget(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return DefaultIntroductionTimeout
	}
	return time.Until(deadline) / 2
}

type introductionResponse struct {
	Introduction string `json:"introduction"`
}

func (s *ProposalBuilder) Execute(ctx context.Context, state *analysis.SharedState) StageResult {
	if f := requireFields(s, state); f != nil {
		return FailedWith(f)
	}

	draft := &analysis.ProposalDraft{}
	draft.Sections = append(draft.Sections, analysis.Section{
		Name:    analysis.SectionSummary,
		Content: s.summarySection(ctx, state),
	})
	draft.Sections = append(draft.Sections, analysis.Section{
		Name:    analysis.SectionChallenges,
		Content: challengesSection(state.Challenges),
	})
	if state.Populated.Has(analysis.FieldQuestions) {
		draft.Sections = append(draft.Sections, analysis.Section{
			Name:    analysis.SectionQuestions,
			Content: questionsSection(state.DiscoveryQuestions),
		})
	}
	if state.Populated.Has(analysis.FieldPropositions) {
		draft.Sections = append(draft.Sections, analysis.Section{
			Name:    analysis.SectionValueProps,
			Content: bulletList(state.ValuePropositions),
		})
	}
	if state.Populated.Has(analysis.FieldMatches) {
		draft.Sections = append(draft.Sections, analysis.Section{
			Name:    analysis.SectionCaseStudies,
			Content: caseStudiesSection(state.MatchedCaseStudies),
		})
	}

	return Succeeded(analysis.StageUpdate{Fields: s.Produces(), ProposalDraft: draft})
}

func (s *ProposalBuilder) summarySection(ctx context.Context, state *analysis.SharedState) string {
	var b strings.Builder
	if intro := s.introduction(ctx, state); intro != "" {
		b.WriteString(intro)
		b.WriteString("\n\n")
	}
	b.WriteString(state.Summary)
	if len(state.Objectives) > 0 {
		b.WriteString("\n\nObjectives:\n")
		b.WriteString(bulletList(state.Objectives))
	}
	if state.Scope != "" {
		b.WriteString("\n\nScope: ")
		b.WriteString(state.Scope)
	}
	return b.String()
}

// introduction asks the model for an opening paragraph within its own budget.
// Failures and timeouts yield "".
func (s *ProposalBuilder) introduction(ctx context.Context, state *analysis.SharedState) string {
	if s.intro == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Summary:\n%s\n\n", state.Summary)
	describeChallenges(&b, state.Challenges)
	if len(state.ValuePropositions) > 0 {
		b.WriteString("Value propositions:\n")
		b.WriteString(bulletList(state.ValuePropositions))
	}

	budget := introductionBudget(ctx)
	if budget <= 0 {
		return ""
	}
	prompt := b.String()
	t := timeout.New[string](timeout.Config{DefaultTimeout: budget})
	intro, err := t.Execute(ctx, budget, func(ctx context.Context) (string, error) {
		done := make(chan string, 1)
		go func() {
			var resp introductionResponse
			if f := s.intro.complete(ctx, introductionInstruction, prompt, introductionSchemaLoader, &resp); f != nil {
				done <- ""
				return
			}
			done <- strings.TrimSpace(resp.Introduction)
		}()
		select {
		case text := <-done:
			return text, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	if err != nil {
		return ""
	}
	return intro
}

func challengesSection(challenges []analysis.Challenge) string {
	lines := make([]string, 0, len(challenges))
	for _, c := range challenges {
		lines = append(lines, fmt.Sprintf("- %s (%s, %s impact)", c.Description, c.Category, c.Impact))
	}
	return strings.Join(lines, "\n")
}

// questionsSection renders categories alphabetically so drafts are stable.
func questionsSection(questions map[string][]string) string {
	categories := make([]string, 0, len(questions))
	for category := range questions {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	blocks := make([]string, 0, len(categories))
	for _, category := range categories {
		blocks = append(blocks, category+":\n"+bulletList(questions[category]))
	}
	return strings.Join(blocks, "\n\n")
}

func caseStudiesSection(refs []analysis.CaseStudyRef) string {
	if len(refs) == 0 {
		return "No matching case studies found."
	}
	lines := make([]string, 0, len(refs))
	for _, r := range refs {
		line := "- " + r.Title
		if r.Industry != "" {
			line += " (" + r.Industry + ")"
		}
		if r.Rationale != "" {
			line += ": " + r.Rationale
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
