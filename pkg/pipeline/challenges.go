package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// Impact levels of a challenge.
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

const defaultCategory = "General"

// ChallengeExtractor lists the client problems behind the RFP.
type ChallengeExtractor struct {
	model modelCall
}

func NewChallengeExtractor(provider ai.Provider, settings ModelSettings) *ChallengeExtractor {
	return &ChallengeExtractor{model: modelCall{stage: analysis.StageChallengeExtractor, provider: provider, settings: settings}}
}

func (s *ChallengeExtractor) Name() analysis.StageName { return analysis.StageChallengeExtractor }

func (s *ChallengeExtractor) Requires() analysis.FieldSet {
	return analysis.FieldSummary | analysis.FieldObjectives | analysis.FieldScope
}

func (s *ChallengeExtractor) Produces() analysis.FieldSet { return analysis.FieldChallenges }

type challengesResponse struct {
	Challenges []analysis.Challenge `json:"challenges"`
}

func (s *ChallengeExtractor) Execute(ctx context.Context, state *analysis.SharedState) StageResult {
	if f := requireFields(s, state); f != nil {
		return FailedWith(f)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Summary:\n%s\n", state.Summary)
	if len(state.Objectives) > 0 {
		b.WriteString("\nObjectives:\n")
		for _, o := range state.Objectives {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	if state.Scope != "" {
		fmt.Fprintf(&b, "\nScope:\n%s\n", state.Scope)
	}

	var resp challengesResponse
	if f := s.model.complete(ctx, challengesInstruction, b.String(), challengesSchemaLoader, &resp); f != nil {
		return FailedWith(f)
	}

	challenges := make([]analysis.Challenge, 0, len(resp.Challenges))
	for _, c := range resp.Challenges {
		desc := strings.TrimSpace(c.Description)
		if desc == "" {
			continue
		}
		category := strings.TrimSpace(c.Category)
		if category == "" {
			category = defaultCategory
		}
		challenges = append(challenges, analysis.Challenge{
			Description: desc,
			Category:    category,
			Impact:      NormalizeImpact(c.Impact),
		})
	}
	if len(challenges) == 0 {
		return Failed(s.Name(), analysis.KindParse, "response contains no challenges")
	}

	return Succeeded(analysis.StageUpdate{Fields: s.Produces(), Challenges: challenges})
}

// NormalizeImpact maps free-form impact labels onto high, medium or low.
// Unknown labels become medium.
func NormalizeImpact(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "critical", "severe", "major":
		return ImpactHigh
	case "low", "minor", "minimal":
		return ImpactLow
	default:
		return ImpactMedium
	}
}

// describeChallenges renders challenges as a prompt bullet list.
func describeChallenges(b *strings.Builder, challenges []analysis.Challenge) {
	b.WriteString("Challenges:\n")
	for _, c := range challenges {
		fmt.Fprintf(b, "- [%s, %s impact] %s\n", c.Category, c.Impact, c.Description)
	}
}
