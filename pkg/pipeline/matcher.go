package pipeline

import (
	"context"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// CaseStudyMatcher looks up prior engagements that fit the client.
// It does not call the language model.
type CaseStudyMatcher struct {
	index analysis.CaseStudyIndex
	limit int
}

func NewCaseStudyMatcher(index analysis.CaseStudyIndex, limit int) *CaseStudyMatcher {
	return &CaseStudyMatcher{index: index, limit: limit}
}

func (s *CaseStudyMatcher) Name() analysis.StageName { return analysis.StageCaseStudyMatcher }

func (s *CaseStudyMatcher) Requires() analysis.FieldSet {
	return analysis.FieldIndustry | analysis.FieldChallenges
}

func (s *CaseStudyMatcher) Produces() analysis.FieldSet { return analysis.FieldMatches }

func (s *CaseStudyMatcher) Execute(ctx context.Context, state *analysis.SharedState) StageResult {
	if f := requireFields(s, state); f != nil {
		return FailedWith(f)
	}
	if s.index == nil {
		return Failed(s.Name(), analysis.KindCollaborator, "no case study index configured")
	}

	matches, err := s.index.MatchCaseStudies(ctx, analysis.MatchQuery{
		Industry:   state.Industry,
		Challenges: state.Challenges,
		Limit:      s.limit,
	})
	if err != nil {
		return Failed(s.Name(), analysis.KindCollaborator, "match case studies: %v", err)
	}
	if matches == nil {
		matches = []analysis.CaseStudyRef{}
	}
	return Succeeded(analysis.StageUpdate{Fields: s.Produces(), MatchedCaseStudies: matches})
}
