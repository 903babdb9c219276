package pipeline

import "github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"

// ModelSettings are the generation parameters of one stage.
type ModelSettings struct {
	Temperature float32
	MaxTokens   int
}

// Settings configures the default graph.
type Settings struct {
	Models map[analysis.StageName]ModelSettings
	// MatchLimit caps the number of case studies requested from the index.
	MatchLimit int
	// ExecutiveIntro lets the proposal builder ask the model for an opening paragraph.
	ExecutiveIntro bool
}

// DefaultSettings returns the stock temperatures: low for extraction, higher for ideation.
func DefaultSettings() Settings {
	return Settings{
		Models: map[analysis.StageName]ModelSettings{
			analysis.StageRFPAnalyzer:        {Temperature: 0.1, MaxTokens: 1200},
			analysis.StageChallengeExtractor: {Temperature: 0.2, MaxTokens: 1200},
			analysis.StageDiscoveryQuestions: {Temperature: 0.7, MaxTokens: 1500},
			analysis.StageValuePropositions:  {Temperature: 0.5, MaxTokens: 1000},
			analysis.StageProposalBuilder:    {Temperature: 0.3, MaxTokens: 600},
		},
		MatchLimit:     5,
		ExecutiveIntro: true,
	}
}

// For returns the settings of stage, falling back to the defaults.
func (s Settings) For(stage analysis.StageName) ModelSettings {
	if m, ok := s.Models[stage]; ok {
		return m
	}
	return DefaultSettings().Models[stage]
}
