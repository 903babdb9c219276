package wiring

import (
	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/config"
	infraai "github.com/felixgeelhaar/rfpflow/pkg/ai"
	domainai "github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/pipeline"
)

// LoadAIProvider builds the configured provider behind the provider-level timeout.
// The mock provider answers with the built-in sample analysis.
func LoadAIProvider(cfg *config.Config) (domainai.Provider, error) {
	var (
		base domainai.Provider
		err  error
	)
	switch cfg.Provider {
	case "mock":
		model := cfg.Model
		if model == "" {
			model = "sample"
		}
		base = infraai.NewMockProvider(model, pipeline.SampleResponses())
	case "openai":
		base = infraai.NewOpenAIProvider(cfg.Model, cfg.APIKey)
	default:
		base, err = infraai.NewProvider(cfg.Provider, cfg.Model)
		if err != nil {
			return nil, err
		}
	}

	return infraai.NewResilientProviderWithConfig(base, infraai.ResilienceConfig{
		Timeout: cfg.ProviderTimeout.Std(),
	}), nil
}

// PipelineSettings applies the configured overrides to the default stage settings.
func PipelineSettings(cfg *config.Config) pipeline.Settings {
	s := pipeline.DefaultSettings()
	if cfg.MaxTokens > 0 {
		for stage, m := range s.Models {
			m.MaxTokens = cfg.MaxTokens
			s.Models[stage] = m
		}
	}
	for stage, temp := range cfg.Temperatures {
		m := s.For(stage)
		m.Temperature = temp
		s.Models[stage] = m
	}
	if cfg.MatchLimit > 0 {
		s.MatchLimit = cfg.MatchLimit
	}
	return s
}
