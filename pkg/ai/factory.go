package ai

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
)

// NewProvider builds a provider by name. API keys come from the environment.
func NewProvider(providerName string, modelName string) (ai.Provider, error) {
	switch providerName {
	case "ollama", "":
		return NewOllamaProvider(modelName), nil
	case "mock":
		return NewMockProvider(modelName, nil), nil
	case "openai":
		return NewOpenAIProvider(modelName, os.Getenv("OPENAI_API_KEY")), nil
	case "anthropic":
		return NewAnthropicProvider(modelName, os.Getenv("ANTHROPIC_API_KEY")), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", providerName)
	}
}

// GetDefaultProvider returns a provider, letting environment variables override the arguments.
func GetDefaultProvider(providerName, modelName string) (ai.Provider, error) {
	if envProvider := os.Getenv("RFPFLOW_AI_PROVIDER"); envProvider != "" {
		providerName = envProvider
	}
	if envModel := os.Getenv("RFPFLOW_AI_MODEL"); envModel != "" {
		modelName = envModel
	}
	return NewProvider(providerName, modelName)
}
