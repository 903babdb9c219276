package ai

import (
	"context"
	"strings"
	"sync"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
)

// MockProvider answers from a fixed table. A response is selected when its key
// appears in the request's system instruction; Default is used otherwise.
// Keys should not overlap.
type MockProvider struct {
	Model     string
	Responses map[string]string
	Default   string

	mu    sync.Mutex
	calls []ai.CompletionRequest
}

func NewMockProvider(model string, responses map[string]string) *MockProvider {
	return &MockProvider{Model: model, Responses: responses, Default: "{}"}
}

func (p *MockProvider) ID() string {
	return "mock:" + p.Model
}

func (p *MockProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	text := p.Default
	for key, resp := range p.Responses {
		if strings.Contains(req.System, key) {
			text = resp
			break
		}
	}
	return &ai.CompletionResponse{
		Text:  text,
		Model: p.Model,
		Usage: ai.TokenUsage{InputTokens: len(req.Prompt) / 4, OutputTokens: len(text) / 4},
	}, nil
}

// Calls returns the requests seen so far.
func (p *MockProvider) Calls() []ai.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ai.CompletionRequest(nil), p.calls...)
}
