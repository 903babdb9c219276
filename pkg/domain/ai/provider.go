// Package ai defines the contract the pipeline uses to reach a language model.
package ai

import (
	"context"
)

// CompletionRequest is one instruction/input pair sent to the model.
type CompletionRequest struct {
	// System carries the stage instruction template.
	System string
	// Prompt carries the stage inputs rendered as text.
	Prompt string
	// Temperature controls randomness; deterministic stages use the lowest values.
	Temperature float32
	MaxTokens   int
	// JSON asks the backend to constrain output to a JSON object when it supports it.
	JSON bool
}

// CompletionResponse represents the model's answer.
type CompletionResponse struct {
	Text  string
	Usage TokenUsage
	Model string
}

// TokenUsage tracks costs.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Provider is the interface for all model backends.
type Provider interface {
	ID() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
