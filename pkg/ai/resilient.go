package ai

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
)

// ResilienceConfig bounds a provider call. Retries are left to the caller.
type ResilienceConfig struct {
	Timeout time.Duration
}

// DefaultResilienceConfig returns the provider-level hard limit.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{Timeout: 120 * time.Second}
}

type ResilientProvider struct {
	inner ai.Provider
	cfg   ResilienceConfig
}

func NewResilientProvider(inner ai.Provider) *ResilientProvider {
	return NewResilientProviderWithConfig(inner, DefaultResilienceConfig())
}

func NewResilientProviderWithConfig(inner ai.Provider, cfg ResilienceConfig) *ResilientProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultResilienceConfig().Timeout
	}
	return &ResilientProvider{inner: inner, cfg: cfg}
}

func (p *ResilientProvider) ID() string {
	return p.inner.ID()
}

// Timeout returns the configured hard limit.
func (p *ResilientProvider) Timeout() time.Duration {
	return p.cfg.Timeout
}

func (p *ResilientProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	t := timeout.New[*ai.CompletionResponse](timeout.Config{
		DefaultTimeout: p.cfg.Timeout,
	})
	return t.Execute(ctx, p.cfg.Timeout, func(ctx context.Context) (*ai.CompletionResponse, error) {
		return p.inner.Complete(ctx, req)
	})
}
