package pipeline

import (
	"context"
	"errors"

	"github.com/xeipuuv/gojsonschema"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

// modelCall is the shared plumbing of the language-model stages.
type modelCall struct {
	stage    analysis.StageName
	provider ai.Provider
	settings ModelSettings
}

// complete sends one request and decodes the validated JSON reply into out.
func (m modelCall) complete(ctx context.Context, system, prompt string, schema gojsonschema.JSONLoader, out interface{}) *analysis.StageFailure {
	if m.provider == nil {
		return &analysis.StageFailure{Stage: m.stage, Kind: analysis.KindCollaborator, Message: "no language model configured"}
	}

	resp, err := m.provider.Complete(ctx, ai.CompletionRequest{
		System:      system,
		Prompt:      prompt,
		Temperature: m.settings.Temperature,
		MaxTokens:   m.settings.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		kind := analysis.KindCollaborator
		if errors.Is(err, context.DeadlineExceeded) {
			kind = analysis.KindTimeout
		}
		return &analysis.StageFailure{Stage: m.stage, Kind: kind, Message: "model call: " + err.Error()}
	}
	if resp == nil {
		return parseFailure(m.stage, "empty response")
	}

	return decodeResponse(m.stage, resp.Text, schema, out)
}
