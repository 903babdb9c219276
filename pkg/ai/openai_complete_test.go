package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	infraAI "github.com/felixgeelhaar/rfpflow/pkg/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
)

func openAIServer(t *testing.T, received *map[string]interface{}, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Bearer test-key, got %s", r.Header.Get("Authorization"))
		}
		if received != nil {
			_ = json.NewDecoder(r.Body).Decode(received)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"message": "slow down", "type": "rate_limit"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": `{"summary":"ok"}`}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
}

func TestOpenAIProvider_Complete_Success(t *testing.T) {
	server := openAIServer(t, nil, http.StatusOK)
	defer server.Close()

	p := infraAI.NewOpenAIProviderWithClient("gpt-4o", "test-key", server.URL+"/v1", server.Client())
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "Analyze"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"summary":"ok"}` {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Model != "gpt-4o" {
		t.Errorf("Model = %s, want gpt-4o", resp.Model)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 5 {
		t.Errorf("Usage = %+v, want 10/5", resp.Usage)
	}
}

func TestOpenAIProvider_Complete_ForwardsStageSettings(t *testing.T) {
	var body map[string]interface{}
	server := openAIServer(t, &body, http.StatusOK)
	defer server.Close()

	p := infraAI.NewOpenAIProviderWithClient("gpt-4o", "test-key", server.URL+"/v1", server.Client())
	_, err := p.Complete(context.Background(), ai.CompletionRequest{
		System:      "You generate discovery questions",
		Prompt:      "Challenges: ...",
		Temperature: 0.7,
		MaxTokens:   600,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	messages, ok := body["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("expected system + user messages, got %v", body["messages"])
	}
	first := messages[0].(map[string]interface{})
	if first["role"] != "system" {
		t.Errorf("first role = %v, want system", first["role"])
	}
	if temp, _ := body["temperature"].(float64); temp < 0.69 || temp > 0.71 {
		t.Errorf("temperature = %v, want 0.7", body["temperature"])
	}
	if _, ok := body["response_format"]; !ok {
		t.Error("expected response_format for JSON requests")
	}
}

func TestOpenAIProvider_Complete_MissingKey(t *testing.T) {
	p := infraAI.NewOpenAIProvider("", "")
	if p.ID() != "openai:gpt-4o-mini" {
		t.Errorf("ID() = %s", p.ID())
	}
	if _, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestOpenAIProvider_Complete_RateLimited(t *testing.T) {
	server := openAIServer(t, nil, http.StatusTooManyRequests)
	defer server.Close()

	p := infraAI.NewOpenAIProviderWithClient("gpt-4o", "test-key", server.URL+"/v1", server.Client())
	if _, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error on 429")
	}
}
