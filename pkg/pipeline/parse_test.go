package pipeline

import (
	"testing"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

func TestExtractJSONPayload(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Sure! {\"a\":{\"b\":2}} Hope this helps.", `{"a":{"b":2}}`},
		{"no object", "nothing here", "nothing here"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONPayload(tt.in); got != tt.want {
				t.Errorf("extractJSONPayload(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeResponse_SchemaViolation(t *testing.T) {
	var out propositionsResponse
	f := decodeResponse(analysis.StageValuePropositions, `{"value_propositions": []}`, propositionsSchemaLoader, &out)
	if f == nil {
		t.Fatal("Expected failure for empty list")
	}
	if f.Kind != analysis.KindParse {
		t.Errorf("Kind = %s, want parse", f.Kind)
	}
}

func TestDecodeResponse_Valid(t *testing.T) {
	var out questionsResponse
	f := decodeResponse(analysis.StageDiscoveryQuestions, `{"questions": {"Business": ["Why?"]}}`, questionsSchemaLoader, &out)
	if f != nil {
		t.Fatalf("decodeResponse: %v", f)
	}
	if len(out.Questions["Business"]) != 1 {
		t.Errorf("questions = %v", out.Questions)
	}
}

func TestDecodeResponse_Empty(t *testing.T) {
	var out analyzerResponse
	if f := decodeResponse(analysis.StageRFPAnalyzer, "", analyzerSchemaLoader, &out); f == nil || f.Kind != analysis.KindParse {
		t.Errorf("decodeResponse(empty) = %v, want parse failure", f)
	}
}
