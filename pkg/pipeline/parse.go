package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

const analyzerSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["summary"],
  "properties": {
    "summary": { "type": "string" },
    "objectives": { "type": "array", "items": { "type": "string" } },
    "scope": { "type": "string" },
    "industry": { "type": "string" }
  }
}`

const challengesSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["challenges"],
  "properties": {
    "challenges": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["description"],
        "properties": {
          "description": { "type": "string", "minLength": 1 },
          "category": { "type": "string" },
          "impact": { "type": "string" }
        }
      }
    }
  }
}`

const questionsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "object",
      "additionalProperties": { "type": "array", "items": { "type": "string" } }
    }
  }
}`

const propositionsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["value_propositions"],
  "properties": {
    "value_propositions": { "type": "array", "minItems": 1, "items": { "type": "string" } }
  }
}`

const introductionSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["introduction"],
  "properties": {
    "introduction": { "type": "string", "minLength": 1 }
  }
}`

var (
	analyzerSchemaLoader     = gojsonschema.NewStringLoader(analyzerSchemaJSON)
	challengesSchemaLoader   = gojsonschema.NewStringLoader(challengesSchemaJSON)
	questionsSchemaLoader    = gojsonschema.NewStringLoader(questionsSchemaJSON)
	propositionsSchemaLoader = gojsonschema.NewStringLoader(propositionsSchemaJSON)
	introductionSchemaLoader = gojsonschema.NewStringLoader(introductionSchemaJSON)
)

// decodeResponse extracts the JSON object from a model reply, validates it
// against schema and decodes it into out. Any problem is a parse failure.
func decodeResponse(stage analysis.StageName, text string, schema gojsonschema.JSONLoader, out interface{}) *analysis.StageFailure {
	payload := extractJSONPayload(text)
	if payload == "" {
		return parseFailure(stage, "empty response")
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(payload))
	if err != nil {
		return parseFailure(stage, "response is not valid JSON: "+err.Error())
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return parseFailure(stage, "response does not match schema: "+strings.Join(issues, "; "))
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return parseFailure(stage, "decode response: "+err.Error())
	}
	return nil
}

func parseFailure(stage analysis.StageName, msg string) *analysis.StageFailure {
	return &analysis.StageFailure{Stage: stage, Kind: analysis.KindParse, Message: msg}
}

// extractJSONPayload strips code fences and any prose around the outermost JSON object.
func extractJSONPayload(text string) string {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start == -1 || end <= start {
		return clean
	}
	return strings.TrimSpace(clean[start : end+1])
}
