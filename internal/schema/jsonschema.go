package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type compiledSchema = jsonschema.Schema

// Compile turns a JSON schema document held as a map into a validator.
func Compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// ValidateJSON decodes data and validates it against compiled.
func ValidateJSON(compiled *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

var scalarValue = map[string]any{"type": []string{"string", "number", "boolean", "null"}}

// EnvelopeJSONSchema is the JSON schema of the extraction response for s:
// {fields: {name: {value, confidence, source_text}}, overall_confidence}.
func EnvelopeJSONSchema(s *Schema) map[string]any {
	fieldProps := make(map[string]any, s.Len())
	for _, f := range s.fields {
		fieldProps[f.Name] = fieldEntrySchema()
	}
	return map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []string{"fields"},
		"properties": map[string]any{
			"fields": map[string]any{
				"type":                 "object",
				"properties":           fieldProps,
				"additionalProperties": true,
			},
			"overall_confidence": map[string]any{
				"type":    []string{"number", "null"},
				"minimum": 0,
				"maximum": 1,
			},
		},
	}
}

func fieldEntrySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": scalarValue,
			"confidence": map[string]any{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
			"source_text": map[string]any{"type": []string{"string", "null"}},
		},
	}
}

// ValidateEnvelope validates an extraction response body against s. The
// compiled schema is built once per Schema.
func (s *Schema) ValidateEnvelope(data []byte) error {
	s.envOnce.Do(func() {
		s.env, s.envErr = Compile(EnvelopeJSONSchema(s))
	})
	if s.envErr != nil {
		return s.envErr
	}
	return ValidateJSON(s.env, data)
}
