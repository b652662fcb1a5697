package llm

import "github.com/joseph-ayodele/docfields/internal/extract"

// BuildFieldsJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map describing
// the ideal model answer: one {value, confidence} object per field key and nothing else.
func BuildFieldsJSONSchema(spec extract.FieldSpec) map[string]any {
	props := make(map[string]any, spec.Len())
	for _, k := range spec.Keys() {
		props[k] = fieldResultProp()
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             spec.Keys(),
	}
}

func fieldResultProp() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value":      map[string]any{"type": []any{"string", "null"}},
			"confidence": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		},
		"required": []string{"value", "confidence"},
	}
}
