package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildDocumentJSONSchema returns the JSON-Schema (draft 2020-12 subset) for
// a sanitized document record, as a generic map. Nothing is required: the
// pipeline defaults missing names and classifies a missing type as UNKNOWN.
// Validation exists to catch shape surprises (nested objects, arrays) that
// sanitation let through; the annee_validite pattern is upheld by
// NormalizeAndSanitize, which reduces or drops variant years.
func BuildDocumentJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"type":           map[string]any{"type": "string"},
			"nom":            map[string]any{"type": "string"},
			"prenom":         map[string]any{"type": "string"},
			"licence_no":     map[string]any{"type": "string"},
			"annee_validite": map[string]any{"type": "string", "pattern": `^\d{4}$`},
			"classement":     map[string]any{"type": "string"},
			"club":           map[string]any{"type": "string"},
			"statut":         map[string]any{"type": "string"},
			"confidence":     map[string]any{"type": "string"},
		},
	}
}

// ValidateAgainstSchema validates data against schemaMap.
func ValidateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
