package ollama

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

var (
	classificationSchemaOnce sync.Once
	classificationSchema     *jsonschema.Schema
	classificationSchemaErr  error
)

func classificationSchemaMap() map[string]any {
	types := make([]any, 0, len(domain.DocumentTypes))
	for _, t := range domain.DocumentTypes {
		types = append(types, string(t))
	}
	return map[string]any{
		"type":     "object",
		"required": []any{"type"},
		"properties": map[string]any{
			"type": map[string]any{
				"type": "string",
				"enum": types,
			},
		},
	}
}

func compiledClassificationSchema() (*jsonschema.Schema, error) {
	classificationSchemaOnce.Do(func() {
		b, err := json.Marshal(classificationSchemaMap())
		if err != nil {
			classificationSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("classification.json", bytes.NewReader(b)); err != nil {
			classificationSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		classificationSchema, classificationSchemaErr = compiler.Compile("classification.json")
	})
	return classificationSchema, classificationSchemaErr
}

// validateClassification checks the model reply is {"type": <known type>}.
func validateClassification(data []byte) error {
	schema, err := compiledClassificationSchema()
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
