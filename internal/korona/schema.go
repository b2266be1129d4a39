package korona

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// buildReceiptSchema returns the JSON-Schema constraint for a dispatch
// notification header. It guards against payloads the upstream rejects
// with an opaque 400, without being stricter than the upstream itself.
func buildReceiptSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"number", "organizationalUnit", "supplier"},
		"properties": map[string]any{
			"number": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"description": map[string]any{"type": "string"},
			"comment":     map[string]any{"type": "string"},
			"itemsCount":  map[string]any{"type": "integer", "minimum": 0},
			"cashier": map[string]any{
				"type":       "object",
				"required":   []string{"number"},
				"properties": map[string]any{"number": map[string]any{"type": "string"}},
			},
			"organizationalUnit": map[string]any{
				"type":       "object",
				"required":   []string{"number"},
				"properties": map[string]any{"number": map[string]any{"type": "string"}},
			},
			"supplier": map[string]any{
				"type":       "object",
				"required":   []string{"name"},
				"properties": map[string]any{"name": map[string]any{"type": "string", "minLength": 1}},
			},
		},
	}
}

// buildItemsSchema returns the JSON-Schema constraint for the item-posting
// payload.
func buildItemsSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []string{"name", "amount", "identification"},
			"properties": map[string]any{
				"unitType":  map[string]any{"type": "string"},
				"name":      map[string]any{"type": "string"},
				"shelfLife": map[string]any{"type": "string"},
				"amount": map[string]any{
					"type":     "object",
					"required": []string{"ordered", "delivered"},
					"properties": map[string]any{
						"ordered":   map[string]any{"type": "integer", "minimum": 0},
						"delivered": map[string]any{"type": "integer", "minimum": 0},
					},
				},
				"identification": map[string]any{
					"type":     "object",
					"required": []string{"productCode"},
					"properties": map[string]any{
						"productCode": map[string]any{"type": "string", "minLength": 1},
					},
				},
			},
		},
	}
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validatePayload checks an already-marshaled payload against a compiled
// schema before it goes on the wire.
func validatePayload(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match schema: %w", err)
	}
	return nil
}
