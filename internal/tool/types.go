// Package tool implements the Tool Registry: a map from tool name to a
// JSON-schema-described, synchronous callable the LLM may invoke.
package tool

import (
	"context"
	"encoding/json"
)

// Callable is the signature every registered tool executes against.
// args is the raw JSON object the LLM supplied; the callable returns either
// a success string or an error string — never both, and never a panic.
type Callable func(ctx context.Context, args json.RawMessage) (string, error)

// Definition describes one registered tool for LLM tool-list injection,
// compatible with both OpenAI function-calling and MCP's tool schema.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"input_schema"`
}

// SchemaParam describes a single parameter for the BuildSchema helper.
type SchemaParam struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // "string", "integer", "boolean", "number"
	Description string   `json:"description"`
	Required    bool     `json:"-"`
	Enum        []string `json:"enum,omitempty"`
}

// BuildSchema generates a standard JSON Schema object from a list of
// SchemaParams, so callers avoid hand-writing JSON schema strings.
func BuildSchema(params ...SchemaParam) json.RawMessage {
	properties := make(map[string]any)
	var required []string

	for _, p := range params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	data, _ := json.Marshal(schema)
	return data
}
