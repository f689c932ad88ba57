package tool

import (
	"context"
	"encoding/json"
	"testing"
)

func TestBuildSchema(t *testing.T) {
	schema := BuildSchema(
		SchemaParam{Name: "command", Type: "string", Description: "Shell command", Required: true},
		SchemaParam{Name: "timeout", Type: "integer", Description: "Timeout in seconds", Required: false},
	)

	// Should be valid JSON
	var parsed map[string]interface{}
	if err := json.Unmarshal(schema, &parsed); err != nil {
		t.Fatalf("BuildSchema output is not valid JSON: %v", err)
	}

	// Should have type: object
	if parsed["type"] != "object" {
		t.Errorf("type = %v, want 'object'", parsed["type"])
	}

	// Should have properties
	props, ok := parsed["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("missing 'properties' field")
	}

	// Check command property
	cmd, ok := props["command"].(map[string]interface{})
	if !ok {
		t.Fatal("missing 'command' property")
	}
	if cmd["type"] != "string" {
		t.Errorf("command.type = %v, want 'string'", cmd["type"])
	}
	if cmd["description"] != "Shell command" {
		t.Errorf("command.description = %v, want 'Shell command'", cmd["description"])
	}

	// Check timeout property
	timeout, ok := props["timeout"].(map[string]interface{})
	if !ok {
		t.Fatal("missing 'timeout' property")
	}
	if timeout["type"] != "integer" {
		t.Errorf("timeout.type = %v, want 'integer'", timeout["type"])
	}

	// Check required array
	required, ok := parsed["required"].([]interface{})
	if !ok {
		t.Fatal("missing 'required' field")
	}
	if len(required) != 1 || required[0] != "command" {
		t.Errorf("required = %v, want [command]", required)
	}
}

func TestBuildSchemaEmpty(t *testing.T) {
	schema := BuildSchema()

	var parsed map[string]interface{}
	if err := json.Unmarshal(schema, &parsed); err != nil {
		t.Fatalf("empty schema is not valid JSON: %v", err)
	}

	if parsed["type"] != "object" {
		t.Errorf("type = %v, want 'object'", parsed["type"])
	}
}

func TestRegistryBasicOps(t *testing.T) {
	reg := NewRegistry()

	// Schemas should be empty
	if len(reg.Schemas()) != 0 {
		t.Error("new registry should have no schemas")
	}

	// Execute non-existent
	if _, err := reg.Execute(context.Background(), "nope", nil); err == nil {
		t.Error("Execute on empty registry should return an error")
	}
}
