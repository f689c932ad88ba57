package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// SubAgentRunner builds and runs a nested engine for a delegated task,
// returning its final answer or an error string. Defined here to keep the
// tool package free of a dependency on internal/builder; AgentBuilder.AsTool
// does not use it and builds its own callable with the same "task" schema.
type SubAgentRunner func(ctx context.Context, task string) (string, error)

type subAgentArgs struct {
	Task string `json:"task"`
}

// RegisterSubAgent installs name into r as a tool that accepts a single
// "task" string parameter and delegates it to run, returning run's answer
// or error unchanged; building and running the nested engine is up to run.
// Nested sub-agents are supported because run is free to build another
// sub-agent tool internally.
func RegisterSubAgent(r *Registry, name, description string, run SubAgentRunner) {
	schema := BuildSchema(SchemaParam{
		Name:        "task",
		Type:        "string",
		Description: "The task to delegate to this specialized sub-agent",
		Required:    true,
	})

	r.Register(name, description, schema, func(ctx context.Context, args json.RawMessage) (string, error) {
		var a subAgentArgs
		if len(args) > 0 {
			if err := json.Unmarshal(args, &a); err != nil {
				return "", fmt.Errorf("parsing arguments: %w", err)
			}
		}
		if a.Task == "" {
			return "", fmt.Errorf("missing required 'task' parameter for sub-agent")
		}
		return run(ctx, a.Task)
	})
}
