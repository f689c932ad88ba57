package engine

import (
	"context"

	"github.com/pocketomega/fsmagent/internal/tool"
)

// ToolExecutor is the subset of tool.Registry the engine and LLM callers
// depend on. tool.Registry satisfies it; tests may substitute a fake.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args []byte) (string, error)
	Schemas() []tool.Definition
}

// StreamEvent is one item delivered on the channel returned by
// LlmCaller.CallStream: either a chunk or a terminal error, never both.
type StreamEvent struct {
	Chunk LlmStreamChunk
	Err   error
}

// LlmCaller is the contract of spec §4.10: a non-streaming call and a
// streaming call, both building their tool list from tools.Schemas() and
// their message history from memory.BuildMessages(). Implementations return
// errors only for unrecoverable conditions; transient failures are handled
// by a RetryCaller wrapper composed around the implementation.
type LlmCaller interface {
	Call(ctx context.Context, memory *AgentMemory, tools ToolExecutor, model string) (LlmResponse, error)
	CallStream(ctx context.Context, memory *AgentMemory, tools ToolExecutor, model string, sink OutputSink) (<-chan StreamEvent, error)
}
